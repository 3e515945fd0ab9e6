// Package security はアプリケーションのセキュリティ機能を提供する。
//
// AdviceSanitizerService はAIアドバイザーの応答HTMLをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグのみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// AdviceSanitizerService はAI応答のサニタイズ機能のインターフェースを定義する。
// 戦略アドバイスとチャット返信の表示前に使用される。
type AdviceSanitizerService interface {
	// Sanitize はAI応答をサニタイズして安全なHTMLを返す。
	// 整形用の許可タグ（p, br, ul, ol, li, blockquote, pre, code, strong, em, h3, h4）
	// のみを通過させ、script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// adviceSanitizer はAdviceSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type adviceSanitizer struct {
	policy *bluemonday.Policy
}

// NewAdviceSanitizer はAdviceSanitizerServiceの新しいインスタンスを生成する。
// AI応答は信頼できない入力として扱う。AIバックエンドが返すのは
// 基本的にプレーンテキストだが、プロンプト注入によって任意のHTMLが
// 混入しうるため、表示用の整形タグだけを残してすべて除去する。
func NewAdviceSanitizer() *adviceSanitizer {
	p := bluemonday.NewPolicy()

	// 整形用タグのみ許可。script, iframe, style等は許可リストに
	// 含めないことで自動的に除去される。on*イベント属性は
	// bluemondayのデフォルトで許可されない
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "h3", "h4",
	)

	// リンクはhref属性のみ。相対URLは不許可で、
	// target="_blank"とrel="noreferrer noopener"を強制付与する。
	// スキームはhttpsのみ許可（http, javascript, data等は拒否）
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &adviceSanitizer{
		policy: p,
	}
}

// Sanitize はAI応答をサニタイズして安全なHTMLを返す。
func (s *adviceSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
