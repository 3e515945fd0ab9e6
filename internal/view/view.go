// Package view はHTMLページの描画を提供する。
// テンプレートはバイナリへ埋め込み、起動時に一括パースする。
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/hitoshi/kimeru/internal/insights"
	"github.com/hitoshi/kimeru/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer はページテンプレートの描画器。
type Renderer struct {
	templates *template.Template
}

// NewRenderer は埋め込みテンプレートをパースしてRendererを生成する。
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"safeHTML": func(s string) template.HTML {
			// サニタイズ済みのAIアドバイスにのみ使用する
			return template.HTML(s)
		},
		// ステータスバッジのCSSクラス用に正規化する
		"statusClass": insights.ClassifyStatus,
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Page は全ページ共通の描画データ。
type Page struct {
	Title     string
	User      *model.UserProfile
	CSRFToken string
	Flash     string // 直前の操作のエラーメッセージ（なければ空）
}

// HomeData はトップページの描画データ。
type HomeData struct {
	Page
}

// LoginData はログイン・登録ページの描画データ。
type LoginData struct {
	Page
	Email string // 失敗時の再入力用
}

// DashboardData はダッシュボードの描画データ。
type DashboardData struct {
	Page
	Decisions []*model.Decision
	Summary   insights.Summary
	Query     string
	Logs      []*model.ActivityLogEntry
}

// AnalyticsData は分析ページの描画データ。
type AnalyticsData struct {
	Page
	Summary    insights.Summary
	Categories []insights.CategoryCount
	Weekly     []insights.DayCount
	Advice     string // サニタイズ済みHTML
}

// SettingsData は設定ページの描画データ。
type SettingsData struct {
	Page
}

// Render は指定テンプレートへデータを描画する。
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return nil
}
