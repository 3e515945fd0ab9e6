// Package avatar はプロフィール画像の取得プロキシを提供する。
// 画像URLはユーザーが設定する信頼できない値のため、サーバー側で
// SSRF検証付きで取得し、ブラウザへ中継する。
package avatar

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultMaxSize はプロフィール画像の最大サイズ（2MB）。
const defaultMaxSize = 2 * 1024 * 1024

// defaultTimeout は画像取得のタイムアウト。
const defaultTimeout = 5 * time.Second

// SSRFValidator は取得前のURL検証とSSRF防止クライアントの生成を提供する。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// FetcherService はプロフィール画像取得のインターフェース。
type FetcherService interface {
	// Fetch は指定URLから画像を取得する。
	// 取得失敗時はnilデータと空MIMEを返す（エラーは返さない）。
	Fetch(ctx context.Context, imageURL string) (data []byte, mimeType string, err error)
}

// Fetcher はプロフィール画像取得機能の実装。
type Fetcher struct {
	guard   SSRFValidator
	client  *http.Client
	maxSize int64
}

// NewFetcher はデフォルト設定（タイムアウト5秒、上限2MB）のFetcherを生成する。
func NewFetcher(guard SSRFValidator) *Fetcher {
	return NewFetcherWithLimits(guard, defaultTimeout, defaultMaxSize)
}

// NewFetcherWithLimits はタイムアウトとサイズ上限を指定してFetcherを生成する。
// ゼロ値はデフォルトに置き換えられる。
func NewFetcherWithLimits(guard SSRFValidator, timeout time.Duration, maxSize int64) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Fetcher{
		guard:   guard,
		client:  guard.NewSafeClient(timeout),
		maxSize: maxSize,
	}
}

// Fetch は指定URLから画像を取得する。
// 取得失敗時はnilデータと空MIMEを返す（プレースホルダー表示にフォールバックする）。
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	if imageURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if err := f.guard.ValidateURL(imageURL); err != nil {
		slog.Warn("画像取得: SSRFブロック", "url", imageURL, "error", err)
		return nil, "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		slog.Warn("画像取得: リクエスト作成失敗", "url", imageURL, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Kimeru/1.0 Decision Intel Frontend")

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Warn("画像取得: HTTPリクエスト失敗", "url", imageURL, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	// 2xx以外は取得失敗として扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("画像取得: HTTPステータス異常", "url", imageURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（上限+1バイトで超過を検知する）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		slog.Warn("画像取得: レスポンス読み取り失敗", "url", imageURL, "error", err)
		return nil, "", nil
	}

	// サイズ超過チェック
	if int64(len(body)) > f.maxSize {
		slog.Warn("画像取得: サイズ超過", "url", imageURL, "size", len(body))
		return nil, "", nil
	}

	contentType := resp.Header.Get("Content-Type")
	mimeType := extractMimeType(contentType)

	// 画像でない場合は中継しない
	if !isImageMime(mimeType) {
		slog.Warn("画像取得: 画像以外のContent-Type", "url", imageURL, "contentType", contentType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// extractMimeType はContent-Typeヘッダーからパラメータを除いたMIMEタイプを取り出す。
func extractMimeType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
