package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// panicPage はpanic時にブラウザへ返す最小限のHTML。
// テンプレート描画自体がpanic源になりうるため、Rendererには依存しない。
const panicPage = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Error</title></head>
<body><h1>Something went wrong</h1><p>Please try again later.</p></body></html>
`

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、
// 500レスポンスを返すミドルウェアを生成する。
// JSONエンドポイント（/api/配下）には統一エラーフォーマット、
// それ以外にはHTMLのエラーページを返す。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					if strings.HasPrefix(r.URL.Path, "/api/") {
						WriteInternalServerError(w)
						return
					}
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					io.WriteString(w, panicPage)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
