package middleware

import (
	"net/http"

	"github.com/hitoshi/kimeru/internal/route"
)

// NewRequireAuthMiddleware は認証必須ページのガードミドルウェアを返す。
// 判定はroute.RequiresAuthに委譲し、不許可の場合は転送先へ303でリダイレクトする。
// セッションミドルウェアの後に配置すること。
func NewRequireAuthMiddleware() func(next http.Handler) http.Handler {
	return guardMiddleware(route.RequiresAuth)
}

// NewRequireAnonymousMiddleware は未認証専用ページ（ログイン・登録）の
// ガードミドルウェアを返す。認証済みの場合はダッシュボードへ転送する。
func NewRequireAnonymousMiddleware() func(next http.Handler) http.Handler {
	return guardMiddleware(route.RequiresAnonymous)
}

func guardMiddleware(policy func(authenticated bool) route.GuardResult) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			result := policy(sess.Authenticated())
			if !result.Allow {
				http.Redirect(w, r, result.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
