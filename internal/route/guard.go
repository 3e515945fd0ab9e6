// Package route はページ到達可否の判定ポリシーを提供する。
// 判定はセッションの有無のみに基づく純粋関数で、HTTP層から独立している。
package route

// GuardResult はガードの判定結果。
type GuardResult struct {
	Allow      bool
	RedirectTo string // Allowがfalseの場合の転送先
}

// RequiresAuth は認証必須ページのガード。
// 未認証の場合はログインページへ転送する。
func RequiresAuth(authenticated bool) GuardResult {
	if !authenticated {
		return GuardResult{RedirectTo: "/login"}
	}
	return GuardResult{Allow: true}
}

// RequiresAnonymous は未認証専用ページ（ログイン・登録）のガード。
// 認証済みの場合はダッシュボードへ転送する。
func RequiresAnonymous(authenticated bool) GuardResult {
	if authenticated {
		return GuardResult{RedirectTo: "/dashboard"}
	}
	return GuardResult{Allow: true}
}
