package handler

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kimeru/internal/avatar"
	"github.com/hitoshi/kimeru/internal/metrics"
	"github.com/hitoshi/kimeru/internal/middleware"
	"github.com/hitoshi/kimeru/internal/security"
	"github.com/hitoshi/kimeru/internal/view"
)

//go:embed static
var staticFS embed.FS

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionLoader middleware.SessionLoader
	RateLimiter   *middleware.RateLimiter
	CSRFConfig    middleware.CSRFConfig
	Logger        *slog.Logger

	// サービス
	SessionService SessionServiceInterface
	ProfileService ProfileServiceInterface
	Mirrors        MirrorRegistry
	Advisor        AdvisorServiceInterface
	AvatarFetcher  avatar.FetcherService
	AvatarGuard    security.AvatarGuardService

	// 描画・設定・観測
	Renderer     *view.Renderer
	AuthConfig   AuthHandlerConfig
	MaxImageSize int64
	Metrics      metrics.MetricsCollector
	Registry     prometheus.Gatherer
}

// NewRouter は全ページ・全エンドポイントのルーティングと
// ミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → CSRF
//
// 認証必須グループはさらに RequireAuth → RateLimit(General) を重ねる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewSessionMiddleware(deps.SessionLoader))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.SessionService, deps.Renderer, deps.AuthConfig, deps.Metrics)
	pageHandler := NewPageHandler(deps.Renderer, deps.Mirrors, deps.Advisor)
	decisionHandler := NewDecisionHandler(deps.Mirrors)
	settingsHandler := NewSettingsHandler(deps.ProfileService, deps.AvatarGuard, deps.MaxImageSize)
	aiHandler := NewAIHandler(deps.Advisor, deps.Mirrors, deps.Metrics)
	avatarHandler := NewAvatarHandler(deps.AvatarFetcher)

	// --- 認証状態を問わないルート ---

	r.Get("/", pageHandler.Home)
	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler(deps.Registry))
	r.Handle("/static/*", staticHandler())

	// OAuthフロー（エントリーとコールバック）
	r.Get("/auth/google", authHandler.OAuthEntry("google"))
	r.Get("/auth/github", authHandler.OAuthEntry("github"))
	r.Get("/auth/callback", authHandler.OAuthCallback)

	// ログアウトは認証状態を問わず受け付ける（Cookieがなければ何もしない）
	r.Post("/logout", authHandler.Logout)

	// --- 未認証専用ルート（ログイン・登録） ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRequireAnonymousMiddleware())

		r.Get("/login", authHandler.LoginPage)
		r.Get("/register", authHandler.RegisterPage)

		// ログイン試行はIP単位の専用レート制限を重ねる
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
	})

	// --- 認証必須ルート ---
	// ミドルウェアスタック: RequireAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRequireAuthMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ページ
		r.Get("/dashboard", pageHandler.Dashboard)
		r.Get("/analytics", pageHandler.Analytics)
		r.Get("/settings", pageHandler.Settings)

		// 意思決定の操作
		r.Route("/decisions", func(r chi.Router) {
			r.Post("/", decisionHandler.Create)
			r.Post("/{id}", decisionHandler.Update)
			r.Post("/{id}/delete", decisionHandler.Delete)
		})

		// プロフィール設定
		r.Route("/settings", func(r chi.Router) {
			r.Post("/profile", settingsHandler.UpdateProfile)
			r.Post("/image", settingsHandler.UploadImage)
			r.Post("/delete", settingsHandler.DeleteAccount)
		})

		// AIアドバイザー（JSON）
		r.Route("/api/ai", func(r chi.Router) {
			r.Post("/strategy", aiHandler.Strategy)
			r.Post("/chat", aiHandler.Chat)
		})

		// プロフィール画像プロキシ
		r.Get("/avatar", avatarHandler.Serve)
	})

	return r
}

// healthHandler はヘルスチェックエンドポイント。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// staticHandler は埋め込み静的ファイルを配信する。
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embedの構成ミスはビルド時の問題なので起動を止める
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
