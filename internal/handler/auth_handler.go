// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/kimeru/internal/middleware"
	"github.com/hitoshi/kimeru/internal/model"
	"github.com/hitoshi/kimeru/internal/view"
)

// SessionServiceInterface は認証ハンドラーが必要とするセッションストアのインターフェース。
type SessionServiceInterface interface {
	LoginWithCredentials(ctx context.Context, email, password string) (*model.Session, error)
	LoginWithExternalToken(ctx context.Context, token string) (*model.Session, error)
	Register(ctx context.Context, name, email, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BackendURL    string // OAuthエントリーポイントの転送先
	BaseURL       string // OAuthコールバックの戻り先を組み立てるための自身のURL
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthMetrics は認証ハンドラーが記録するメトリクスの部分集合。
type AuthMetrics interface {
	RecordLogin(method string)
	RecordLoginFailure()
}

// AuthHandler はログイン・登録・OAuth・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	sessions SessionServiceInterface
	renderer *view.Renderer
	config   AuthHandlerConfig
	metrics  AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(sessions SessionServiceInterface, renderer *view.Renderer, config AuthHandlerConfig, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		renderer: renderer,
		config:   config,
		metrics:  metrics,
	}
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, "login", "", "", http.StatusOK)
}

// Login は資格情報でのログインを処理する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		h.renderLogin(w, r, "login", email, "Email and password are required.", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.LoginWithCredentials(r.Context(), email, password)
	if err != nil {
		h.metrics.RecordLoginFailure()
		slog.Warn("login failed", slog.String("error", err.Error()))
		h.renderLogin(w, r, "login", email, model.UserMessage(err, "Login failed. Please try again."), http.StatusUnauthorized)
		return
	}

	h.metrics.RecordLogin("credentials")
	h.setSessionCookie(w, sess.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// RegisterPage は登録フォームを表示する。
// GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, "register", "", "", http.StatusOK)
}

// Register は新規登録を処理する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if name == "" || email == "" || password == "" {
		h.renderLogin(w, r, "register", email, "All fields are required.", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Register(r.Context(), name, email, password)
	if err != nil {
		h.metrics.RecordLoginFailure()
		slog.Warn("registration failed", slog.String("error", err.Error()))
		h.renderLogin(w, r, "register", email, model.UserMessage(err, "Registration failed. Please try again."), http.StatusBadRequest)
		return
	}

	h.metrics.RecordLogin("register")
	h.setSessionCookie(w, sess.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// OAuthEntry は外部OAuthフローのエントリーポイント。
// バックエンドの認可開始URLへ、完了後の戻り先を添えて転送する。
// GET /auth/google, GET /auth/github
func (h *AuthHandler) OAuthEntry(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := h.config.BackendURL + "/api/auth/" + provider +
			"?redirect_uri=" + url.QueryEscape(h.config.BaseURL+"/auth/callback")
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}
}

// OAuthCallback は外部OAuthフローの完了を処理する。
// バックエンドはトークンをクエリパラメータで渡してくる。
// GET /auth/callback?token=xxx
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		slog.Warn("oauth callback without token")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sess, err := h.sessions.LoginWithExternalToken(r.Context(), token)
	if err != nil {
		h.metrics.RecordLoginFailure()
		slog.Warn("oauth login failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.metrics.RecordLogin("external")
	h.setSessionCookie(w, sess.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout はセッションを破棄しトップページへ転送する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		h.sessions.Logout(r.Context(), cookie.Value)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, tmpl, email, flash string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := view.LoginData{
		Page: view.Page{
			Title:     "Login",
			CSRFToken: middleware.CSRFTokenFromRequest(r),
			Flash:     flash,
		},
		Email: email,
	}
	if tmpl == "register" {
		data.Title = "Sign up"
	}
	if err := h.renderer.Render(w, tmpl, data); err != nil {
		slog.Error("failed to render page", slog.String("error", err.Error()))
	}
}

// setSessionCookie はセッションIDをHTTP Only Cookieに設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
