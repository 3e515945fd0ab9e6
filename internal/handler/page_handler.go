package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/kimeru/internal/decision"
	"github.com/hitoshi/kimeru/internal/insights"
	"github.com/hitoshi/kimeru/internal/middleware"
	"github.com/hitoshi/kimeru/internal/model"
	"github.com/hitoshi/kimeru/internal/view"
)

// MirrorRegistry はページハンドラーが必要とする意思決定ミラーのレジストリ。
type MirrorRegistry interface {
	Get(sessionID, token string) *decision.Store
}

// StrategyService は分析ページが必要とするAIアドバイザーのインターフェース。
type StrategyService interface {
	GenerateStrategy(ctx context.Context, token string, decisions []*model.Decision) (string, error)
}

// PageHandler は画面表示のHTTPハンドラー。
type PageHandler struct {
	renderer *view.Renderer
	mirrors  MirrorRegistry
	advisor  StrategyService
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer *view.Renderer, mirrors MirrorRegistry, advisor StrategyService) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		mirrors:  mirrors,
		advisor:  advisor,
	}
}

// Home はトップページを表示する。認証状態を問わない。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	data := view.HomeData{Page: h.pageData(r, sess, "Home")}
	h.render(w, "home", data)
}

// Dashboard は意思決定一覧と活動ログを表示する。
// ?q= があれば一覧をフィルタする。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	mirror := h.mirrors.Get(sess.ID, sess.Token)

	if err := mirror.Refresh(r.Context()); err != nil {
		if h.redirectIfUnauthorized(w, r, err) {
			return
		}
		slog.Warn("failed to refresh decisions", slog.String("error", err.Error()))
	}
	if err := mirror.RefreshLogs(r.Context()); err != nil {
		slog.Warn("failed to refresh activity log", slog.String("error", err.Error()))
	}

	query := r.URL.Query().Get("q")
	decisions := insights.Filter(mirror.Decisions(), query)

	logs := mirror.Logs()
	if len(logs) > 10 {
		logs = logs[:10]
	}

	data := view.DashboardData{
		Page:      h.pageData(r, sess, "Dashboard"),
		Decisions: decisions,
		Summary:   insights.Summarize(mirror.Decisions()),
		Query:     query,
		Logs:      logs,
	}
	if err := mirror.LastError(); err != nil {
		data.Flash = model.UserMessage(err, "Could not load your decisions.")
	} else if msg := r.URL.Query().Get("error"); msg != "" {
		// POST-Redirect-GETで渡された直前操作のエラー
		data.Flash = msg
	}
	h.render(w, "dashboard", data)
}

// Analytics は集計・週間アクティビティ・AI戦略を表示する。
// GET /analytics
func (h *PageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	mirror := h.mirrors.Get(sess.ID, sess.Token)

	if err := mirror.Refresh(r.Context()); err != nil {
		if h.redirectIfUnauthorized(w, r, err) {
			return
		}
		slog.Warn("failed to refresh decisions", slog.String("error", err.Error()))
	}

	decisions := mirror.Decisions()

	advice, err := h.advisor.GenerateStrategy(r.Context(), sess.Token, decisions)
	if err != nil {
		// アドバイスの失敗でページ全体は落とさない
		slog.Warn("failed to generate strategy", slog.String("error", err.Error()))
		advice = ""
	}

	data := view.AnalyticsData{
		Page:       h.pageData(r, sess, "Analytics"),
		Summary:    insights.Summarize(decisions),
		Categories: insights.CategoryHistogram(decisions),
		Weekly:     insights.WeeklyActivity(time.Now(), decisions),
		Advice:     advice,
	}
	h.render(w, "analytics", data)
}

// Settings はプロフィール設定ページを表示する。
// GET /settings
func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	data := view.SettingsData{Page: h.pageData(r, sess, "Settings")}
	data.Flash = r.URL.Query().Get("error")
	h.render(w, "settings", data)
}

func (h *PageHandler) pageData(r *http.Request, sess *model.Session, title string) view.Page {
	page := view.Page{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromRequest(r),
	}
	if sess != nil {
		page.User = sess.User
	}
	return page
}

// redirectIfUnauthorized はトークン失効エラーの場合にCookieを破棄して
// ログインページへ転送する。転送した場合はtrueを返す。
func (h *PageHandler) redirectIfUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !model.IsUnauthorized(err) {
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, name, data); err != nil {
		slog.Error("failed to render page", slog.String("error", err.Error()))
	}
}
