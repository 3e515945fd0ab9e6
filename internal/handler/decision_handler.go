package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kimeru/internal/middleware"
	"github.com/hitoshi/kimeru/internal/model"
)

// DecisionHandler は意思決定の作成・更新・削除を処理するHTTPハンドラー。
// フォームPOSTを受け、処理後はダッシュボードへ転送する（POST-Redirect-GET）。
type DecisionHandler struct {
	mirrors MirrorRegistry
}

// NewDecisionHandler はDecisionHandlerを生成する。
func NewDecisionHandler(mirrors MirrorRegistry) *DecisionHandler {
	return &DecisionHandler{mirrors: mirrors}
}

// Create は新しい意思決定を作成する。
// POST /decisions
func (h *DecisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := decisionInputFromForm(r)
	if !ok {
		h.redirect(w, r, "Title and category are required.")
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	mirror := h.mirrors.Get(sess.ID, sess.Token)

	if _, err := mirror.Create(r.Context(), input); err != nil {
		slog.Warn("failed to create decision", slog.String("error", err.Error()))
		h.redirect(w, r, model.UserMessage(err, "Could not create the decision."))
		return
	}
	h.redirect(w, r, "")
}

// Update は既存の意思決定を更新する。
// POST /decisions/{id}
func (h *DecisionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	input, ok := decisionInputFromForm(r)
	if !ok {
		h.redirect(w, r, "Title and category are required.")
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	mirror := h.mirrors.Get(sess.ID, sess.Token)

	if _, err := mirror.Update(r.Context(), id, input); err != nil {
		slog.Warn("failed to update decision",
			slog.String("decision_id", id),
			slog.String("error", err.Error()),
		)
		h.redirect(w, r, model.UserMessage(err, "Could not update the decision."))
		return
	}
	h.redirect(w, r, "")
}

// Delete は意思決定を削除する。
// POST /decisions/{id}/delete
func (h *DecisionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess := middleware.SessionFromContext(r.Context())
	mirror := h.mirrors.Get(sess.ID, sess.Token)

	if err := mirror.Delete(r.Context(), id); err != nil {
		slog.Warn("failed to delete decision",
			slog.String("decision_id", id),
			slog.String("error", err.Error()),
		)
		h.redirect(w, r, model.UserMessage(err, "Could not delete the decision."))
		return
	}
	h.redirect(w, r, "")
}

// decisionInputFromForm はフォーム値から入力を組み立てる。
// 必須フィールドが欠けている場合はfalseを返す。
func decisionInputFromForm(r *http.Request) (model.DecisionInput, bool) {
	input := model.DecisionInput{
		Title:       r.PostFormValue("title"),
		Category:    r.PostFormValue("category"),
		Priority:    r.PostFormValue("priority"),
		Status:      r.PostFormValue("status"),
		Description: r.PostFormValue("description"),
	}
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}
	if input.Status == "" {
		input.Status = "Pending"
	}
	if input.Title == "" || input.Category == "" {
		return model.DecisionInput{}, false
	}
	return input, true
}

// redirect はダッシュボードへ転送する。エラーメッセージがあればクエリで渡す。
func (h *DecisionHandler) redirect(w http.ResponseWriter, r *http.Request, flash string) {
	target := "/dashboard"
	if flash != "" {
		target += "?error=" + url.QueryEscape(flash)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
