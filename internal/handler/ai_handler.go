package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kimeru/internal/middleware"
	"github.com/hitoshi/kimeru/internal/model"
)

// AdvisorServiceInterface はAIハンドラーが必要とするアドバイザーのインターフェース。
type AdvisorServiceInterface interface {
	GenerateStrategy(ctx context.Context, token string, decisions []*model.Decision) (string, error)
	Chat(ctx context.Context, token string, messages []model.ChatMessage, initialAdvice string, decisions []*model.Decision) (string, error)
}

// AIMetrics はAIハンドラーが記録するメトリクスの部分集合。
type AIMetrics interface {
	RecordAIRequest(kind string)
}

// AIHandler はAIアドバイザーのJSONエンドポイント。
type AIHandler struct {
	advisor AdvisorServiceInterface
	mirrors MirrorRegistry
	metrics AIMetrics
}

// NewAIHandler はAIHandlerを生成する。
func NewAIHandler(advisor AdvisorServiceInterface, mirrors MirrorRegistry, metrics AIMetrics) *AIHandler {
	return &AIHandler{
		advisor: advisor,
		mirrors: mirrors,
		metrics: metrics,
	}
}

// Strategy は現在の意思決定コレクションに対する戦略アドバイスを返す。
// POST /api/ai/strategy
// レスポンス: {"advice": "..."}
func (h *AIHandler) Strategy(w http.ResponseWriter, r *http.Request) {
	h.metrics.RecordAIRequest("strategy")

	sess := middleware.SessionFromContext(r.Context())
	mirror := h.mirrors.Get(sess.ID, sess.Token)

	if err := mirror.Refresh(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	advice, err := h.advisor.GenerateStrategy(r.Context(), sess.Token, mirror.Decisions())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"advice": advice})
}

// chatRequest はチャットエンドポイントのリクエストボディ。
type chatRequest struct {
	Messages      []model.ChatMessage `json:"messages"`
	InitialAdvice string              `json:"initialAdvice"`
}

// Chat は会話履歴に対するAIの返信を返す。
// POST /api/ai/chat
// レスポンス: {"reply": "..."}
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	h.metrics.RecordAIRequest("chat")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body"))
		return
	}
	if len(req.Messages) == 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Messages are required"))
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	mirror := h.mirrors.Get(sess.ID, sess.Token)

	reply, err := h.advisor.Chat(r.Context(), sess.Token, req.Messages, req.InitialAdvice, mirror.Decisions())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"reply": reply})
}

// writeError はエラーを統一フォーマットのJSONで返す。
func (h *AIHandler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	status := http.StatusBadGateway
	switch {
	case model.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case model.IsValidationError(err):
		status = http.StatusBadRequest
	}

	if !errors.As(err, &apiErr) {
		slog.Error("unexpected error in AI handler", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	middleware.WriteErrorResponse(w, status, apiErr)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
