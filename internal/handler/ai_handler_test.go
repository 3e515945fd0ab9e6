package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/kimeru/internal/middleware"
	"github.com/hitoshi/kimeru/internal/model"
)

type mockAdvisor struct {
	strategyFn func(ctx context.Context, token string, decisions []*model.Decision) (string, error)
	chatFn     func(ctx context.Context, token string, messages []model.ChatMessage, initialAdvice string, decisions []*model.Decision) (string, error)
}

func (m *mockAdvisor) GenerateStrategy(ctx context.Context, token string, decisions []*model.Decision) (string, error) {
	return m.strategyFn(ctx, token, decisions)
}
func (m *mockAdvisor) Chat(ctx context.Context, token string, messages []model.ChatMessage, initialAdvice string, decisions []*model.Decision) (string, error) {
	return m.chatFn(ctx, token, messages, initialAdvice, decisions)
}

func authedJSON(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.ContextWithSession(req.Context(), &model.Session{ID: "sess-1", Token: "tok"})
	return req.WithContext(ctx)
}

func TestAIStrategy(t *testing.T) {
	t.Run("アドバイスをJSONで返す", func(t *testing.T) {
		advisor := &mockAdvisor{
			strategyFn: func(ctx context.Context, token string, decisions []*model.Decision) (string, error) {
				return "<p>advice</p>", nil
			},
		}
		h := NewAIHandler(advisor, testRegistry(&mockEntityAPI{}), noopMetrics{})

		rec := httptest.NewRecorder()
		h.Strategy(rec, authedJSON("/api/ai/strategy", ""))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["advice"] != "<p>advice</p>" {
			t.Errorf("advice = %q", body["advice"])
		}
	})

	t.Run("AI失敗は統一エラーフォーマットで返す", func(t *testing.T) {
		advisor := &mockAdvisor{
			strategyFn: func(ctx context.Context, token string, decisions []*model.Decision) (string, error) {
				return "", model.NewBackendError(502, "AI service unavailable")
			},
		}
		h := NewAIHandler(advisor, testRegistry(&mockEntityAPI{}), noopMetrics{})

		rec := httptest.NewRecorder()
		h.Strategy(rec, authedJSON("/api/ai/strategy", ""))

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", rec.Code)
		}
		var body middleware.ErrorResponseBody
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Code != model.ErrCodeBackendError {
			t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeBackendError)
		}
	})
}

func TestAIChat(t *testing.T) {
	t.Run("返信をJSONで返す", func(t *testing.T) {
		advisor := &mockAdvisor{
			chatFn: func(ctx context.Context, token string, messages []model.ChatMessage, initialAdvice string, decisions []*model.Decision) (string, error) {
				if len(messages) != 1 || messages[0].Content != "hello" {
					t.Errorf("messages = %+v", messages)
				}
				if initialAdvice != "prior advice" {
					t.Errorf("initialAdvice = %q", initialAdvice)
				}
				return "hi there", nil
			},
		}
		h := NewAIHandler(advisor, testRegistry(&mockEntityAPI{}), noopMetrics{})

		rec := httptest.NewRecorder()
		h.Chat(rec, authedJSON("/api/ai/chat",
			`{"messages":[{"role":"user","content":"hello"}],"initialAdvice":"prior advice"}`))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body map[string]string
		json.NewDecoder(rec.Body).Decode(&body)
		if body["reply"] != "hi there" {
			t.Errorf("reply = %q", body["reply"])
		}
	})

	t.Run("空のメッセージ履歴は400を返す", func(t *testing.T) {
		h := NewAIHandler(&mockAdvisor{}, testRegistry(&mockEntityAPI{}), noopMetrics{})

		rec := httptest.NewRecorder()
		h.Chat(rec, authedJSON("/api/ai/chat", `{"messages":[]}`))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("不正なボディは400を返す", func(t *testing.T) {
		h := NewAIHandler(&mockAdvisor{}, testRegistry(&mockEntityAPI{}), noopMetrics{})

		rec := httptest.NewRecorder()
		h.Chat(rec, authedJSON("/api/ai/chat", `not json`))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
