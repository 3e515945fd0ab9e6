package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/kimeru/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestClient(serverURL string) *Client {
	var buf bytes.Buffer
	return NewClient(&http.Client{Timeout: 5 * time.Second}, serverURL, newTestLogger(&buf))
}

// --- 認証エンドポイント ---

func TestClient_Login_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("パス = %s, want /api/auth/login", r.URL.Path)
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if payload["email"] != "taro@example.com" {
			t.Errorf("email = %q, want taro@example.com", payload["email"])
		}

		// バックエンドは {token, ...ユーザーフィールド} のフラットなJSONを返す
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token": "jwt-token",
			"id":    "user-1",
			"name":  "Taro",
			"email": "taro@example.com",
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	result, err := c.Login(context.Background(), "taro@example.com", "secret")
	if err != nil {
		t.Fatalf("Login がエラーを返した: %v", err)
	}

	if result.Token != "jwt-token" {
		t.Errorf("Token = %q, want jwt-token", result.Token)
	}
	if result.Name != "Taro" {
		t.Errorf("Name = %q, want Taro", result.Name)
	}
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Login(context.Background(), "taro@example.com", "wrong")
	if err == nil {
		t.Fatal("認証失敗時にエラーを返すべき")
	}
	if !model.IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
	// バックエンドのメッセージがそのまま伝播すること
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("error = %v, want Invalid credentials message", err)
	}
}

func TestClient_Me_SendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer my-token" {
			t.Errorf("Authorization = %q, want Bearer my-token", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID ヘッダーが設定されていない")
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "name": "Taro"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	user, err := c.Me(context.Background(), "my-token")
	if err != nil {
		t.Fatalf("Me がエラーを返した: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("ID = %q, want user-1", user.ID)
	}
}

func TestClient_Me_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Me(context.Background(), "expired-token")
	if !model.IsUnauthorized(err) {
		t.Errorf("expected unauthorized error, got %v", err)
	}
}

// --- 意思決定エンドポイント ---

func TestClient_ListDecisions_DecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/entity" {
			t.Errorf("パス = %s, want /api/entity", r.URL.Path)
		}
		// バックエンドのIDフィールドは "_id"
		w.Write([]byte(`[
			{"_id": "d-1", "title": "転職する", "category": "Career", "status": "Pending"},
			{"_id": "d-2", "title": "引っ越し", "category": "Life", "status": "Completed"}
		]`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	decisions, err := c.ListDecisions(context.Background(), "token")
	if err != nil {
		t.Fatalf("ListDecisions がエラーを返した: %v", err)
	}

	if len(decisions) != 2 {
		t.Fatalf("len = %d, want 2", len(decisions))
	}
	if decisions[0].ID != "d-1" {
		t.Errorf("ID = %q, want d-1", decisions[0].ID)
	}
	if decisions[0].Title != "転職する" {
		t.Errorf("Title = %q, want 転職する", decisions[0].Title)
	}
}

func TestClient_UpdateDecision_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.UpdateDecision(context.Background(), "token", "missing", model.DecisionInput{Title: "x"})
	if !model.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestClient_DeleteDecision_UsesDeleteMethod(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.DeleteDecision(context.Background(), "token", "d-1"); err != nil {
		t.Fatalf("DeleteDecision がエラーを返した: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
	if gotPath != "/api/entity/d-1" {
		t.Errorf("path = %s, want /api/entity/d-1", gotPath)
	}
}

// --- AIエンドポイント ---

func TestClient_Analyze_SendsEntities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/analyze" {
			t.Errorf("パス = %s, want /api/ai/analyze", r.URL.Path)
		}
		var payload struct {
			Entities []AnalyzeEntity `json:"entities"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if len(payload.Entities) != 1 || payload.Entities[0].Title != "転職する" {
			t.Errorf("entities = %+v, want 1件（転職する）", payload.Entities)
		}
		json.NewEncoder(w).Encode(map[string]string{"advice": "<p>advice</p>"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	advice, err := c.Analyze(context.Background(), "token", []AnalyzeEntity{
		{Title: "転職する", Category: "Career", Status: "Pending"},
	})
	if err != nil {
		t.Fatalf("Analyze がエラーを返した: %v", err)
	}
	if advice != "<p>advice</p>" {
		t.Errorf("advice = %q, want <p>advice</p>", advice)
	}
}

func TestClient_Chat_SendsMessagesAndContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []model.ChatMessage `json:"messages"`
			Context  ChatContext         `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want 1 user message", payload.Messages)
		}
		if payload.Context.InitialAdvice != "initial" {
			t.Errorf("initialAdvice = %q, want initial", payload.Context.InitialAdvice)
		}
		json.NewEncoder(w).Encode(map[string]string{"reply": "answer"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	reply, err := c.Chat(context.Background(), "token",
		[]model.ChatMessage{{Role: "user", Content: "どう思う？"}},
		ChatContext{InitialAdvice: "initial", DecisionsContext: "Title: x\n"},
	)
	if err != nil {
		t.Fatalf("Chat がエラーを返した: %v", err)
	}
	if reply != "answer" {
		t.Errorf("reply = %q, want answer", reply)
	}
}

// --- エラー変換・メトリクス ---

func TestClient_UnreachableBackend_ReturnsNetworkError(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Me(context.Background(), "token")
	if err == nil {
		t.Fatal("到達不能時にエラーを返すべき")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeBackendUnreachable {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeBackendUnreachable)
	}
}

type recordedRequest struct {
	operation  string
	statusCode int
}

type mockMetrics struct {
	requests []recordedRequest
}

func (m *mockMetrics) RecordBackendRequest(operation string, statusCode int, duration time.Duration) {
	m.requests = append(m.requests, recordedRequest{operation: operation, statusCode: statusCode})
}

func TestClient_RecordsMetricsPerOperation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	m := &mockMetrics{}
	c.SetMetrics(m)

	if _, err := c.Me(context.Background(), "token"); err != nil {
		t.Fatalf("Me がエラーを返した: %v", err)
	}

	if len(m.requests) != 1 {
		t.Fatalf("記録されたリクエスト数 = %d, want 1", len(m.requests))
	}
	if m.requests[0].operation != "me" || m.requests[0].statusCode != 200 {
		t.Errorf("recorded = %+v, want {me 200}", m.requests[0])
	}
}

func TestClient_UploadProfileImage_Multipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %q, want multipart/form-data", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("imageフィールドの取得に失敗: %v", err)
		}
		defer file.Close()
		if header.Filename != "avatar.png" {
			t.Errorf("filename = %q, want avatar.png", header.Filename)
		}
		json.NewEncoder(w).Encode(map[string]string{"profileImage": "https://cdn.example.com/avatar.png"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	url, err := c.UploadProfileImage(context.Background(), "token", "avatar.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("UploadProfileImage がエラーを返した: %v", err)
	}
	if url != "https://cdn.example.com/avatar.png" {
		t.Errorf("url = %q, want https://cdn.example.com/avatar.png", url)
	}
}
