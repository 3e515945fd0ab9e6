// Package backend はDecision IntelバックエンドAPIのHTTPクライアントを提供する。
// すべての認証付き呼び出しにAuthorization: Bearerヘッダーを付与し、
// 非2xx応答を統一エラーフォーマット（model.APIError）へ変換する。
// リトライは行わない。失敗はその試行で終端し、再実行は呼び出し元の操作に委ねる。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/kimeru/internal/model"
)

const userAgent = "Kimeru/1.0 Decision Intel Frontend"

// maxErrorBodySize はエラーレスポンスボディの最大読み取りサイズ。
const maxErrorBodySize = 64 * 1024

// MetricsRecorder はバックエンド呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordBackendRequest(operation string, statusCode int, duration time.Duration)
}

// errorMapper は非2xxステータスとバックエンド付与メッセージをエラーへ変換する。
// メッセージはバックエンドのボディに {"message": ...} があった場合のみ非空。
type errorMapper func(statusCode int, backendMessage string) error

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    MetricsRecorder // nilの場合は記録しない
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLは末尾スラッシュなしのバックエンドAPIのベースURLを指定する。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// SetMetrics はメトリクスレコーダーを設定する。
func (c *Client) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// BaseURL はバックエンドAPIのベースURLを返す。
// OAuthエントリポイントへのブラウザリダイレクト構築に使用する。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthResult は認証エンドポイントの応答を表す。
// バックエンドは {token, ...ユーザーフィールド} のフラットなJSONを返す。
type AuthResult struct {
	Token string `json:"token"`
	model.UserProfile
}

// Login は資格情報によるログインを行う。
// 失敗時はバックエンドのメッセージ（なければ"Invalid credentials"）を持つ
// AuthErrorを返す。リトライは行わない。
// POST /api/auth/login
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	payload := map[string]string{"email": email, "password": password}

	var result AuthResult
	if err := c.doJSON(ctx, "login", http.MethodPost, "/api/auth/login", "", payload, &result, authErrMap); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register は新規ユーザー登録を行う。
// 重複メールアドレス等のバリデーション失敗はバックエンドのメッセージをそのまま返す。
// POST /api/auth/register
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	payload := map[string]string{"name": name, "email": email, "password": password}

	var result AuthResult
	if err := c.doJSON(ctx, "register", http.MethodPost, "/api/auth/register", "", payload, &result, authErrMap); err != nil {
		return nil, err
	}
	return &result, nil
}

// Me はベアラートークンに対応するユーザープロフィールを取得する。
// GET /api/auth/me
func (c *Client) Me(ctx context.Context, token string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := c.doJSON(ctx, "me", http.MethodGet, "/api/auth/me", token, nil, &user, dataErrMap); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListDecisions は意思決定の全件スナップショットを取得する。
// ページネーションはなく、バックエンドは常に完全な集合を新しい順で返す。
// GET /api/entity
func (c *Client) ListDecisions(ctx context.Context, token string) ([]*model.Decision, error) {
	var decisions []*model.Decision
	if err := c.doJSON(ctx, "list_decisions", http.MethodGet, "/api/entity", token, nil, &decisions, dataErrMap); err != nil {
		return nil, err
	}
	return decisions, nil
}

// CreateDecision は意思決定を作成し、サーバー正規化済みのレコードを返す。
// POST /api/entity
func (c *Client) CreateDecision(ctx context.Context, token string, input model.DecisionInput) (*model.Decision, error) {
	var created model.Decision
	if err := c.doJSON(ctx, "create_decision", http.MethodPost, "/api/entity", token, input, &created, dataErrMap); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDecision は意思決定を更新し、更新後のレコードを返す。
// バックエンドがIDを認識しない場合はDECISION_NOT_FOUNDを返す。
// PUT /api/entity/:id
func (c *Client) UpdateDecision(ctx context.Context, token, id string, input model.DecisionInput) (*model.Decision, error) {
	var updated model.Decision
	if err := c.doJSON(ctx, "update_decision", http.MethodPut, "/api/entity/"+id, token, input, &updated, entityErrMap(id)); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteDecision は意思決定を削除する。クライアント側での取り消しはできない。
// DELETE /api/entity/:id
func (c *Client) DeleteDecision(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, "delete_decision", http.MethodDelete, "/api/entity/"+id, token, nil, nil, entityErrMap(id))
}

// ListActivityLog は活動ログの全件スナップショットを取得する。
// GET /api/logs
func (c *Client) ListActivityLog(ctx context.Context, token string) ([]*model.ActivityLogEntry, error) {
	var logs []*model.ActivityLogEntry
	if err := c.doJSON(ctx, "list_logs", http.MethodGet, "/api/logs", token, nil, &logs, dataErrMap); err != nil {
		return nil, err
	}
	return logs, nil
}

// ProfileInput はプロフィール更新リクエストのフィールドを表す。
type ProfileInput struct {
	ProfileImage string `json:"profileImage,omitempty"`
	Education    string `json:"education,omitempty"`
	Skills       string `json:"skills,omitempty"`
	CareerGoals  string `json:"careerGoals,omitempty"`
}

// UpdateProfile はプロフィールを更新し、サーバーが返した部分レスポンスを返す。
// 呼び出し元が既存プロフィールへのマージ（last-write-wins）を行う。
// PUT /api/user/profile
func (c *Client) UpdateProfile(ctx context.Context, token string, input ProfileInput) (*model.UserProfile, error) {
	var updated model.UserProfile
	if err := c.doJSON(ctx, "update_profile", http.MethodPut, "/api/user/profile", token, input, &updated, dataErrMap); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UploadProfileImage はプロフィール画像をmultipartでアップロードし、
// 保存先の画像URLを返す。サイズ上限チェックは呼び出し元（セッションストア）が行う。
// POST /api/user/profile/upload-image
func (c *Client) UploadProfileImage(ctx context.Context, token, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("multipartフォームの作成に失敗しました: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("画像データの書き込みに失敗しました: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("multipartフォームのクローズに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/user/profile/upload-image", &buf)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setCommonHeaders(req, token)

	resp, err := c.send("upload_profile_image", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkStatus("upload_profile_image", resp, dataErrMap); err != nil {
		return "", err
	}

	var result struct {
		ProfileImage string `json:"profileImage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return result.ProfileImage, nil
}

// DeleteAccount はアカウントを完全に削除する。取り消しはできない。
// DELETE /api/user/account
func (c *Client) DeleteAccount(ctx context.Context, token string) error {
	return c.doJSON(ctx, "delete_account", http.MethodDelete, "/api/user/account", token, nil, nil, dataErrMap)
}

// AnalyzeEntity はAI分析リクエストに含める意思決定スナップショット。
// バックエンドのAIプロンプト仕様に合わせ、フィールド名は大文字始まり。
type AnalyzeEntity struct {
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Category    string `json:"Category"`
	Status      string `json:"Status"`
}

// Analyze は意思決定セット全体に対する戦略アドバイスを生成する。
// POST /api/ai/analyze
func (c *Client) Analyze(ctx context.Context, token string, entities []AnalyzeEntity) (string, error) {
	payload := map[string]any{"entities": entities}

	var result struct {
		Advice string `json:"advice"`
	}
	if err := c.doJSON(ctx, "ai_analyze", http.MethodPost, "/api/ai/analyze", token, payload, &result, dataErrMap); err != nil {
		return "", err
	}
	return result.Advice, nil
}

// ChatContext はAIチャットに渡す文脈情報。
type ChatContext struct {
	InitialAdvice    string `json:"initialAdvice"`
	DecisionsContext string `json:"decisionsContext"`
}

// Chat は会話履歴と文脈を渡してAIの応答を取得する。
// 会話の状態はサーバー側に持たず、毎回全履歴を送る。
// POST /api/ai/chat
func (c *Client) Chat(ctx context.Context, token string, messages []model.ChatMessage, chatCtx ChatContext) (string, error) {
	payload := map[string]any{
		"messages": messages,
		"context":  chatCtx,
	}

	var result struct {
		Reply string `json:"reply"`
	}
	if err := c.doJSON(ctx, "ai_chat", http.MethodPost, "/api/ai/chat", token, payload, &result, dataErrMap); err != nil {
		return "", err
	}
	return result.Reply, nil
}

// doJSON はJSONリクエストを送信し、成功時はoutへデコードする。
// outがnilの場合はレスポンスボディを破棄する。
func (c *Client) doJSON(ctx context.Context, operation, method, path, token string, payload, out any, errMap errorMapper) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	setCommonHeaders(req, token)

	resp, err := c.send(operation, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(operation, resp, errMap); err != nil {
		return err
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// send はリクエストを実行し、トランスポート失敗をNetworkErrorへ変換する。
func (c *Client) send(operation string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		if c.metrics != nil {
			c.metrics.RecordBackendRequest(operation, 0, duration)
		}
		return nil, model.NewBackendUnreachableError(err.Error())
	}

	if c.metrics != nil {
		c.metrics.RecordBackendRequest(operation, resp.StatusCode, duration)
	}
	return resp, nil
}

// checkStatus は非2xx応答をerrMapでエラーへ変換する。呼び出し元でボディは未消費であること。
func (c *Client) checkStatus(operation string, resp *http.Response, errMap errorMapper) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	var eb struct {
		Message string `json:"message"`
	}
	// ボディがJSONでない場合はメッセージなしとして扱う
	_ = json.Unmarshal(body, &eb)

	c.logger.Warn("バックエンドAPIがエラーステータスを返しました",
		slog.String("operation", operation),
		slog.Int("http_status", resp.StatusCode),
	)

	return errMap(resp.StatusCode, eb.Message)
}

// setCommonHeaders は全リクエスト共通のヘッダーを設定する。
// X-Request-IDはバックエンド側ログとの突き合わせ用。
func setCommonHeaders(req *http.Request, token string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// authErrMap はログイン・登録エンドポイントのエラーマッピング。
// ここでの401はトークン切れではなく資格情報の誤りを意味するため、
// ステータスによらずAuthErrorへ丸める。
func authErrMap(statusCode int, backendMessage string) error {
	return model.NewAuthFailedError(backendMessage)
}

// dataErrMap は認証済みデータ呼び出しの標準エラーマッピング。
// 401はセッション破棄のトリガーとなるUNAUTHORIZEDへ変換する。
func dataErrMap(statusCode int, backendMessage string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return model.NewUnauthorizedError(backendMessage)
	default:
		return model.NewBackendError(statusCode, backendMessage)
	}
}

// entityErrMap は意思決定単体操作のエラーマッピング。404をNOT_FOUNDへ変換する。
func entityErrMap(id string) errorMapper {
	return func(statusCode int, backendMessage string) error {
		if statusCode == http.StatusNotFound {
			return model.NewDecisionNotFoundError(id)
		}
		return dataErrMap(statusCode, backendMessage)
	}
}
