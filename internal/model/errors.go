// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, network, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeImageTooLarge      = "IMAGE_TOO_LARGE"
	ErrCodeDecisionNotFound   = "DECISION_NOT_FOUND"
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeBackendError       = "BACKEND_ERROR"
)

// NewAuthFailedError はログイン・登録失敗エラーを生成する。
// バックエンドのメッセージがある場合はそれを表示し、ない場合は汎用文言を使う。
func NewAuthFailedError(message string) *APIError {
	if message == "" {
		message = "Invalid credentials"
	}
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  message,
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認して、再度お試しください。",
	}
}

// NewUnauthorizedError はトークン無効・期限切れエラーを生成する。
// 認証済みデータ呼び出しでの401はセッション破棄のトリガーになる。
func NewUnauthorizedError(message string) *APIError {
	if message == "" {
		message = "セッションの有効期限が切れました。"
	}
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewValidationError はクライアント側の事前条件違反エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewImageTooLargeError は画像サイズ超過エラーを生成する。
// このエラーが返る場合、アップロードリクエストは送信されていない。
func NewImageTooLargeError(size, limit int64) *APIError {
	return &APIError{
		Code:     ErrCodeImageTooLarge,
		Message:  fmt.Sprintf("画像サイズが上限を超えています: %dバイト（上限 %dバイト）", size, limit),
		Category: "validation",
		Action:   "2MB以下の画像を選択してください。",
	}
}

// NewDecisionNotFoundError は意思決定未検出エラーを生成する。
func NewDecisionNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeDecisionNotFound,
		Message:  fmt.Sprintf("指定された意思決定が見つかりません: %s", id),
		Category: "validation",
		Action:   "一覧を再読み込みして最新の状態を確認してください。",
	}
}

// NewBackendUnreachableError はバックエンドへの到達失敗エラーを生成する。
func NewBackendUnreachableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBackendUnreachable,
		Message:  fmt.Sprintf("バックエンドAPIに接続できませんでした: %s", reason),
		Category: "network",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewBackendError はバックエンドの非2xx応答エラーを生成する。
// バックエンドのメッセージがある場合はそれを表示する。
func NewBackendError(status int, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("バックエンドAPIがステータス %d を返しました。", status)
	}
	return &APIError{
		Code:     ErrCodeBackendError,
		Message:  message,
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// IsUnauthorized はエラーが401（トークン無効）由来かを判定する。
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}

// IsAuthError は認証系エラー（ログイン失敗またはトークン無効）かを判定する。
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category == "auth"
	}
	return false
}

// IsValidationError はバリデーション系エラーかを判定する。
func IsValidationError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category == "validation"
	}
	return false
}

// IsNotFound は意思決定未検出エラーかを判定する。
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeDecisionNotFound)
}

// UserMessage はエラーからユーザー表示用メッセージを取り出す。
// APIError以外のエラーにはフォールバック文言を返す。
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return fallback
}

func hasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
