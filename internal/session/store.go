// Package session はログインセッションの管理を提供する。
// トークンとユーザープロフィールを一体で永続ストアに保持し、
// ログイン・ログアウト・再検証（rehydrate）のライフサイクルを担う。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/kimeru/internal/backend"
	"github.com/hitoshi/kimeru/internal/model"
	"github.com/hitoshi/kimeru/internal/repository"
)

// BackendAuthAPI はセッションストアが必要とするバックエンドAPIの部分集合。
type BackendAuthAPI interface {
	Login(ctx context.Context, email, password string) (*backend.AuthResult, error)
	Register(ctx context.Context, name, email, password string) (*backend.AuthResult, error)
	Me(ctx context.Context, token string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, token string, input backend.ProfileInput) (*model.UserProfile, error)
	UploadProfileImage(ctx context.Context, token, filename string, data []byte) (string, error)
	DeleteAccount(ctx context.Context, token string) error
}

// StoreConfig はセッションストアの設定。
type StoreConfig struct {
	SessionMaxAge time.Duration // セッション有効期間
	MaxImageSize  int64         // プロフィール画像の上限サイズ（バイト）
}

// Store はセッションストア。
// 状態遷移は Anonymous → Authenticating → Authenticated → Anonymous。
// Authenticating中の二重送信の抑止はUI側の責務であり、ストアは直列化しない。
type Store struct {
	backend  BackendAuthAPI
	sessions repository.SessionRepository
	config   StoreConfig
	logger   *slog.Logger

	// onLogout はセッション破棄時に依存ストア（意思決定ミラー）の
	// クリアを通知するフック。nil可。
	onLogout func(sessionID string)
}

// NewStore はStoreを生成する。
func NewStore(
	backendAPI BackendAuthAPI,
	sessions repository.SessionRepository,
	config StoreConfig,
	logger *slog.Logger,
) *Store {
	return &Store{
		backend:  backendAPI,
		sessions: sessions,
		config:   config,
		logger:   logger,
	}
}

// SetLogoutHook はログアウト時の通知フックを設定する。
func (s *Store) SetLogoutHook(fn func(sessionID string)) {
	s.onLogout = fn
}

// LoginWithCredentials は資格情報でログインし、新しいセッションを発行する。
// 失敗時はAuthErrorを返し、セッションは作成されない。リトライは行わない。
func (s *Store) LoginWithCredentials(ctx context.Context, email, password string) (*model.Session, error) {
	result, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess, err := s.createSession(ctx, result.Token, &result.UserProfile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.String("session_id", sess.ID),
		slog.String("email", result.Email),
	)
	return sess, nil
}

// LoginWithExternalToken は外部OAuthフローが発行したトークンでログインする。
// トークンをコミットする前にプロフィール取得を行い、プロフィールのない
// トークンをUIが観測しないことを保証する。取得失敗時はトークンを破棄する。
func (s *Store) LoginWithExternalToken(ctx context.Context, token string) (*model.Session, error) {
	user, err := s.backend.Me(ctx, token)
	if err != nil {
		s.logger.Warn("external token verification failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewAuthFailedError("Failed to load user profile")
	}

	sess, err := s.createSession(ctx, token, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in via external token",
		slog.String("session_id", sess.ID),
		slog.String("provider", user.AuthProvider),
	)
	return sess, nil
}

// Register は新規登録を行い、ログインと同じ契約でセッションを発行する。
// 重複メールアドレス等のバリデーション失敗はバックエンドのメッセージのまま返す。
func (s *Store) Register(ctx context.Context, name, email, password string) (*model.Session, error) {
	result, err := s.backend.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}

	sess, err := s.createSession(ctx, result.Token, &result.UserProfile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("session_id", sess.ID),
		slog.String("email", result.Email),
	)
	return sess, nil
}

// Logout はセッションを無条件に破棄する。失敗しない。
// 永続ストアの削除エラーはログのみ記録し、依存ストアへのクリア通知は必ず行う。
func (s *Store) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		s.logger.Error("failed to delete session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	if s.onLogout != nil {
		s.onLogout(sessionID)
	}

	s.logger.Info("user logged out", slog.String("session_id", sessionID))
}

// Rehydrate はセッションIDから現在のセッション状態を復元する。
// トークンはあるがユーザーが欠損・破損している場合はプロフィールを再取得し、
// 再取得に失敗した場合（期限切れトークン等）はセッションを破棄してnilを返す。
// 未登録・期限切れIDにはnilを返す（エラーにはしない）。
func (s *Store) Rehydrate(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	if sess.User == nil {
		user, err := s.backend.Me(ctx, sess.Token)
		if err != nil {
			s.logger.Warn("session token verification failed on rehydrate",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			s.Logout(ctx, sessionID)
			return nil, nil
		}

		sess.User = user
		if err := s.sessions.UpdateUser(ctx, sessionID, user); err != nil {
			// 保存失敗は致命ではない。次回のrehydrateで再取得される
			s.logger.Error("failed to persist rehydrated user",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	return sess, nil
}

// UpdateProfile はプロフィールを更新し、サーバー応答を既存値へマージして永続化する。
// マージはlast-write-wins（応答の非ゼロフィールドが勝つ）で、楽観ロックは行わない。
func (s *Store) UpdateProfile(ctx context.Context, sessionID string, input backend.ProfileInput) (*model.UserProfile, error) {
	sess, err := s.requireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	updated, err := s.backend.UpdateProfile(ctx, sess.Token, input)
	if err != nil {
		if model.IsUnauthorized(err) {
			s.Logout(ctx, sessionID)
		}
		return nil, err
	}

	merged := mergeProfile(sess.User, updated)
	if err := s.sessions.UpdateUser(ctx, sessionID, merged); err != nil {
		return nil, fmt.Errorf("failed to persist updated profile: %w", err)
	}
	return merged, nil
}

// UploadProfileImage はプロフィール画像をアップロードし、画像URLを更新する。
// サイズが上限を超える場合はリクエストを送信せず、即座にValidationErrorを返す。
func (s *Store) UploadProfileImage(ctx context.Context, sessionID, filename string, data []byte) (*model.UserProfile, error) {
	if int64(len(data)) > s.config.MaxImageSize {
		return nil, model.NewImageTooLargeError(int64(len(data)), s.config.MaxImageSize)
	}

	sess, err := s.requireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.backend.UploadProfileImage(ctx, sess.Token, filename, data)
	if err != nil {
		if model.IsUnauthorized(err) {
			s.Logout(ctx, sessionID)
		}
		return nil, err
	}

	user := sess.User
	if user == nil {
		user = &model.UserProfile{}
	}
	user.ProfileImage = imageURL

	if err := s.sessions.UpdateUser(ctx, sessionID, user); err != nil {
		return nil, fmt.Errorf("failed to persist profile image: %w", err)
	}
	return user, nil
}

// DeleteAccount はアカウントを完全に削除する。
// 成功時はログアウトする。失敗時はセッションに触れず、エラーを呼び出し元へ伝播する。
func (s *Store) DeleteAccount(ctx context.Context, sessionID string) error {
	sess, err := s.requireSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.backend.DeleteAccount(ctx, sess.Token); err != nil {
		if model.IsUnauthorized(err) {
			s.Logout(ctx, sessionID)
		}
		return err
	}

	s.logger.Info("account deleted", slog.String("session_id", sessionID))
	s.Logout(ctx, sessionID)
	return nil
}

// createSession はセッションを作成し永続化する。
// 有効期限はトークンのexpクレームと設定値の短い方。
func (s *Store) createSession(ctx context.Context, token string, user *model.UserProfile) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	sess := &model.Session{
		ID:        sessionID,
		Token:     token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: sessionExpiry(token, now, s.config.SessionMaxAge),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// requireSession はセッションを取得し、未認証の場合はAuthErrorを返す。
func (s *Store) requireSession(ctx context.Context, sessionID string) (*model.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !sess.Authenticated() {
		return nil, model.NewUnauthorizedError("")
	}
	return sess, nil
}

// mergeProfile はサーバーの部分応答を既存プロフィールへマージする。
// 応答の非ゼロフィールドが既存値を上書きする（last-write-wins）。
func mergeProfile(current, updated *model.UserProfile) *model.UserProfile {
	if current == nil {
		return updated
	}
	if updated == nil {
		return current
	}

	merged := *current
	if updated.ID != "" {
		merged.ID = updated.ID
	}
	if updated.Name != "" {
		merged.Name = updated.Name
	}
	if updated.Username != "" {
		merged.Username = updated.Username
	}
	if updated.Login != "" {
		merged.Login = updated.Login
	}
	if updated.Email != "" {
		merged.Email = updated.Email
	}
	if updated.ProfileImage != "" {
		merged.ProfileImage = updated.ProfileImage
	}
	if updated.Education != "" {
		merged.Education = updated.Education
	}
	if updated.Skills != "" {
		merged.Skills = updated.Skills
	}
	if updated.CareerGoals != "" {
		merged.CareerGoals = updated.CareerGoals
	}
	if updated.AuthProvider != "" {
		merged.AuthProvider = updated.AuthProvider
	}
	return &merged
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
