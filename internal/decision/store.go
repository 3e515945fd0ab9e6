// Package decision は意思決定コレクションのセッション内ミラーを提供する。
// 正本はバックエンドであり、ここでは表示用の作業コピーを保持する。
// 変更操作は先にバックエンドへコミットし、成功した場合のみミラーを更新する。
package decision

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/kimeru/internal/model"
)

// BackendEntityAPI はミラーが必要とするバックエンドAPIの部分集合。
type BackendEntityAPI interface {
	ListDecisions(ctx context.Context, token string) ([]*model.Decision, error)
	CreateDecision(ctx context.Context, token string, input model.DecisionInput) (*model.Decision, error)
	UpdateDecision(ctx context.Context, token, id string, input model.DecisionInput) (*model.Decision, error)
	DeleteDecision(ctx context.Context, token, id string) error
	ListActivityLog(ctx context.Context, token string) ([]*model.ActivityLogEntry, error)
}

// Store は1セッション分の意思決定ミラー。
// すべてのメソッドは並行アクセスに対して安全。
type Store struct {
	backend BackendEntityAPI
	token   string
	logger  *slog.Logger

	// onUnauthorized はバックエンドがトークンを拒否した際の
	// 強制ログアウト通知。nil可。
	onUnauthorized func()

	mu        sync.RWMutex
	decisions []*model.Decision
	logs      []*model.ActivityLogEntry
	lastErr   error
}

// NewStore は指定トークン用のミラーを生成する。
func NewStore(backend BackendEntityAPI, token string, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		token:   token,
		logger:  logger,
	}
}

// SetUnauthorizedHook はトークン拒否時の通知フックを設定する。
func (s *Store) SetUnauthorizedHook(fn func()) {
	s.onUnauthorized = fn
}

// Decisions は現在のミラーのスナップショットを返す。
// 返されるスライスは呼び出し側が自由に扱ってよい。
func (s *Store) Decisions() []*model.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Decision, len(s.decisions))
	copy(out, s.decisions)
	return out
}

// Logs は活動ログのスナップショットを返す。
func (s *Store) Logs() []*model.ActivityLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.ActivityLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// LastError は直近の取得・変更操作のエラーを返す。成功時にクリアされる。
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Refresh はバックエンドから全件を取得し、ミラーを丸ごと置き換える。
// 部分適用はしない。失敗時はミラーを変更せずエラーを記録する。
func (s *Store) Refresh(ctx context.Context) error {
	decisions, err := s.backend.ListDecisions(ctx, s.token)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.decisions = decisions
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// RefreshLogs は活動ログを取得し、丸ごと置き換える。
func (s *Store) RefreshLogs(ctx context.Context) error {
	logs, err := s.backend.ListActivityLog(ctx, s.token)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.logs = logs
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Create は新しい意思決定を作成し、ミラーの先頭に挿入する。
// 作成成功後は活動ログも再取得する。ログ取得の失敗は作成の成功を覆さない。
func (s *Store) Create(ctx context.Context, input model.DecisionInput) (*model.Decision, error) {
	created, err := s.backend.CreateDecision(ctx, s.token, input)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.decisions = append([]*model.Decision{created}, s.decisions...)
	s.lastErr = nil
	s.mu.Unlock()

	s.refreshLogsAfterMutation(ctx)
	return created, nil
}

// Update は既存の意思決定を更新し、ミラー内の同じ位置に反映する。
func (s *Store) Update(ctx context.Context, id string, input model.DecisionInput) (*model.Decision, error) {
	updated, err := s.backend.UpdateDecision(ctx, s.token, id, input)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	for i, d := range s.decisions {
		if d.ID == id {
			s.decisions[i] = updated
			break
		}
	}
	s.lastErr = nil
	s.mu.Unlock()

	s.refreshLogsAfterMutation(ctx)
	return updated, nil
}

// Delete は意思決定を削除し、ミラーからも取り除く。
// 存在しないIDの削除はエラーを返すが、ミラーは変更しない。
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteDecision(ctx, s.token, id); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	for i, d := range s.decisions {
		if d.ID == id {
			s.decisions = append(s.decisions[:i], s.decisions[i+1:]...)
			break
		}
	}
	s.lastErr = nil
	s.mu.Unlock()

	s.refreshLogsAfterMutation(ctx)
	return nil
}

// refreshLogsAfterMutation は変更操作の成功後に活動ログを再取得する。
// 失敗してもlastErrは上書きしない（変更自体は成功しているため）。
func (s *Store) refreshLogsAfterMutation(ctx context.Context) {
	logs, err := s.backend.ListActivityLog(ctx, s.token)
	if err != nil {
		s.logger.Warn("failed to refresh activity log",
			slog.String("error", err.Error()),
		)
		s.handleUnauthorized(err)
		return
	}
	s.mu.Lock()
	s.logs = logs
	s.mu.Unlock()
}

// fail はエラーを記録し、トークン拒否の場合はミラーを空にして
// 強制ログアウトを通知する。
func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	if model.IsUnauthorized(err) {
		s.decisions = nil
		s.logs = nil
	}
	s.mu.Unlock()

	s.handleUnauthorized(err)
	return err
}

func (s *Store) handleUnauthorized(err error) {
	if model.IsUnauthorized(err) && s.onUnauthorized != nil {
		s.onUnauthorized()
	}
}
