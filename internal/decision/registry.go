package decision

import (
	"log/slog"
	"sync"
)

// Registry はセッションIDから意思決定ミラーを引くレジストリ。
// ミラーはセッションごとに1つで、初回アクセス時に遅延生成される。
// ログアウト時にDropで破棄される。
type Registry struct {
	backend BackendEntityAPI
	logger  *slog.Logger

	// onUnauthorized はいずれかのミラーがトークン拒否を検知した際の
	// 通知フック。セッションIDを引数に受け取る。nil可。
	onUnauthorized func(sessionID string)

	mu     sync.Mutex
	stores map[string]*registryEntry
}

type registryEntry struct {
	store *Store
	token string
}

// NewRegistry はRegistryを生成する。
func NewRegistry(backend BackendEntityAPI, logger *slog.Logger) *Registry {
	return &Registry{
		backend: backend,
		logger:  logger,
		stores:  make(map[string]*registryEntry),
	}
}

// SetUnauthorizedHook はトークン拒否時の通知フックを設定する。
// 以降に生成されるミラーに適用される。
func (r *Registry) SetUnauthorizedHook(fn func(sessionID string)) {
	r.onUnauthorized = fn
}

// Get はセッションのミラーを返す。存在しなければ生成する。
// 同じセッションIDでトークンが変わった場合（再ログイン）は、
// 古いミラーを捨てて新しいトークンで作り直す。
func (r *Registry) Get(sessionID, token string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.stores[sessionID]; ok && entry.token == token {
		return entry.store
	}

	store := NewStore(r.backend, token, r.logger)
	if r.onUnauthorized != nil {
		id := sessionID
		store.SetUnauthorizedHook(func() { r.onUnauthorized(id) })
	}
	r.stores[sessionID] = &registryEntry{store: store, token: token}
	return store
}

// Drop はセッションのミラーを破棄する。未登録IDに対しては何もしない。
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, sessionID)
}

// Len は現在保持しているミラー数を返す。監視用。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
