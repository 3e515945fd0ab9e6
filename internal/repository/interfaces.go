// Package repository はセッション永続化のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/kimeru/internal/model"
)

// SessionRepository はセッションの永続ストレージを抽象化する。
// 1セッションにつきトークンとユーザープロフィールの2つのデータを保持する。
// 両者は常に一体で書き込み・削除される。ユーザー側が欠損・破損している場合、
// FindByIDはUser=nilのセッションを返し、呼び出し元が再検証を行う。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。
	// 未登録または期限切れの場合はnilを返す（エラーにはしない）。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// UpdateUser はセッションに紐づくユーザープロフィールを置き換える。
	UpdateUser(ctx context.Context, id string, user *model.UserProfile) error

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
