package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/kimeru/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	userData, err := marshalUser(session.User)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token, user_data, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.Token, userData, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
// user_dataが破損している場合はUser=nilで返し、再検証は呼び出し元に委ねる。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	var userData []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, user_data, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.Token, &userData, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if len(userData) > 0 {
		var user model.UserProfile
		if err := json.Unmarshal(userData, &user); err != nil {
			// 破損データは欠損と同様に扱い、セッションストアの再検証に任せる
			slog.Warn("session user data is corrupt",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		} else {
			session.User = &user
		}
	}

	return session, nil
}

// UpdateUser はセッションに紐づくユーザープロフィールを置き換える。
func (r *PostgresSessionRepo) UpdateUser(ctx context.Context, id string, user *model.UserProfile) error {
	userData, err := marshalUser(user)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE sessions SET user_data = $2 WHERE id = $1`,
		id, userData,
	)
	if err != nil {
		return fmt.Errorf("failed to update session user: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return count, nil
}

func marshalUser(user *model.UserProfile) ([]byte, error) {
	if user == nil {
		return nil, nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session user: %w", err)
	}
	return data, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
