package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mael/cinetrack/internal/model"
)

// PostgresActivityRepo はPostgreSQLを使用した行動ログリポジトリ。追記専用。
type PostgresActivityRepo struct {
	db *sql.DB
}

// NewPostgresActivityRepo はPostgresActivityRepoを生成する。
func NewPostgresActivityRepo(db *sql.DB) *PostgresActivityRepo {
	return &PostgresActivityRepo{db: db}
}

// Append は行動ログを1件追記する。
func (r *PostgresActivityRepo) Append(ctx context.Context, activity *model.Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, action, tmdb_id, occurred_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		activity.ID, activity.UserID, activity.Action,
		activity.TmdbID, activity.OccurredAt, activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// FindLastByUser はユーザーの最新の行動ログを取得する。存在しない場合はnilを返す。
func (r *PostgresActivityRepo) FindLastByUser(ctx context.Context, userID string) (*model.Activity, error) {
	activity := &model.Activity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, action, tmdb_id, occurred_at, created_at
		 FROM activities WHERE user_id = $1
		 ORDER BY occurred_at DESC, created_at DESC LIMIT 1`,
		userID,
	).Scan(
		&activity.ID, &activity.UserID, &activity.Action,
		&activity.TmdbID, &activity.OccurredAt, &activity.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find last activity: %w", err)
	}
	return activity, nil
}

// compile-time interface check
var _ ActivityRepository = (*PostgresActivityRepo)(nil)
