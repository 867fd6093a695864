package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mael/cinetrack/internal/model"
)

// PostgresInteractionRepo はPostgreSQLを使用したユーザー・映画関係リポジトリ。
type PostgresInteractionRepo struct {
	db *sql.DB
}

// NewPostgresInteractionRepo はPostgresInteractionRepoを生成する。
func NewPostgresInteractionRepo(db *sql.DB) *PostgresInteractionRepo {
	return &PostgresInteractionRepo{db: db}
}

const interactionColumns = `id, user_id, movie_id, followed, watched, rating, created_at, updated_at`

func scanInteraction(row *sql.Row) (*model.Interaction, error) {
	in := &model.Interaction{}
	err := row.Scan(
		&in.ID, &in.UserID, &in.MovieID,
		&in.Followed, &in.Watched, &in.Rating,
		&in.CreatedAt, &in.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan interaction: %w", err)
	}
	return in, nil
}

// FindByUserAndMovie はユーザーIDと映画IDで関係を検索する。見つからない場合はnilを返す。
func (r *PostgresInteractionRepo) FindByUserAndMovie(ctx context.Context, userID, movieID string) (*model.Interaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+interactionColumns+` FROM interactions WHERE user_id = $1 AND movie_id = $2`,
		userID, movieID,
	)
	return scanInteraction(row)
}

// Create は関係を作成する。
func (r *PostgresInteractionRepo) Create(ctx context.Context, interaction *model.Interaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO interactions (id, user_id, movie_id, followed, watched, rating, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		interaction.ID, interaction.UserID, interaction.MovieID,
		interaction.Followed, interaction.Watched, interaction.Rating,
		interaction.CreatedAt, interaction.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

// UpdatePartial はwatched/followed/ratingを部分更新して更新後の行を返す。
// nilのフィールドは変更せず、既存の値を維持する（COALESCEによる部分更新）。
// 対象が存在しない場合はnilを返す。
func (r *PostgresInteractionRepo) UpdatePartial(ctx context.Context, userID, movieID string, watched, followed *bool, rating *int) (*model.Interaction, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE interactions
		 SET watched = COALESCE($3, watched),
		     followed = COALESCE($4, followed),
		     rating = COALESCE($5, rating),
		     updated_at = $6
		 WHERE user_id = $1 AND movie_id = $2
		 RETURNING `+interactionColumns,
		userID, movieID, watched, followed, rating, time.Now(),
	)
	return scanInteraction(row)
}

// compile-time interface check
var _ InteractionRepository = (*PostgresInteractionRepo)(nil)
