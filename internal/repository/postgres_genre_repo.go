package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/mael/cinetrack/internal/model"
)

// PostgresGenreRepo はPostgreSQLを使用したジャンルカタログリポジトリ。
type PostgresGenreRepo struct {
	db *sql.DB
}

// NewPostgresGenreRepo はPostgresGenreRepoを生成する。
func NewPostgresGenreRepo(db *sql.DB) *PostgresGenreRepo {
	return &PostgresGenreRepo{db: db}
}

// UpsertAll はジャンル一覧を冪等にUPSERTする。
func (r *PostgresGenreRepo) UpsertAll(ctx context.Context, genres []model.Genre) error {
	if len(genres) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, g := range genres {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO genres (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			g.ID, g.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert genre: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByIDs は指定IDのジャンルを取得する。
func (r *PostgresGenreRepo) ListByIDs(ctx context.Context, ids []int) ([]model.Genre, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM genres WHERE id = ANY($1) ORDER BY id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	var genres []model.Genre
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate genres: %w", err)
	}
	return genres, nil
}

// compile-time interface check
var _ GenreRepository = (*PostgresGenreRepo)(nil)
