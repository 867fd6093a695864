package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mael/cinetrack/internal/model"
)

// PostgresMovieRepo はPostgreSQLを使用した映画キャッシュリポジトリ。
type PostgresMovieRepo struct {
	db *sql.DB
}

// NewPostgresMovieRepo はPostgresMovieRepoを生成する。
func NewPostgresMovieRepo(db *sql.DB) *PostgresMovieRepo {
	return &PostgresMovieRepo{db: db}
}

const movieColumns = `id, tmdb_id, imdb_id, title, release_date, original_language, plot,
	backdrop_path, backdrop_color, poster_path, poster_color, created_at, updated_at`

// scanMovie は1行をMovieに復元する。ジャンルは含まない。
func (r *PostgresMovieRepo) scanMovie(row *sql.Row) (*model.Movie, error) {
	movie := &model.Movie{}
	var releaseDate sql.NullTime
	var backdropColor, posterColor sql.NullString

	err := row.Scan(
		&movie.ID, &movie.TmdbID, &movie.ImdbID, &movie.Title,
		&releaseDate, &movie.OriginalLanguage, &movie.Plot,
		&movie.Backdrop.Path, &backdropColor,
		&movie.Poster.Path, &posterColor,
		&movie.CreatedAt, &movie.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan movie: %w", err)
	}

	if releaseDate.Valid {
		movie.ReleaseDate = &releaseDate.Time
	}
	if backdropColor.Valid {
		movie.Backdrop.Color = &backdropColor.String
	}
	if posterColor.Valid {
		movie.Poster.Color = &posterColor.String
	}
	return movie, nil
}

// loadGenres は映画のジャンル一覧を読み込む。
func (r *PostgresMovieRepo) loadGenres(ctx context.Context, movieID string) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT genre_id, name FROM movie_genres WHERE movie_id = $1 ORDER BY genre_id`,
		movieID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query movie genres: %w", err)
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

// FindByTmdbID は外部カタログIDで映画を取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByTmdbID(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE tmdb_id = $1`,
		tmdbID,
	)
	movie, err := r.scanMovie(row)
	if err != nil || movie == nil {
		return movie, err
	}

	movie.Genres, err = r.loadGenres(ctx, movie.ID)
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// FindByID は指定IDの映画を取得する。見つからない場合はnilを返す。
func (r *PostgresMovieRepo) FindByID(ctx context.Context, id string) (*model.Movie, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`,
		id,
	)
	movie, err := r.scanMovie(row)
	if err != nil || movie == nil {
		return movie, err
	}

	movie.Genres, err = r.loadGenres(ctx, movie.ID)
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// Create は映画とそのジャンルを同一トランザクションで作成する。
// tmdb_idの重複時はユニーク制約違反を返す（呼び出し元がIsUniqueViolationで判定する）。
func (r *PostgresMovieRepo) Create(ctx context.Context, movie *model.Movie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var releaseDate sql.NullTime
	if movie.ReleaseDate != nil {
		releaseDate = sql.NullTime{Time: *movie.ReleaseDate, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO movies (id, tmdb_id, imdb_id, title, release_date, original_language, plot,
		                     backdrop_path, backdrop_color, poster_path, poster_color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		movie.ID, movie.TmdbID, movie.ImdbID, movie.Title,
		releaseDate, movie.OriginalLanguage, movie.Plot,
		movie.Backdrop.Path, movie.Backdrop.Color,
		movie.Poster.Path, movie.Poster.Color,
		movie.CreatedAt, movie.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}

	for _, g := range movie.Genres {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO movie_genres (movie_id, genre_id, name) VALUES ($1, $2, $3)`,
			movie.ID, g.ID, g.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert movie genre: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ MovieRepository = (*PostgresMovieRepo)(nil)
