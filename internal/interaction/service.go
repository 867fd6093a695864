// Package interaction はユーザーと映画の関係（視聴・フォロー・評価）を管理する。
package interaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mael/cinetrack/internal/model"
	"github.com/mael/cinetrack/internal/repository"
	"github.com/mael/cinetrack/internal/tmdb"
)

// MovieResolver は映画キャッシュの解決に必要なインターフェース。
// movie.Serviceの部分集合として定義する。
type MovieResolver interface {
	Resolve(ctx context.Context, tmdbID int64) (*model.Movie, error)
}

// CatalogSearcher は検索・ディスカバーに必要なインターフェース。
// tmdb.Clientの部分集合として定義する。
type CatalogSearcher interface {
	SearchMovies(ctx context.Context, query string, year int) ([]tmdb.MovieResult, error)
	DiscoverMovies(ctx context.Context, p tmdb.DiscoverParams) ([]tmdb.MovieResult, error)
}

// UpdateParams は関係の部分更新パラメータ。nilのフィールドは変更しない。
type UpdateParams struct {
	Watched  *bool
	Followed *bool
	Rating   *int
}

// Service はユーザー・映画関係のビジネスロジックを提供する。
type Service struct {
	interactionRepo repository.InteractionRepository
	movies          MovieResolver
	catalog         CatalogSearcher
	ratingMax       int
	logger          *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	interactionRepo repository.InteractionRepository,
	movies MovieResolver,
	catalog CatalogSearcher,
	ratingMax int,
	logger *slog.Logger,
) *Service {
	return &Service{
		interactionRepo: interactionRepo,
		movies:          movies,
		catalog:         catalog,
		ratingMax:       ratingMax,
		logger:          logger,
	}
}

// FindOrCreate はユーザーと映画の関係を返す。映画が未キャッシュなら作成し、
// 関係が存在しなければ既定値（未視聴・未フォロー・未評価）で作成する。
// 返される関係のMovieフィールドは常に設定される。
func (s *Service) FindOrCreate(ctx context.Context, userID string, tmdbID int64) (*model.Interaction, error) {
	movie, err := s.movies.Resolve(ctx, tmdbID)
	if err != nil {
		return nil, err
	}

	existing, err := s.interactionRepo.FindByUserAndMovie(ctx, userID, movie.ID)
	if err != nil {
		return nil, model.NewStorageError()
	}
	if existing != nil {
		existing.Movie = movie
		return existing, nil
	}

	now := time.Now()
	interaction := &model.Interaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		MovieID:   movie.ID,
		Followed:  false,
		Watched:   false,
		Rating:    model.RatingUnset,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.interactionRepo.Create(ctx, interaction); err != nil {
		// (user_id, movie_id) の作成競合は先勝ちの行を採用する
		if repository.IsUniqueViolation(err) {
			winner, findErr := s.interactionRepo.FindByUserAndMovie(ctx, userID, movie.ID)
			if findErr != nil || winner == nil {
				return nil, model.NewStorageError()
			}
			winner.Movie = movie
			return winner, nil
		}
		return nil, model.NewStorageError()
	}

	interaction.Movie = movie
	return interaction, nil
}

// Update は関係のwatched/followed/ratingを部分更新する。
// nilのフィールドは変更されない。評価は-1（未評価）から上限までの範囲で検証する。
func (s *Service) Update(ctx context.Context, userID string, tmdbID int64, params UpdateParams) (*model.Interaction, error) {
	if params.Rating != nil {
		if *params.Rating < model.RatingUnset || *params.Rating > s.ratingMax {
			return nil, model.NewInvalidRatingError(*params.Rating, s.ratingMax)
		}
	}

	// 関係が未作成の場合に備えて先に既定値で作成する
	base, err := s.FindOrCreate(ctx, userID, tmdbID)
	if err != nil {
		return nil, err
	}

	updated, err := s.interactionRepo.UpdatePartial(ctx, userID, base.MovieID, params.Watched, params.Followed, params.Rating)
	if err != nil {
		return nil, model.NewStorageError()
	}
	if updated == nil {
		return nil, model.NewStorageError()
	}

	updated.Movie = base.Movie
	s.logger.Info("interaction updated",
		slog.String("user_id", userID),
		slog.Int64("tmdb_id", tmdbID),
	)

	return updated, nil
}

// Search はリモートカタログを検索し、結果の各映画をユーザーの関係として返す。
// 結果はリモートの並び順を維持し、1件でも失敗すると全体が失敗する。
func (s *Service) Search(ctx context.Context, userID, query string, year int) ([]*model.Interaction, error) {
	results, err := s.catalog.SearchMovies(ctx, query, year)
	if err != nil {
		return nil, model.NewMovieFetchFailedError(0)
	}

	return s.mapResults(ctx, userID, results)
}

// Discover は条件に合う映画をリモートカタログから探し、ユーザーの関係として返す。
func (s *Service) Discover(ctx context.Context, userID string, params tmdb.DiscoverParams) ([]*model.Interaction, error) {
	results, err := s.catalog.DiscoverMovies(ctx, params)
	if err != nil {
		return nil, model.NewMovieFetchFailedError(0)
	}

	return s.mapResults(ctx, userID, results)
}

// mapResults はリモートの結果一覧を順序を保ったまま関係一覧へ変換する。
func (s *Service) mapResults(ctx context.Context, userID string, results []tmdb.MovieResult) ([]*model.Interaction, error) {
	interactions := make([]*model.Interaction, 0, len(results))
	for _, result := range results {
		interaction, err := s.FindOrCreate(ctx, userID, result.ID)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, interaction)
	}
	return interactions, nil
}
