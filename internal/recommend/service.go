// Package recommend はユーザーの直近の行動に基づくレコメンド選択を提供する。
package recommend

import (
	"context"
	"log/slog"

	"github.com/mael/cinetrack/internal/model"
	"github.com/mael/cinetrack/internal/repository"
	"github.com/mael/cinetrack/internal/tmdb"
)

// InteractionFinder は候補映画を関係として解決するためのインターフェース。
// interaction.Serviceの部分集合として定義する。
type InteractionFinder interface {
	FindOrCreate(ctx context.Context, userID string, tmdbID int64) (*model.Interaction, error)
}

// CatalogRecommender は候補取得に必要なインターフェース。
// tmdb.Clientの部分集合として定義する。
type CatalogRecommender interface {
	GetRecommendations(ctx context.Context, tmdbID int64) ([]tmdb.MovieResult, error)
	GetTrending(ctx context.Context) ([]tmdb.MovieResult, error)
}

// DarkColorSampler は暗色優先のドミナントカラー抽出インターフェース。
// colors.Samplerの部分集合として定義する。
type DarkColorSampler interface {
	SampleDarkColor(ctx context.Context, imageURL string) (string, error)
}

// GenreResolver はジャンルIDから名前を引くインターフェース。
// genre.Serviceの部分集合として定義する。
type GenreResolver interface {
	ResolveNames(ctx context.Context, ids []int) ([]model.Genre, error)
}

// PopularMovie は人気作品一覧の1件。暗色のバックドロップカラーを持つ。
type PopularMovie struct {
	TmdbID   int64
	Title    string
	Overview string
	Backdrop model.Image
	Genres   []string
}

// Service はレコメンド選択のビジネスロジックを提供する。
type Service struct {
	activityRepo repository.ActivityRepository
	interactions InteractionFinder
	catalog      CatalogRecommender
	sampler      DarkColorSampler
	genres       GenreResolver
	maxLimit     int
	logger       *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	activityRepo repository.ActivityRepository,
	interactions InteractionFinder,
	catalog CatalogRecommender,
	sampler DarkColorSampler,
	genres GenreResolver,
	maxLimit int,
	logger *slog.Logger,
) *Service {
	return &Service{
		activityRepo: activityRepo,
		interactions: interactions,
		catalog:      catalog,
		sampler:      sampler,
		genres:       genres,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// Recommend はユーザーへのおすすめ映画を関係の一覧として返す。
// 直近の行動ログがあればその映画の類似作品を、なければトレンド作品を候補にする。
// 類似作品が件数に満たない場合はトレンドで補充し、limit件に切り詰める。
// 視聴済み・フォロー済みの映画も候補から除外しない。
func (s *Service) Recommend(ctx context.Context, userID string, limit int) ([]*model.Interaction, error) {
	limit = s.clampLimit(limit)

	last, err := s.activityRepo.FindLastByUser(ctx, userID)
	if err != nil {
		return nil, model.NewStorageError()
	}

	var candidates []tmdb.MovieResult
	if last != nil {
		similar, err := s.catalog.GetRecommendations(ctx, last.TmdbID)
		if err != nil {
			return nil, model.NewMovieFetchFailedError(last.TmdbID)
		}
		candidates = similar

		// 類似作品だけでは足りない場合はトレンドで補充する
		if len(candidates) < limit {
			trending, err := s.catalog.GetTrending(ctx)
			if err != nil {
				return nil, model.NewMovieFetchFailedError(0)
			}
			candidates = append(candidates, trending...)
		}

		s.logger.Info("recommendations from last activity",
			slog.String("user_id", userID),
			slog.Int64("tmdb_id", last.TmdbID),
			slog.Int("candidates", len(candidates)),
		)
	} else {
		trending, err := s.catalog.GetTrending(ctx)
		if err != nil {
			return nil, model.NewMovieFetchFailedError(0)
		}
		candidates = trending

		s.logger.Info("recommendations from trending",
			slog.String("user_id", userID),
			slog.Int("candidates", len(candidates)),
		)
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	interactions := make([]*model.Interaction, 0, len(candidates))
	for _, candidate := range candidates {
		interaction, err := s.interactions.FindOrCreate(ctx, userID, candidate.ID)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, interaction)
	}

	return interactions, nil
}

// clampLimit は件数指定を1..maxLimitに収める。
// 未指定（0以下）は上限いっぱいを意味する。
func (s *Service) clampLimit(limit int) int {
	if limit < 1 || limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// backdropImageSize は人気作品一覧のカラー抽出に使う画像サイズ。
const backdropImageSize = "w300"

// Popular はトレンド作品を暗色のバックドロップカラー付きで返す。
// ローカルキャッシュは経由せず、ジャンルIDはローカルカタログで名前に解決する。
// バックドロップが無い作品はカラーなしで返す。
func (s *Service) Popular(ctx context.Context, max int) ([]PopularMovie, error) {
	max = s.clampLimit(max)

	trending, err := s.catalog.GetTrending(ctx)
	if err != nil {
		return nil, model.NewMovieFetchFailedError(0)
	}
	if len(trending) > max {
		trending = trending[:max]
	}

	movies := make([]PopularMovie, 0, len(trending))
	for _, result := range trending {
		popular := PopularMovie{
			TmdbID:   result.ID,
			Title:    result.Title,
			Overview: result.Overview,
			Backdrop: model.Image{Path: result.BackdropPath},
		}

		if result.BackdropPath != "" {
			hex, err := s.sampler.SampleDarkColor(ctx, tmdb.ImageURL(backdropImageSize, result.BackdropPath))
			if err != nil {
				return nil, model.NewMovieFetchFailedError(result.ID)
			}
			popular.Backdrop.Color = &hex
		}

		genres, err := s.genres.ResolveNames(ctx, result.GenreIDs)
		if err != nil {
			return nil, err
		}
		for _, g := range genres {
			popular.Genres = append(popular.Genres, g.Name)
		}

		movies = append(movies, popular)
	}

	return movies, nil
}
