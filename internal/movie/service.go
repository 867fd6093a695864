// Package movie は映画メタデータのリードスルーキャッシュを提供する。
// 初回参照時にリモートカタログから取得し、ドミナントカラーを抽出してローカルに保存する。
package movie

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mael/cinetrack/internal/colors"
	"github.com/mael/cinetrack/internal/metrics"
	"github.com/mael/cinetrack/internal/model"
	"github.com/mael/cinetrack/internal/repository"
	"github.com/mael/cinetrack/internal/security"
	"github.com/mael/cinetrack/internal/tmdb"
)

const (
	// backdropImageSize はバックドロップのカラー抽出に使う画像サイズ。
	backdropImageSize = "w300"
	// posterImageSize はポスターのカラー抽出に使う画像サイズ。
	posterImageSize = "w92"
)

// CatalogClient は映画詳細の取得に必要なインターフェース。
// tmdb.Clientの部分集合として定義する。
type CatalogClient interface {
	GetMovie(ctx context.Context, tmdbID int64) (*tmdb.MovieDetail, error)
}

// inflightCall は進行中のリモート取得1件を表す。
// 同じtmdbIDに対する並行Resolveはこの結果を待ち合わせる。
type inflightCall struct {
	done  chan struct{}
	movie *model.Movie
	err   error
}

// Service は映画キャッシュのビジネスロジックを提供する。
type Service struct {
	movieRepo repository.MovieRepository
	catalog   CatalogClient
	sampler   colors.SamplerService
	sanitizer security.ContentSanitizerService
	collector metrics.MetricsCollector
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[int64]*inflightCall
}

// NewService はServiceを生成する。
func NewService(
	movieRepo repository.MovieRepository,
	catalog CatalogClient,
	sampler colors.SamplerService,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		movieRepo: movieRepo,
		catalog:   catalog,
		sampler:   sampler,
		sanitizer: sanitizer,
		collector: collector,
		logger:    logger,
		inflight:  make(map[int64]*inflightCall),
	}
}

// Resolve は外部カタログIDに対応するローカルレコードを返す。
// キャッシュ済みならそのまま返し、未キャッシュならリモートから取得して作成する。
// 同じIDに対する並行呼び出しは1回のリモート取得に合流させ、
// それでも競合した場合はtmdb_idのユニーク制約で先勝ちを確定し敗者は再読込する。
func (s *Service) Resolve(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	cached, err := s.movieRepo.FindByTmdbID(ctx, tmdbID)
	if err != nil {
		return nil, model.NewStorageError()
	}
	if cached != nil {
		return cached, nil
	}

	s.mu.Lock()
	if call, ok := s.inflight[tmdbID]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.movie, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	s.inflight[tmdbID] = call
	s.mu.Unlock()

	call.movie, call.err = s.fetchAndStore(ctx, tmdbID)
	close(call.done)

	s.mu.Lock()
	delete(s.inflight, tmdbID)
	s.mu.Unlock()

	return call.movie, call.err
}

// fetchAndStore はリモートカタログから映画を取得し、カラー抽出・サニタイズの上で保存する。
func (s *Service) fetchAndStore(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	start := time.Now()
	detail, err := s.catalog.GetMovie(ctx, tmdbID)
	s.collector.RecordCatalogFetchLatency(time.Since(start))
	if err != nil {
		s.collector.RecordCatalogFetchFailure("get_movie")
		if tmdb.IsNotFound(err) {
			return nil, model.NewMovieNotFoundError(tmdbID)
		}
		return nil, model.NewMovieFetchFailedError(tmdbID)
	}
	s.collector.RecordCatalogFetchSuccess()

	movie, err := s.buildMovie(ctx, detail)
	if err != nil {
		return nil, err
	}

	if err := s.movieRepo.Create(ctx, movie); err != nil {
		// 別プロセスが先に同じtmdb_idを作成した場合は勝者の行を採用する
		if repository.IsUniqueViolation(err) {
			winner, findErr := s.movieRepo.FindByTmdbID(ctx, tmdbID)
			if findErr != nil || winner == nil {
				return nil, model.NewStorageError()
			}
			return winner, nil
		}
		return nil, model.NewStorageError()
	}

	s.collector.RecordMovieCached()
	s.logger.Info("movie cached",
		slog.Int64("tmdb_id", tmdbID),
		slog.String("title", movie.Title),
	)

	return movie, nil
}

// buildMovie はリモートの詳細メタデータからローカルレコードを組み立てる。
// バックドロップ・ポスターそれぞれのドミナントカラーを抽出する。
// 画像パスが無い場合はカラーをnilのまま保存し、抽出失敗は取得失敗として伝播する。
func (s *Service) buildMovie(ctx context.Context, detail *tmdb.MovieDetail) (*model.Movie, error) {
	backdrop := model.Image{Path: detail.BackdropPath}
	if detail.BackdropPath != "" {
		hex, err := s.sampler.SampleColor(ctx, tmdb.ImageURL(backdropImageSize, detail.BackdropPath))
		if err != nil {
			s.logger.Error("backdrop color sampling failed",
				slog.Int64("tmdb_id", detail.ID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewMovieFetchFailedError(detail.ID)
		}
		s.collector.RecordColorSampled()
		backdrop.Color = &hex
	}

	poster := model.Image{Path: detail.PosterPath}
	if detail.PosterPath != "" {
		hex, err := s.sampler.SampleColor(ctx, tmdb.ImageURL(posterImageSize, detail.PosterPath))
		if err != nil {
			s.logger.Error("poster color sampling failed",
				slog.Int64("tmdb_id", detail.ID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewMovieFetchFailedError(detail.ID)
		}
		s.collector.RecordColorSampled()
		poster.Color = &hex
	}

	genres := make([]model.Genre, 0, len(detail.Genres))
	for _, g := range detail.Genres {
		genres = append(genres, model.Genre{ID: g.ID, Name: g.Name})
	}

	var releaseDate *time.Time
	if detail.ReleaseDate != "" {
		if parsed, err := time.Parse("2006-01-02", detail.ReleaseDate); err == nil {
			releaseDate = &parsed
		}
	}

	now := time.Now()
	return &model.Movie{
		ID:               uuid.New().String(),
		TmdbID:           detail.ID,
		ImdbID:           detail.ImdbID,
		Title:            detail.Title,
		ReleaseDate:      releaseDate,
		OriginalLanguage: detail.OriginalLanguage,
		Plot:             s.sanitizer.Sanitize(detail.Overview),
		Genres:           genres,
		Backdrop:         backdrop,
		Poster:           poster,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
