// Package genre は映画ジャンルカタログの保持と更新を提供する。
package genre

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/mael/cinetrack/internal/model"
	"github.com/mael/cinetrack/internal/repository"
	"github.com/mael/cinetrack/internal/tmdb"
)

// CatalogGenreLister はジャンル一覧の取得に必要なインターフェース。
// tmdb.Clientの部分集合として定義する。
type CatalogGenreLister interface {
	ListGenres(ctx context.Context) ([]tmdb.Genre, error)
}

// Service はジャンルカタログのビジネスロジックを提供する。
type Service struct {
	genreRepo    repository.GenreRepository
	catalog      CatalogGenreLister
	refreshToken string
	logger       *slog.Logger
}

// NewService はServiceを生成する。
// refreshTokenが空の場合、HTTP経由の更新は常に拒否される（ワーカー経由の更新は可能）。
func NewService(
	genreRepo repository.GenreRepository,
	catalog CatalogGenreLister,
	refreshToken string,
	logger *slog.Logger,
) *Service {
	return &Service{
		genreRepo:    genreRepo,
		catalog:      catalog,
		refreshToken: refreshToken,
		logger:       logger,
	}
}

// AuthorizeRefresh はHTTP経由のジャンル更新に付与されたトークンを検証する。
func (s *Service) AuthorizeRefresh(token string) error {
	if s.refreshToken == "" || token == "" {
		return model.NewInvalidAuthTokenError()
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.refreshToken)) != 1 {
		return model.NewInvalidAuthTokenError()
	}
	return nil
}

// Refresh はリモートカタログからジャンル一覧を取得し、冪等に保存する。
func (s *Service) Refresh(ctx context.Context) (int, error) {
	remote, err := s.catalog.ListGenres(ctx)
	if err != nil {
		return 0, model.NewMovieFetchFailedError(0)
	}

	genres := make([]model.Genre, 0, len(remote))
	for _, g := range remote {
		genres = append(genres, model.Genre{ID: g.ID, Name: g.Name})
	}

	if err := s.genreRepo.UpsertAll(ctx, genres); err != nil {
		return 0, model.NewStorageError()
	}

	s.logger.Info("genre catalog refreshed", slog.Int("count", len(genres)))
	return len(genres), nil
}

// ResolveNames は指定IDのジャンルをローカルカタログから引く。
// 未知のIDは結果から落ちる。
func (s *Service) ResolveNames(ctx context.Context, ids []int) ([]model.Genre, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	genres, err := s.genreRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, model.NewStorageError()
	}
	return genres, nil
}
