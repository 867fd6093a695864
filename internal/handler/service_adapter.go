package handler

import (
	"context"
	"time"

	"github.com/mael/cinetrack/internal/auth"
	"github.com/mael/cinetrack/internal/interaction"
	"github.com/mael/cinetrack/internal/model"
	"github.com/mael/cinetrack/internal/recommend"
	"github.com/mael/cinetrack/internal/tmdb"
	"github.com/mael/cinetrack/internal/user"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register は新規ユーザーを登録し、トークンを発行する。
func (a *AuthServiceAdapter) Register(ctx context.Context, username, password, firstName, lastName, email string, birthDate time.Time) (string, error) {
	registered, err := a.svc.Register(ctx, auth.RegisterInput{
		Username:  username,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
		BirthDate: birthDate,
		Email:     email,
	})
	if err != nil {
		return "", err
	}
	return a.svc.GenerateToken(registered.Username)
}

// Login は資格情報を検証し、トークンを発行する。
func (a *AuthServiceAdapter) Login(ctx context.Context, username, password string) (string, error) {
	token, _, err := a.svc.Login(ctx, username, password)
	return token, err
}

// Logout はトークンを失効させる。
func (a *AuthServiceAdapter) Logout(ctx context.Context, token string) error {
	return a.svc.Logout(ctx, token)
}

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc *user.Service
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc}
}

// UpdateProfile はプロフィールを部分更新する。
func (a *UserServiceAdapter) UpdateProfile(ctx context.Context, userID string, email, password *string) error {
	return a.svc.UpdateProfile(ctx, userID, user.ProfileUpdate{
		Email:       email,
		NewPassword: password,
	})
}

// ChangePassword はパスワードを変更する。
func (a *UserServiceAdapter) ChangePassword(ctx context.Context, u *model.User, oldPassword, newPassword string) error {
	return a.svc.ChangePassword(ctx, u, oldPassword, newPassword)
}

// RecordActivity はユーザーの行動ログを追記する。
func (a *UserServiceAdapter) RecordActivity(ctx context.Context, userID, action string, tmdbID int64, occurredAt time.Time) error {
	return a.svc.RecordActivity(ctx, userID, action, tmdbID, occurredAt)
}

// InteractionServiceAdapter は interaction.Service を InteractionServiceInterface に適合させるアダプタ。
type InteractionServiceAdapter struct {
	svc *interaction.Service
}

// NewInteractionServiceAdapter はInteractionServiceAdapterを生成する。
func NewInteractionServiceAdapter(svc *interaction.Service) *InteractionServiceAdapter {
	return &InteractionServiceAdapter{svc: svc}
}

// FindOrCreate は映画を解決し、インタラクションを取得または作成する。
func (a *InteractionServiceAdapter) FindOrCreate(ctx context.Context, userID string, tmdbID int64) (*model.Interaction, error) {
	return a.svc.FindOrCreate(ctx, userID, tmdbID)
}

// Update はインタラクションを部分更新する。
func (a *InteractionServiceAdapter) Update(ctx context.Context, userID string, tmdbID int64, watched, followed *bool, rating *int) (*model.Interaction, error) {
	return a.svc.Update(ctx, userID, tmdbID, interaction.UpdateParams{
		Watched:  watched,
		Followed: followed,
		Rating:   rating,
	})
}

// Search はタイトル検索の結果をインタラクション付きで返す。
func (a *InteractionServiceAdapter) Search(ctx context.Context, userID, query string, year int) ([]*model.Interaction, error) {
	return a.svc.Search(ctx, userID, query, year)
}

// Discover は条件検索の結果をインタラクション付きで返す。
func (a *InteractionServiceAdapter) Discover(ctx context.Context, userID string, genres []int, year int, language string) ([]*model.Interaction, error) {
	return a.svc.Discover(ctx, userID, tmdb.DiscoverParams{
		Genres:   genres,
		Year:     year,
		Language: language,
	})
}

// RecommendServiceAdapter は recommend.Service を RecommendServiceInterface に適合させるアダプタ。
type RecommendServiceAdapter struct {
	svc *recommend.Service
}

// NewRecommendServiceAdapter はRecommendServiceAdapterを生成する。
func NewRecommendServiceAdapter(svc *recommend.Service) *RecommendServiceAdapter {
	return &RecommendServiceAdapter{svc: svc}
}

// Recommend はおすすめ映画一覧を返す。
func (a *RecommendServiceAdapter) Recommend(ctx context.Context, userID string, limit int) ([]*model.Interaction, error) {
	return a.svc.Recommend(ctx, userID, limit)
}

// Popular はトレンド映画をhandlerレスポンス型で返す。
func (a *RecommendServiceAdapter) Popular(ctx context.Context, max int) ([]popularMovieResponse, error) {
	movies, err := a.svc.Popular(ctx, max)
	if err != nil {
		return nil, err
	}

	results := make([]popularMovieResponse, len(movies))
	for i, movie := range movies {
		results[i] = toPopularMovieResponse(movie)
	}
	return results, nil
}

// toPopularMovieResponse はドメインのPopularMovieをhandlerのレスポンス型に変換する。
func toPopularMovieResponse(movie recommend.PopularMovie) popularMovieResponse {
	return popularMovieResponse{
		TmdbID:   movie.TmdbID,
		Title:    movie.Title,
		Overview: movie.Overview,
		Backdrop: imageResponse{Path: movie.Backdrop.Path, Color: movie.Backdrop.Color},
		Genres:   movie.Genres,
	}
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)
var _ UserServiceInterface = (*UserServiceAdapter)(nil)
var _ InteractionServiceInterface = (*InteractionServiceAdapter)(nil)
var _ RecommendServiceInterface = (*RecommendServiceAdapter)(nil)
