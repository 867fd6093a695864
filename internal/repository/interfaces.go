// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/mael/cinetrack/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名（小文字正規化済み）でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。username/emailの重複時はユニーク制約違反を返す。
	Create(ctx context.Context, user *model.User) error

	// Update はemail、password_hash、profile_pictureを部分更新する。
	// nilのフィールドは変更しない。
	Update(ctx context.Context, id string, email, passwordHash, profilePicture *string) error
}

// MovieRepository は映画キャッシュデータの永続化インターフェース。
type MovieRepository interface {
	// FindByTmdbID は外部カタログIDで映画を取得する。
	// ジャンルも含めて復元する。見つからない場合はnilを返す。
	FindByTmdbID(ctx context.Context, tmdbID int64) (*model.Movie, error)

	// FindByID は指定IDの映画を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Movie, error)

	// Create は映画とそのジャンルを同一トランザクションで作成する。
	// tmdb_idの重複時はユニーク制約違反を返す。
	Create(ctx context.Context, movie *model.Movie) error
}

// InteractionRepository はユーザー・映画関係データの永続化インターフェース。
type InteractionRepository interface {
	// FindByUserAndMovie はユーザーIDと映画IDで関係を検索する。見つからない場合はnilを返す。
	FindByUserAndMovie(ctx context.Context, userID, movieID string) (*model.Interaction, error)

	// Create は関係を作成する。(user_id, movie_id)の重複時はユニーク制約違反を返す。
	Create(ctx context.Context, interaction *model.Interaction) error

	// UpdatePartial はwatched/followed/ratingを部分更新して更新後の行を返す。
	// nilのフィールドは変更せず、既存の値を維持する。
	// 対象が存在しない場合はnilを返す。
	UpdatePartial(ctx context.Context, userID, movieID string, watched, followed *bool, rating *int) (*model.Interaction, error)
}

// ActivityRepository は行動ログの永続化インターフェース。追記専用。
type ActivityRepository interface {
	// Append は行動ログを1件追記する。
	Append(ctx context.Context, activity *model.Activity) error

	// FindLastByUser はユーザーの最新の行動ログを取得する。存在しない場合はnilを返す。
	FindLastByUser(ctx context.Context, userID string) (*model.Activity, error)
}

// TokenRepository は失効済みトークンの永続化インターフェース。
type TokenRepository interface {
	// Revoke はトークンを失効リストに追加する。既に存在する場合は何もしない。
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked はトークンが失効リストに存在するかを返す。
	IsRevoked(ctx context.Context, token string) (bool, error)

	// DeleteExpired は有効期限を過ぎたエントリを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// GenreRepository はジャンルカタログの永続化インターフェース。
type GenreRepository interface {
	// UpsertAll はジャンル一覧を冪等にUPSERTする。
	UpsertAll(ctx context.Context, genres []model.Genre) error

	// ListByIDs は指定IDのジャンルを取得する。
	ListByIDs(ctx context.Context, ids []int) ([]model.Genre, error)
}
