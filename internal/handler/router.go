package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mael/cinetrack/internal/middleware"
	"github.com/mael/cinetrack/internal/model"
)

// Pinger はDB疎通確認のインターフェース。sql.DBの部分集合として定義する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 映画・レコメンド
	InteractionService InteractionServiceInterface
	RecommendService   RecommendServiceInterface

	// ジャンル
	GenreService GenreServiceInterface

	// 運用系
	DB             Pinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Metrics
//	（認証ルートのみ）→ Auth → RateLimit(General)
//
// 登録・ログイン・ジャンル更新・ヘルスチェックはBearer認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	movieHandler := NewMovieHandler(deps.InteractionService, deps.RecommendService)
	genreHandler := NewGenreHandler(deps.GenreService)

	r.Route("/api/1", func(r chi.Router) {
		// --- 認証不要のルート ---

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		// 旧クライアント互換のエイリアス
		r.Post("/user/register", authHandler.Register)
		r.Post("/user/login", authHandler.Login)

		// ジャンル更新（authクエリパラメータで保護）
		r.Get("/genres/update", genreHandler.UpdateGenres)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Auth → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.Authenticator))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// プロフィール管理
			r.Route("/user", func(r chi.Router) {
				r.Get("/", userHandler.Profile)
				r.Put("/", userHandler.UpdateProfile)
				r.Post("/change-password", userHandler.ChangePassword)
				r.Post("/logout", authHandler.Logout)
			})

			// 映画参照・検索（リモートカタログを叩く操作には解決専用レート制限を追加）
			r.Route("/movies", func(r chi.Router) {
				r.Get("/recommendations", movieHandler.Recommendations)
				r.With(deps.RateLimiter.ResolveMiddleware()).Get("/search", movieHandler.Search)
				r.With(deps.RateLimiter.ResolveMiddleware()).Get("/discover", movieHandler.Discover)

				r.Route("/{id}", func(r chi.Router) {
					r.With(deps.RateLimiter.ResolveMiddleware()).Get("/", movieHandler.GetMovie)
					r.Post("/update", movieHandler.UpdateMovie)
				})
			})

			// 人気映画一覧
			r.Get("/discover/popular", movieHandler.Popular)

			// 行動ログ
			r.Post("/science", userHandler.Science)
		})
	})

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.DB))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 未定義ルートも統一エラーフォーマットで応答する
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, &model.APIError{
			Status:   http.StatusNotFound,
			Code:     "NOT_FOUND",
			Message:  "指定されたエンドポイントは存在しません。",
			Category: "system",
			Action:   "URLを確認してください。",
		})
	})

	return r
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status string `json:"status"`
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
