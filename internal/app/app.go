package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/mael/cinetrack/internal/auth"
	"github.com/mael/cinetrack/internal/colors"
	"github.com/mael/cinetrack/internal/config"
	"github.com/mael/cinetrack/internal/database"
	"github.com/mael/cinetrack/internal/genre"
	"github.com/mael/cinetrack/internal/handler"
	"github.com/mael/cinetrack/internal/interaction"
	"github.com/mael/cinetrack/internal/logger"
	"github.com/mael/cinetrack/internal/metrics"
	"github.com/mael/cinetrack/internal/middleware"
	"github.com/mael/cinetrack/internal/movie"
	"github.com/mael/cinetrack/internal/recommend"
	"github.com/mael/cinetrack/internal/repository"
	"github.com/mael/cinetrack/internal/security"
	"github.com/mael/cinetrack/internal/tmdb"
	"github.com/mael/cinetrack/internal/user"
	"github.com/mael/cinetrack/internal/worker/cleanup"
	"github.com/mael/cinetrack/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRefreshGenres:
		return runRefreshGenres(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	movieRepo := repository.NewPostgresMovieRepo(db)
	interactionRepo := repository.NewPostgresInteractionRepo(db)
	activityRepo := repository.NewPostgresActivityRepo(db)
	genreRepo := repository.NewPostgresGenreRepo(db)

	// 3. セキュリティサービスとHTTPクライアントの初期化
	// リモートカタログと画像取得はすべてSSRF防止機能付きクライアント経由で行う
	ssrfGuard := security.NewSSRFGuard()
	safeClient := ssrfGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize, tmdb.APIHost, tmdb.ImageHost)
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. 外部カタログクライアントとカラー抽出の初期化
	tmdbClient := tmdb.NewClient(safeClient, slog.Default(), tmdb.Config{
		APIKey:   cfg.TMDBAPIKey,
		Language: cfg.TMDBLanguage,
		Region:   cfg.TMDBRegion,
	})
	sampler := colors.NewSampler(safeClient, slog.Default())

	// 6. ドメインサービスの初期化
	authService := auth.NewService(userRepo, tokenRepo, auth.ServiceConfig{
		TokenSecret: []byte(cfg.AuthTokenSecret),
		TokenTTL:    cfg.TokenTTL,
	}, slog.Default())

	movieService := movie.NewService(movieRepo, tmdbClient, sampler, sanitizer, collector, slog.Default())
	interactionService := interaction.NewService(interactionRepo, movieService, tmdbClient, cfg.RatingMax, slog.Default())
	genreService := genre.NewService(genreRepo, tmdbClient, cfg.GenreRefreshToken, slog.Default())
	recommendService := recommend.NewService(
		activityRepo, interactionService, tmdbClient, sampler, genreService,
		cfg.RecommendMaxLimit, slog.Default(),
	)
	userService := user.NewService(userRepo, activityRepo, slog.Default())

	// 7. レート制限の構築（configはreq/min単位、rate.Limitはreq/sec単位）
	limiterCfg := middleware.DefaultRateLimiterConfig()
	limiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	limiterCfg.GeneralBurst = cfg.RateLimitGeneral
	limiterCfg.ResolveRate = rate.Limit(float64(cfg.RateLimitResolve) / 60.0)
	limiterCfg.ResolveBurst = cfg.RateLimitResolve
	rateLimiter := middleware.NewRateLimiter(limiterCfg)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		Logger:            slog.Default(),

		AuthService:        handler.NewAuthServiceAdapter(authService),
		UserService:        handler.NewUserServiceAdapter(userService),
		InteractionService: handler.NewInteractionServiceAdapter(interactionService),
		RecommendService:   handler.NewRecommendServiceAdapter(recommendService),
		GenreService:       genreService,

		DB:             db,
		MetricsHandler: metrics.SetupMetricsRoute(registry),
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れトークンのクリーンアップジョブとジャンルカタログの定期同期を実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	tokenRepo := repository.NewPostgresTokenRepo(db)
	genreRepo := repository.NewPostgresGenreRepo(db)

	// 3. 外部カタログクライアントの初期化
	ssrfGuard := security.NewSSRFGuard()
	safeClient := ssrfGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize, tmdb.APIHost, tmdb.ImageHost)
	tmdbClient := tmdb.NewClient(safeClient, slog.Default(), tmdb.Config{
		APIKey:   cfg.TMDBAPIKey,
		Language: cfg.TMDBLanguage,
		Region:   cfg.TMDBRegion,
	})

	// 4. メトリクスの初期化（ワーカーも自身の/metricsを公開する）
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// 5. ジョブの初期化
	cleanupJob := cleanup.NewTokenCleanupJob(tokenRepo, collector, slog.Default())
	genreService := genre.NewService(genreRepo, tmdbClient, cfg.GenreRefreshToken, slog.Default())
	refreshJob := refresh.NewGenreRefreshJob(genreService, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("genre_refresh_interval", cfg.GenreRefreshInterval),
	)

	// トークンクリーンアップをバックグラウンドで起動
	go cleanupJob.Start(ctx, cfg.CleanupInterval)

	// ジャンル同期をメインgoroutineで実行（ブロッキング）
	refreshJob.Start(ctx, cfg.GenreRefreshInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runRefreshGenres はジャンルカタログの同期を1回だけ実行する。
// 初期セットアップや、定期同期の失敗後に手動で復旧したい場合に使う。
func runRefreshGenres(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ssrfGuard := security.NewSSRFGuard()
	safeClient := ssrfGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize, tmdb.APIHost, tmdb.ImageHost)
	tmdbClient := tmdb.NewClient(safeClient, slog.Default(), tmdb.Config{
		APIKey:   cfg.TMDBAPIKey,
		Language: cfg.TMDBLanguage,
		Region:   cfg.TMDBRegion,
	})

	genreRepo := repository.NewPostgresGenreRepo(db)
	genreService := genre.NewService(genreRepo, tmdbClient, cfg.GenreRefreshToken, slog.Default())

	count, err := genreService.Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("genre refresh failed: %w", err)
	}

	slog.Info("genre catalog refreshed", slog.Int("genre_count", count))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
