// Package refresh はジャンルカタログの定期同期ジョブを提供する。
// リモートカタログのジャンル一覧は滅多に変わらないため、長い間隔の
// 定期実行で十分だが、リモート障害時は指数バックオフで再試行する。
package refresh

import (
	"context"
	"log/slog"
	"time"
)

const (
	// initialBackoff は指数バックオフの初回遅延（1分）。
	initialBackoff = time.Minute
	// maxBackoff は指数バックオフの最大遅延（1時間）。
	maxBackoff = time.Hour
)

// GenreRefresher はジャンルカタログの同期インターフェース。
// genre.Serviceの部分集合として定義する。
type GenreRefresher interface {
	// Refresh はリモートカタログからジャンル一覧を取得・保存し、件数を返す。
	Refresh(ctx context.Context) (int, error)
}

// GenreRefreshJob はジャンルカタログの定期同期ジョブ。
type GenreRefreshJob struct {
	genres GenreRefresher
	logger *slog.Logger
}

// NewGenreRefreshJob は新しいGenreRefreshJobを生成する。
func NewGenreRefreshJob(genres GenreRefresher, logger *slog.Logger) *GenreRefreshJob {
	return &GenreRefreshJob{
		genres: genres,
		logger: logger,
	}
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回1分、2倍ずつ増加、最大1時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 1; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// Run はジャンルカタログを1回同期する。
func (j *GenreRefreshJob) Run(ctx context.Context) error {
	start := time.Now()

	count, err := j.genres.Refresh(ctx)
	if err != nil {
		j.logger.Error("ジャンル同期ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return err
	}

	duration := time.Since(start)
	j.logger.Info("ジャンル同期ジョブが完了しました",
		slog.Int("genre_count", count),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔でジャンル同期を実行する。
// 失敗時は指数バックオフで再試行し、成功したら通常間隔に戻る。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *GenreRefreshJob) Start(ctx context.Context, interval time.Duration) {
	j.logger.Info("ジャンル同期ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	consecutiveErrors := 0
	timer := time.NewTimer(0) // 起動直後に1回実行
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("ジャンル同期ジョブを停止しました")
			return
		case <-timer.C:
			if err := j.Run(ctx); err != nil {
				consecutiveErrors++
				delay := CalculateBackoff(consecutiveErrors)
				j.logger.Warn("ジャンル同期を再試行します",
					slog.Int("consecutive_errors", consecutiveErrors),
					slog.Duration("retry_in", delay),
				)
				timer.Reset(delay)
				continue
			}

			consecutiveErrors = 0
			timer.Reset(interval)
		}
	}
}
