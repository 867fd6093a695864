// Package cleanup は失効済みトークンの自動削除ジョブを提供する。
// ログアウトで失効リストに登録されたトークンのうち、JWT自体の有効期限が
// 過ぎたものを定期バッチで削除する。期限切れトークンは認証で常に拒否される
// ため、失効リストに残し続ける必要はない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TokenPurger は期限切れトークンの削除インターフェース。
// repository.TokenRepositoryの部分集合として定義する。
type TokenPurger interface {
	// DeleteExpired はExpiresAtがnowより前の失効済みトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeRecorder は削除件数のメトリクス記録インターフェース。
type PurgeRecorder interface {
	RecordTokensPurged(count int64)
}

// TokenCleanupJob は期限切れの失効済みトークンを削除するバッチジョブ。
// 冪等な削除処理として設計されており、削除対象がなくてもエラーにならない。
type TokenCleanupJob struct {
	tokens   TokenPurger
	recorder PurgeRecorder
	logger   *slog.Logger
}

// NewTokenCleanupJob は新しいTokenCleanupJobを生成する。
// recorderはnil可（メトリクスを記録しない）。
func NewTokenCleanupJob(tokens TokenPurger, recorder PurgeRecorder, logger *slog.Logger) *TokenCleanupJob {
	return &TokenCleanupJob{
		tokens:   tokens,
		recorder: recorder,
		logger:   logger,
	}
}

// Run は期限切れの失効済みトークンを1回削除する。
func (j *TokenCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.tokens.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordTokensPurged(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでクリーンアップジョブを起動する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *TokenCleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("トークンクリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("トークンクリーンアップサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("トークンクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("トークンクリーンアップサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
