// Package resync は服薬リマインダーの定期再同期ジョブを提供する。
// 同期の途中で中断された被介護者のリマインダーを次のサイクルで修復する。
package resync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/medconfirm/internal/reminder"
)

// DependantLister は再同期の対象となる被介護者を列挙する。
type DependantLister interface {
	ListSyncTargets(ctx context.Context) ([]string, error)
}

// DependantSyncer は被介護者1人分のリマインダーを同期する。
type DependantSyncer interface {
	SyncDependant(ctx context.Context, dependantID string) (reminder.Result, error)
}

// Scheduler はリマインダー再同期のスケジューリングと並列制御を行う。
// ティッカーごとに対象の被介護者を取得し、
// semaphoreパターンで最大並列数を制御しながら同期を実行する。
type Scheduler struct {
	lister         DependantLister
	syncer         DependantSyncer
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(lister DependantLister, syncer DependantSyncer, logger *slog.Logger, maxConcurrency int) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		lister:         lister,
		syncer:         syncer,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("リマインダー再同期スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("再同期サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リマインダー再同期スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("再同期サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は対象の被介護者を1回取得し、並列で同期を実行する。
// 個別の同期失敗はログに残して続行する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	ids, err := s.lister.ListSyncTargets(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		s.logger.Info("再同期対象の被介護者はいません")
		return nil
	}

	s.logger.Info("再同期サイクルを開始します",
		slog.Int("dependant_count", len(ids)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var scheduled, failed int

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(dependantID string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := s.syncer.SyncDependant(ctx, dependantID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.Error("リマインダーの再同期に失敗しました",
					slog.String("dependant_id", dependantID),
					slog.String("error", err.Error()),
				)
				return
			}
			scheduled += res.Scheduled
		}(id)
	}

	wg.Wait()

	s.logger.Info("再同期サイクルが完了しました",
		slog.Int("dependant_count", len(ids)),
		slog.Int("scheduled", scheduled),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
