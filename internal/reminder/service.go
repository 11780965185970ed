package reminder

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/medconfirm/internal/model"
)

// ScheduleLister は被介護者の薬スケジュールを取得する。
type ScheduleLister interface {
	ListScheduleRowsByDependant(ctx context.Context, dependantID string) ([]model.MedicationScheduleRow, error)
	ListDependantIDsWithSchedules(ctx context.Context) ([]string, error)
}

// SyncService は被介護者IDを受けてスケジュールを読み込み、同期を行う。
type SyncService struct {
	lister ScheduleLister
	syncer *Syncer
}

// NewSyncService はSyncServiceを生成する。
func NewSyncService(lister ScheduleLister, syncer *Syncer) *SyncService {
	return &SyncService{lister: lister, syncer: syncer}
}

// SyncDependant は被介護者のリマインダーを現在のスケジュールに合わせる。
func (s *SyncService) SyncDependant(ctx context.Context, dependantID string) (Result, error) {
	rows, err := s.lister.ListScheduleRowsByDependant(ctx, dependantID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load schedules: %w", err)
	}
	return s.syncer.Sync(ctx, dependantID, rows)
}

// ListSyncTargets は再同期の対象をID順で返す。
// 有効なスケジュールを持つ被介護者に加えて、配信ストアに通知が残っている所有者も含める。
// スケジュールを空にした直後の同期が失敗した場合も、残った通知はここから取り消される。
func (s *SyncService) ListSyncTargets(ctx context.Context) ([]string, error) {
	ids, err := s.lister.ListDependantIDsWithSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependants with schedules: %w", err)
	}
	owners, err := s.syncer.scheduler.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder owners: %w", err)
	}

	seen := make(map[string]struct{}, len(ids)+len(owners))
	targets := make([]string, 0, len(ids)+len(owners))
	for _, id := range append(ids, owners...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	sort.Strings(targets)
	return targets, nil
}
