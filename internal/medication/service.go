// Package medication は薬とスケジュールの登録・置換・一覧のドメインロジックを提供する。
package medication

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/medconfirm/internal/dose"
	"github.com/hitoshi/medconfirm/internal/metrics"
	"github.com/hitoshi/medconfirm/internal/model"
	"github.com/hitoshi/medconfirm/internal/reminder"
	"github.com/hitoshi/medconfirm/internal/repository"
	"github.com/hitoshi/medconfirm/internal/security"
)

// historyWindow は服用判定に使う服薬記録の期間。
const historyWindow = 24 * time.Hour

// ReminderSyncer は被介護者のリマインダーを現在のスケジュールに合わせる。
type ReminderSyncer interface {
	SyncDependant(ctx context.Context, dependantID string) (reminder.Result, error)
}

// CreateInput は薬の作成入力。
type CreateInput struct {
	Name         string
	Dosage       *string
	Instructions *string
	DependantID  string
	Schedules    []model.ScheduleInput
}

// Detail は作成した薬とそのスケジュール。
type Detail struct {
	Medication *model.Medication
	Schedules  []*model.MedicationSchedule
}

// ScheduleView は一覧の1行。スケジュールを持つ行には服用判定が付く。
type ScheduleView struct {
	model.MedicationScheduleRow
	Dose *dose.Status
}

// Service は薬のサービス層。
type Service struct {
	medRepo     repository.MedicationRepository
	relRepo     repository.RelationshipRepository
	confirmRepo repository.ConfirmationRepository
	reminders   ReminderSyncer
	sanitizer   security.TextSanitizer
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceを生成する。remindersはnilでもよい（同期しない）。
func NewService(
	medRepo repository.MedicationRepository,
	relRepo repository.RelationshipRepository,
	confirmRepo repository.ConfirmationRepository,
	reminders ReminderSyncer,
	sanitizer security.TextSanitizer,
	m metrics.MetricsCollector,
) *Service {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Service{
		medRepo:     medRepo,
		relRepo:     relRepo,
		confirmRepo: confirmRepo,
		reminders:   reminders,
		sanitizer:   sanitizer,
		metrics:     m,
		now:         time.Now,
	}
}

// Create は介護者が関係を持つ被介護者に薬を登録する。
// 薬・スケジュール・被介護者への通知は同一トランザクションで作成される。
func (s *Service) Create(ctx context.Context, carerID string, in CreateInput) (*Detail, error) {
	name := s.sanitizer.Sanitize(in.Name)
	dependantID := strings.TrimSpace(in.DependantID)
	if name == "" || dependantID == "" {
		return nil, model.NewValidationError("Name and dependant ID are required")
	}
	if _, err := uuid.Parse(dependantID); err != nil {
		return nil, model.NewDependantAccessDeniedError()
	}

	if err := s.checkRelationship(ctx, carerID, dependantID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	med := &model.Medication{
		ID:           uuid.New().String(),
		Name:         name,
		Dosage:       security.SanitizeOptional(s.sanitizer, in.Dosage),
		Instructions: security.SanitizeOptional(s.sanitizer, in.Instructions),
		DependantID:  dependantID,
		CarerID:      carerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	schedules, err := buildSchedules(med.ID, in.Schedules, now)
	if err != nil {
		return nil, err
	}
	notification := newScheduleNotification(med, fmt.Sprintf(`New medication "%s" has been added to your schedule`, med.Name), now)

	if err := s.medRepo.CreateWithSchedules(ctx, med, schedules, notification); err != nil {
		return nil, fmt.Errorf("薬の作成に失敗しました: %w", err)
	}

	s.metrics.RecordMedicationCreated()
	slog.Info("medication created",
		slog.String("medication_id", med.ID),
		slog.String("dependant_id", dependantID),
		slog.Int("schedules", len(schedules)),
	)
	s.syncReminders(ctx, dependantID)

	return &Detail{Medication: med, Schedules: schedules}, nil
}

// ReplaceSchedule は薬のスケジュールをすべて入れ替える。
// 薬を登録した介護者以外は AccessDenied となる。
func (s *Service) ReplaceSchedule(ctx context.Context, carerID, medicationID string, inputs []model.ScheduleInput) error {
	if _, err := uuid.Parse(medicationID); err != nil {
		return model.NewMedicationAccessDeniedError()
	}

	med, err := s.medRepo.FindByID(ctx, medicationID)
	if err != nil {
		return fmt.Errorf("薬の取得に失敗しました: %w", err)
	}
	if med == nil || med.CarerID != carerID {
		return model.NewMedicationAccessDeniedError()
	}

	now := s.now().UTC()
	schedules, err := buildSchedules(med.ID, inputs, now)
	if err != nil {
		return err
	}
	notification := newScheduleNotification(med, fmt.Sprintf(`Schedule for "%s" has been updated`, med.Name), now)

	if err := s.medRepo.ReplaceSchedules(ctx, med.ID, schedules, notification); err != nil {
		return fmt.Errorf("スケジュールの更新に失敗しました: %w", err)
	}

	s.metrics.RecordScheduleReplaced()
	slog.Info("medication schedule replaced",
		slog.String("medication_id", med.ID),
		slog.Int("schedules", len(schedules)),
	)
	s.syncReminders(ctx, med.DependantID)
	return nil
}

// ListMine は被介護者自身の薬とスケジュールを服用判定付きで返す。
func (s *Service) ListMine(ctx context.Context, dependantID string) ([]ScheduleView, error) {
	return s.list(ctx, dependantID)
}

// ListForCarer は介護者が関係を持つ被介護者の薬とスケジュールを返す。
func (s *Service) ListForCarer(ctx context.Context, carerID, dependantID string) ([]ScheduleView, error) {
	if _, err := uuid.Parse(dependantID); err != nil {
		return nil, model.NewDependantAccessDeniedError()
	}
	if err := s.checkRelationship(ctx, carerID, dependantID); err != nil {
		return nil, err
	}
	return s.list(ctx, dependantID)
}

func (s *Service) list(ctx context.Context, dependantID string) ([]ScheduleView, error) {
	rows, err := s.medRepo.ListScheduleRowsByDependant(ctx, dependantID)
	if err != nil {
		return nil, fmt.Errorf("薬一覧の取得に失敗しました: %w", err)
	}

	now := s.now()
	history, err := s.confirmRepo.ListConfirmedSince(ctx, dependantID, now.Add(-historyWindow))
	if err != nil {
		return nil, fmt.Errorf("服薬記録の取得に失敗しました: %w", err)
	}

	views := make([]ScheduleView, 0, len(rows))
	for _, row := range rows {
		v := ScheduleView{MedicationScheduleRow: row}
		if row.HasSchedule() {
			st := dose.Evaluate(dose.Schedule{
				MedicationID: row.ID,
				TimeOfDay:    *row.TimeOfDay,
				DaysOfWeek:   row.DaysOfWeek,
			}, history, now)
			v.Dose = &st
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) checkRelationship(ctx context.Context, carerID, dependantID string) error {
	ok, err := s.relRepo.Exists(ctx, carerID, dependantID)
	if err != nil {
		return fmt.Errorf("介護関係の確認に失敗しました: %w", err)
	}
	if !ok {
		return model.NewDependantAccessDeniedError()
	}
	return nil
}

// syncReminders はコミット後にリマインダーを同期する。失敗してもログに残すのみ。
func (s *Service) syncReminders(ctx context.Context, dependantID string) {
	if s.reminders == nil {
		return
	}
	if _, err := s.reminders.SyncDependant(ctx, dependantID); err != nil {
		slog.Warn("reminder sync failed",
			slog.String("dependant_id", dependantID),
			slog.String("error", err.Error()),
		)
	}
}

// buildSchedules は入力を検証し、時刻を "HH:MM" に、曜日を昇順・重複なしに正規化する。
func buildSchedules(medicationID string, inputs []model.ScheduleInput, now time.Time) ([]*model.MedicationSchedule, error) {
	schedules := make([]*model.MedicationSchedule, 0, len(inputs))
	for i, in := range inputs {
		at, err := model.ParseTimeOfDay(in.TimeOfDay)
		if err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("Schedule %d: time_of_day must be HH:MM", i+1))
		}
		if err := model.ValidateDaysOfWeek(in.DaysOfWeek); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("Schedule %d: days_of_week must be a non-empty list of 0-6", i+1))
		}
		schedules = append(schedules, &model.MedicationSchedule{
			ID:           uuid.New().String(),
			MedicationID: medicationID,
			TimeOfDay:    at.String(),
			DaysOfWeek:   model.NormalizeDaysOfWeek(in.DaysOfWeek),
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return schedules, nil
}

func newScheduleNotification(med *model.Medication, message string, now time.Time) *model.Notification {
	return &model.Notification{
		ID:            uuid.New().String(),
		DependantID:   med.DependantID,
		MedicationID:  med.ID,
		Message:       message,
		Type:          model.NotificationTypeScheduleUpdate,
		ScheduledTime: now,
		CreatedAt:     now,
	}
}
