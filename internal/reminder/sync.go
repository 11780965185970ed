package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/medconfirm/internal/metrics"
	"github.com/hitoshi/medconfirm/internal/model"
)

// Result は1回の同期結果。
type Result struct {
	Cancelled int
	Scheduled int
	Skipped   int
}

// Syncer は被介護者の薬スケジュールから通知を組み立て、配信ストアと同期する。
type Syncer struct {
	scheduler Scheduler
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
	display   DisplayOptions
}

// NewSyncer はSyncerを生成する。metricsがnilの場合は記録しない。
func NewSyncer(scheduler Scheduler, logger *slog.Logger, m metrics.MetricsCollector) *Syncer {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Syncer{
		scheduler: scheduler,
		logger:    logger,
		metrics:   m,
		display:   Display(),
	}
}

// ReminderTime は予定時刻の5分前の時・分を返す。
// 0時台の先頭は前日の23時台に折り返すが、曜日はずらさない。
func ReminderTime(at model.TimeOfDay) (hour, minute int) {
	hour, minute = at.Hour, at.Minute-LeadMinutes
	if minute < 0 {
		minute += 60
		hour--
	}
	if hour < 0 {
		hour += 24
	}
	return hour, minute
}

// BuildPayload は薬のリマインダー通知の内容を組み立てる。
func BuildPayload(medicationID, medicationName, timeOfDay string, opts DisplayOptions) Payload {
	p := Payload{
		Title:     "💊 Medication Reminder",
		Body:      fmt.Sprintf("Time to take your %s in %d minutes!", medicationName, LeadMinutes),
		ChannelID: ChannelID,
		Data: PayloadData{
			MedicationID:   medicationID,
			MedicationName: medicationName,
			ScheduledTime:  timeOfDay,
			Type:           TypeMedicationReminder,
		},
	}
	if opts.PlaySound {
		p.Sound = "default"
	}
	return p
}

// Sync は所有者のリマインダーをすべて取り消し、rows から作り直す。
// スケジュール情報が欠けた行と無効なスケジュールは読み飛ばす。
// 取消と登録は配信ストア側で1回の置き換えとして適用される。失敗した場合は何も変わらない。
func (s *Syncer) Sync(ctx context.Context, ownerID string, rows []model.MedicationScheduleRow) (Result, error) {
	start := time.Now()
	res, err := s.sync(ctx, ownerID, rows)
	s.metrics.RecordReminderSync(res.Scheduled, res.Cancelled, time.Since(start), err)
	if err != nil {
		s.logger.Error("reminder sync failed",
			slog.String("owner_id", ownerID),
			slog.Int("scheduled", res.Scheduled),
			slog.String("error", err.Error()),
		)
		return res, err
	}
	s.logger.Info("reminders synced",
		slog.String("owner_id", ownerID),
		slog.Int("cancelled", res.Cancelled),
		slog.Int("scheduled", res.Scheduled),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *Syncer) sync(ctx context.Context, ownerID string, rows []model.MedicationScheduleRow) (Result, error) {
	var res Result
	var drafts []Draft

	for _, row := range rows {
		if !row.HasSchedule() || !row.IsActive() {
			res.Skipped++
			continue
		}
		at, err := model.ParseTimeOfDay(*row.TimeOfDay)
		if err != nil || model.ValidateDaysOfWeek(row.DaysOfWeek) != nil {
			res.Skipped++
			continue
		}
		hour, minute := ReminderTime(at)
		payload := BuildPayload(row.ID, row.Name, at.String(), s.display)

		for _, day := range row.DaysOfWeek {
			drafts = append(drafts, Draft{
				Trigger: Trigger{Hour: hour, Minute: minute, Weekday: day + 1, Repeats: true},
				Payload: payload,
			})
		}
	}

	cancelled, err := s.scheduler.ReplaceAll(ctx, ownerID, Filter{Type: TypeMedicationReminder}, drafts)
	if err != nil {
		return res, fmt.Errorf("failed to replace reminders: %w", err)
	}
	res.Cancelled = cancelled
	res.Scheduled = len(drafts)
	return res, nil
}
