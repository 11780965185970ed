package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/medconfirm/internal/model"
)

// PostgresMedicationRepo はPostgreSQLを使用した薬・スケジュールリポジトリ。
type PostgresMedicationRepo struct {
	db *sql.DB
}

// NewPostgresMedicationRepo はPostgresMedicationRepoを生成する。
func NewPostgresMedicationRepo(db *sql.DB) *PostgresMedicationRepo {
	return &PostgresMedicationRepo{db: db}
}

// FindByID は指定IDの薬を取得する。見つからない場合はnilを返す。
func (r *PostgresMedicationRepo) FindByID(ctx context.Context, id string) (*model.Medication, error) {
	med := &model.Medication{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, dosage, instructions, dependant_id, carer_id, created_at, updated_at
		 FROM medications WHERE id = $1`,
		id,
	).Scan(&med.ID, &med.Name, &med.Dosage, &med.Instructions, &med.DependantID, &med.CarerID, &med.CreatedAt, &med.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find medication by ID: %w", err)
	}
	return med, nil
}

// CreateWithSchedules は薬・スケジュール・通知を同一トランザクションで作成する。
func (r *PostgresMedicationRepo) CreateWithSchedules(ctx context.Context, med *model.Medication, schedules []*model.MedicationSchedule, notification *model.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO medications (id, name, dosage, instructions, dependant_id, carer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		med.ID, med.Name, med.Dosage, med.Instructions, med.DependantID, med.CarerID, med.CreatedAt, med.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert medication: %w", err)
	}

	if err := insertSchedules(ctx, tx, schedules); err != nil {
		return err
	}
	if err := insertNotification(ctx, tx, notification); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceSchedules は薬のスケジュールをすべて削除して入れ替え、通知を記録する。
func (r *PostgresMedicationRepo) ReplaceSchedules(ctx context.Context, medicationID string, schedules []*model.MedicationSchedule, notification *model.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM medication_schedules WHERE medication_id = $1`, medicationID,
	); err != nil {
		return fmt.Errorf("failed to delete schedules: %w", err)
	}

	if err := insertSchedules(ctx, tx, schedules); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE medications SET updated_at = NOW() WHERE id = $1`, medicationID,
	); err != nil {
		return fmt.Errorf("failed to touch medication: %w", err)
	}

	if err := insertNotification(ctx, tx, notification); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertSchedules(ctx context.Context, tx *sql.Tx, schedules []*model.MedicationSchedule) error {
	for _, s := range schedules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO medication_schedules (id, medication_id, time_of_day, days_of_week, active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, s.MedicationID, s.TimeOfDay, toInt64s(s.DaysOfWeek), s.Active, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert schedule: %w", err)
		}
	}
	return nil
}

func insertNotification(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	if n == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (id, dependant_id, medication_id, schedule_id, message, type, read, scheduled_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.DependantID, n.MedicationID, n.ScheduleID, n.Message, string(n.Type), n.Read, n.ScheduledTime, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ScheduleBelongsTo はスケジュールが指定の薬のものかを返す。
func (r *PostgresMedicationRepo) ScheduleBelongsTo(ctx context.Context, medicationID, scheduleID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM medication_schedules WHERE id = $1 AND medication_id = $2)`,
		scheduleID, medicationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check schedule: %w", err)
	}
	return exists, nil
}

// ListScheduleRowsByDependant は被介護者の薬をスケジュールと外部結合して返す。
func (r *PostgresMedicationRepo) ListScheduleRowsByDependant(ctx context.Context, dependantID string) ([]model.MedicationScheduleRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.name, m.dosage, m.instructions, m.dependant_id, m.carer_id, m.created_at, m.updated_at,
		        ms.id, ms.time_of_day, ms.days_of_week, ms.active
		 FROM medications m
		 LEFT JOIN medication_schedules ms ON m.id = ms.medication_id
		 WHERE m.dependant_id = $1
		 ORDER BY m.name, ms.time_of_day`,
		dependantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	var result []model.MedicationScheduleRow
	for rows.Next() {
		var (
			row  model.MedicationScheduleRow
			days pq.Int64Array
		)
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Dosage, &row.Instructions, &row.DependantID, &row.CarerID, &row.CreatedAt, &row.UpdatedAt,
			&row.ScheduleID, &row.TimeOfDay, &days, &row.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan medication row: %w", err)
		}
		row.DaysOfWeek = toInts(days)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medication rows: %w", err)
	}
	return result, nil
}

// ListDependantIDsWithSchedules は有効なスケジュールを持つ被介護者のIDを返す。
func (r *PostgresMedicationRepo) ListDependantIDsWithSchedules(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT m.dependant_id
		 FROM medications m
		 JOIN medication_schedules ms ON m.id = ms.medication_id
		 WHERE ms.active = TRUE
		 ORDER BY m.dependant_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependants with schedules: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan dependant ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependant IDs: %w", err)
	}
	return ids, nil
}

var _ MedicationRepository = (*PostgresMedicationRepo)(nil)
