package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/medconfirm/internal/model"
)

// PostgresConfirmationRepo はPostgreSQLを使用した服薬確認リポジトリ。
type PostgresConfirmationRepo struct {
	db *sql.DB
}

// NewPostgresConfirmationRepo はPostgresConfirmationRepoを生成する。
func NewPostgresConfirmationRepo(db *sql.DB) *PostgresConfirmationRepo {
	return &PostgresConfirmationRepo{db: db}
}

// Create は服薬確認を作成する。
func (r *PostgresConfirmationRepo) Create(ctx context.Context, c *model.MedicationConfirmation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO medication_confirmations
		   (id, dependant_id, medication_id, schedule_id, photo_path, taken_at, confirmed_by_carer, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.DependantID, c.MedicationID, c.ScheduleID, c.PhotoPath, c.TakenAt, c.ConfirmedByCarer, c.Notes, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert confirmation: %w", err)
	}
	return nil
}

// ConfirmByCarer は介護者が所有する薬の服薬確認を承認済みにする。
// 所有確認と更新を1文で行う。対象が無ければnilを返す。
// 承認済みのものを再度承認した場合は承認日時とメモを上書きする。
func (r *PostgresConfirmationRepo) ConfirmByCarer(ctx context.Context, confirmationID, carerID string, notes *string, at time.Time) (*model.MedicationConfirmation, error) {
	c := &model.MedicationConfirmation{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE medication_confirmations mc
		 SET confirmed_by_carer = TRUE, carer_confirmed_at = $3, notes = $4
		 FROM medications m
		 WHERE mc.id = $1 AND mc.medication_id = m.id AND m.carer_id = $2
		 RETURNING mc.id, mc.dependant_id, mc.medication_id, mc.schedule_id, mc.photo_path,
		           mc.taken_at, mc.confirmed_by_carer, mc.carer_confirmed_at, mc.notes, mc.created_at`,
		confirmationID, carerID, at, notes,
	).Scan(&c.ID, &c.DependantID, &c.MedicationID, &c.ScheduleID, &c.PhotoPath,
		&c.TakenAt, &c.ConfirmedByCarer, &c.CarerConfirmedAt, &c.Notes, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm medication: %w", err)
	}
	return c, nil
}

// ListPendingByCarer は介護者の薬に対する未承認の服薬確認を新しい順で返す。
func (r *PostgresConfirmationRepo) ListPendingByCarer(ctx context.Context, carerID string) ([]model.PendingConfirmation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mc.id, mc.dependant_id, mc.medication_id, mc.schedule_id, mc.photo_path,
		        mc.taken_at, mc.confirmed_by_carer, mc.carer_confirmed_at, mc.notes, mc.created_at,
		        m.name, u.name
		 FROM medication_confirmations mc
		 JOIN medications m ON mc.medication_id = m.id
		 JOIN users u ON mc.dependant_id = u.id
		 WHERE m.carer_id = $1 AND mc.confirmed_by_carer = FALSE
		 ORDER BY mc.taken_at DESC`,
		carerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending confirmations: %w", err)
	}
	defer rows.Close()

	var result []model.PendingConfirmation
	for rows.Next() {
		var p model.PendingConfirmation
		if err := rows.Scan(&p.ID, &p.DependantID, &p.MedicationID, &p.ScheduleID, &p.PhotoPath,
			&p.TakenAt, &p.ConfirmedByCarer, &p.CarerConfirmedAt, &p.Notes, &p.CreatedAt,
			&p.MedicationName, &p.DependantName); err != nil {
			return nil, fmt.Errorf("failed to scan pending confirmation: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending confirmations: %w", err)
	}
	return result, nil
}

// ListConfirmedSince は被介護者の since 以降の承認済み服薬を、スケジュール情報付きで返す。
func (r *PostgresConfirmationRepo) ListConfirmedSince(ctx context.Context, dependantID string, since time.Time) ([]model.RecentConfirmation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mc.medication_id, mc.schedule_id, mc.taken_at, mc.confirmed_by_carer,
		        ms.time_of_day, ms.days_of_week
		 FROM medication_confirmations mc
		 LEFT JOIN medication_schedules ms ON mc.schedule_id = ms.id
		 WHERE mc.dependant_id = $1 AND mc.confirmed_by_carer = TRUE AND mc.taken_at >= $2
		 ORDER BY mc.taken_at DESC`,
		dependantID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent confirmations: %w", err)
	}
	defer rows.Close()

	var result []model.RecentConfirmation
	for rows.Next() {
		var (
			c    model.RecentConfirmation
			days pq.Int64Array
		)
		if err := rows.Scan(&c.MedicationID, &c.ScheduleID, &c.TakenAt, &c.ConfirmedByCarer, &c.TimeOfDay, &days); err != nil {
			return nil, fmt.Errorf("failed to scan recent confirmation: %w", err)
		}
		c.DaysOfWeek = toInts(days)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent confirmations: %w", err)
	}
	return result, nil
}

var _ ConfirmationRepository = (*PostgresConfirmationRepo)(nil)
