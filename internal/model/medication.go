package model

import "time"

// Medication は介護者が被介護者に割り当てた薬を表す。
type Medication struct {
	ID           string
	Name         string
	Dosage       *string
	Instructions *string
	DependantID  string
	CarerID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MedicationSchedule は薬の服用時刻と曜日を表す。
type MedicationSchedule struct {
	ID           string
	MedicationID string
	TimeOfDay    string // "HH:MM"
	DaysOfWeek   []int  // 0=日曜〜6=土曜
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ScheduleInput はスケジュール作成・置換時の入力を表す。
type ScheduleInput struct {
	TimeOfDay  string
	DaysOfWeek []int
}

// MedicationScheduleRow は薬とスケジュールを外部結合した1行を表す。
// スケジュールが無い薬では Schedule* 系のフィールドが nil になる。
type MedicationScheduleRow struct {
	Medication
	ScheduleID *string
	TimeOfDay  *string
	DaysOfWeek []int
	Active     *bool
}

// HasSchedule はスケジュール情報が揃っているかを返す。
func (r *MedicationScheduleRow) HasSchedule() bool {
	return r.ScheduleID != nil && r.TimeOfDay != nil && len(r.DaysOfWeek) > 0
}

// IsActive はスケジュールが有効かを返す。active が不明な行は有効として扱う。
func (r *MedicationScheduleRow) IsActive() bool {
	return r.Active == nil || *r.Active
}
