package model

import "time"

// MedicationConfirmation は被介護者が提出した服薬写真の記録を表す。
type MedicationConfirmation struct {
	ID               string
	DependantID      string
	MedicationID     string
	ScheduleID       *string
	PhotoPath        string
	TakenAt          time.Time
	ConfirmedByCarer bool
	CarerConfirmedAt *time.Time
	Notes            *string
	CreatedAt        time.Time
}

// PendingConfirmation は介護者の承認待ち一覧の1件を表す。
type PendingConfirmation struct {
	MedicationConfirmation
	MedicationName string
	DependantName  string
	PhotoURL       string // 署名付きURL。ストレージ管理外の写真は参照をそのまま入れる。
}

// RecentConfirmation は被介護者の直近24時間の承認済み服薬を表す。
// スケジュールに紐付かない記録では TimeOfDay と DaysOfWeek が空になる。
type RecentConfirmation struct {
	MedicationID     string
	ScheduleID       *string
	TakenAt          time.Time
	ConfirmedByCarer bool
	TimeOfDay        *string
	DaysOfWeek       []int
}
