package model

import "time"

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	NotificationTypeReminder       NotificationType = "medication_reminder"
	NotificationTypeScheduleUpdate NotificationType = "schedule_update"
)

// Notification は被介護者向けの通知記録を表す。
type Notification struct {
	ID            string
	DependantID   string
	MedicationID  string
	ScheduleID    *string
	Message       string
	Type          NotificationType
	Read          bool
	ScheduledTime time.Time
	CreatedAt     time.Time
}
