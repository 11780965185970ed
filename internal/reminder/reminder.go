// Package reminder は被介護者の端末向け服薬リマインダーを配信ストアと同期する。
//
// 同期は「全取消してから再登録」方式で行う。差分計算はしない。
// 配信ストア（Scheduler）はプッシュゲートウェイが読み出す先で、
// Redis 実装とメモリ実装がある。
package reminder

import (
	"context"
	"sync"
)

const (
	// LeadMinutes は予定時刻の何分前に通知するか。
	LeadMinutes = 5

	// TypeMedicationReminder はリマインダー通知の data.type。
	TypeMedicationReminder = "medication_reminder"

	// ChannelID は通知チャネル名。
	ChannelID = "medication-reminders"
)

// Trigger は週次で繰り返す通知の発火条件。
// Weekday は配信APIに合わせて 1=日曜〜7=土曜。
type Trigger struct {
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
	Weekday int  `json:"weekday"`
	Repeats bool `json:"repeats"`
}

// PayloadData は通知に添付するデータ。
type PayloadData struct {
	MedicationID   string `json:"medicationId"`
	MedicationName string `json:"medicationName"`
	ScheduledTime  string `json:"scheduledTime"`
	Type           string `json:"type"`
}

// Payload は通知の内容。
type Payload struct {
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	Sound     string      `json:"sound,omitempty"`
	ChannelID string      `json:"channelId"`
	Data      PayloadData `json:"data"`
}

// Filter は取消対象の絞り込み条件。Type が空なら全件。
type Filter struct {
	Type string
}

// Matches はペイロードが条件に一致するかを返す。
func (f Filter) Matches(p Payload) bool {
	return f.Type == "" || p.Data.Type == f.Type
}

// Draft は登録前の通知。識別子はストアが払い出す。
type Draft struct {
	Trigger Trigger
	Payload Payload
}

// Scheduler は通知配信ストアのインターフェース。
type Scheduler interface {
	// Schedule は通知を登録し、その識別子を返す。
	Schedule(ctx context.Context, ownerID string, trigger Trigger, payload Payload) (string, error)
	// CancelAll は条件に一致する通知をすべて取り消し、取り消した件数を返す。
	CancelAll(ctx context.Context, ownerID string, filter Filter) (int, error)
	// ReplaceAll は条件に一致する通知の取消と drafts の登録を1つの操作として行い、取り消した件数を返す。
	// 同じ所有者への ReplaceAll 同士が交錯することはない。
	ReplaceAll(ctx context.Context, ownerID string, filter Filter, drafts []Draft) (int, error)
	// Owners は通知を1件以上持つ所有者を返す。
	Owners(ctx context.Context) ([]string, error)
}

// Entry は配信ストアに登録された通知1件。
type Entry struct {
	ID      string  `json:"id"`
	Trigger Trigger `json:"trigger"`
	Payload Payload `json:"payload"`
}

// DisplayOptions は端末がフォアグラウンドで通知を受け取った際の表示方法。
type DisplayOptions struct {
	ShowAlert bool
	PlaySound bool
	SetBadge  bool
}

// DefaultDisplayOptions はアラート表示と通知音ありで、バッジは付けない。
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{ShowAlert: true, PlaySound: true, SetBadge: false}
}

var (
	displayOnce sync.Once
	display     = DefaultDisplayOptions()
)

// Configure はプロセス起動時に一度だけ表示方法を設定する。
// 2回目以降の呼び出しは無視され、false を返す。
func Configure(opts DisplayOptions) bool {
	applied := false
	displayOnce.Do(func() {
		display = opts
		applied = true
	})
	return applied
}

// Display は現在の表示方法を返す。呼び出した時点で設定は確定し、以後 Configure は効かない。
func Display() DisplayOptions {
	displayOnce.Do(func() {})
	return display
}
