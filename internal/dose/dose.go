// Package dose は服用スケジュールと直近の服薬記録から、
// 今服用できるか・遅れているか・次はいつかを判定する純粋関数群を提供する。
//
// どの関数もエラーを返さない。スケジュールが欠けていたり形式が不正な場合は
// 安全側の既定値（服用不可・遅延なし・"No schedule"）に縮退する。
package dose

import (
	"fmt"
	"time"

	"github.com/hitoshi/medconfirm/internal/model"
)

const (
	// EarlyWindow は予定時刻の何分前から服用可能になるか。
	EarlyWindow = 30
	// OverdueGrace は予定時刻の何分後から遅延扱いになるか。
	OverdueGrace = 30

	// NoSchedule はスケジュールが無い場合の次回服用表示。
	NoSchedule = "No schedule"
)

// Schedule は判定対象の1スケジュールを表す。
type Schedule struct {
	MedicationID string
	TimeOfDay    string
	DaysOfWeek   []int
}

// Status は1スケジュールに対する判定結果をまとめたもの。
type Status struct {
	CanTake        bool
	IsOverdue      bool
	ScheduledToday bool
	TakenToday     bool
	TooEarly       bool
	Takeable       bool // CanTake または IsOverdue。その日の残り時間は提出を受け付ける。
	NextDose       string
	AvailableFrom  string
}

// parsed は検証済みのスケジュール。
type parsed struct {
	medicationID string
	at           model.TimeOfDay
	days         []int
}

func parse(s Schedule) (parsed, bool) {
	if s.MedicationID == "" || s.TimeOfDay == "" || len(s.DaysOfWeek) == 0 {
		return parsed{}, false
	}
	at, err := model.ParseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return parsed{}, false
	}
	if model.ValidateDaysOfWeek(s.DaysOfWeek) != nil {
		return parsed{}, false
	}
	return parsed{medicationID: s.MedicationID, at: at, days: s.DaysOfWeek}, true
}

func startOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func minutesOfDay(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

func takenToday(p parsed, history []model.RecentConfirmation, now time.Time) bool {
	midnight := startOfDay(now)
	for _, c := range history {
		if c.MedicationID != p.medicationID || !c.ConfirmedByCarer {
			continue
		}
		if c.TakenAt.In(now.Location()).Before(midnight) {
			continue
		}
		if c.TimeOfDay == nil {
			continue
		}
		at, err := model.ParseTimeOfDay(*c.TimeOfDay)
		if err != nil {
			continue
		}
		if at == p.at {
			return true
		}
	}
	return false
}

// TakenToday は当日0時以降に、同じ薬・同じ時刻のスケジュールで承認済みの服薬があるかを返す。
func TakenToday(s Schedule, history []model.RecentConfirmation, now time.Time) bool {
	p, ok := parse(s)
	if !ok {
		return false
	}
	return takenToday(p, history, now)
}

// CanTake は現在が服用時間帯内かを返す。
// 当日が予定曜日で、未服用で、予定時刻の30分前から予定時刻+30分までの間なら true。
// それ以降は IsOverdue が true になり、両者が同時に true になることはない。
// 遅延中も服用自体は可能で、その判定は Status.Takeable が担う。
func CanTake(s Schedule, history []model.RecentConfirmation, now time.Time) bool {
	p, ok := parse(s)
	if !ok {
		return false
	}
	return canTake(p, history, now)
}

func canTake(p parsed, history []model.RecentConfirmation, now time.Time) bool {
	if takenToday(p, history, now) {
		return false
	}
	if !model.ContainsDay(p.days, int(now.Weekday())) {
		return false
	}
	cur := minutesOfDay(now)
	sched := p.at.Minutes()
	return cur >= sched-EarlyWindow && cur <= sched+OverdueGrace
}

// IsOverdue は予定時刻から30分を超えて未服用かを返す。
func IsOverdue(s Schedule, history []model.RecentConfirmation, now time.Time) bool {
	p, ok := parse(s)
	if !ok {
		return false
	}
	return isOverdue(p, history, now)
}

func isOverdue(p parsed, history []model.RecentConfirmation, now time.Time) bool {
	if takenToday(p, history, now) {
		return false
	}
	if !model.ContainsDay(p.days, int(now.Weekday())) {
		return false
	}
	return minutesOfDay(now) > p.at.Minutes()+OverdueGrace
}

// NextDose は次回服用の表示文字列を返す。
// 当日まだ予定時刻前なら "Today at HH:MM"、それ以外は次の予定曜日を "<曜日> at HH:MM" で返す。
// 予定曜日が当日のみで服用済みなら翌週の同じ曜日になる。
func NextDose(s Schedule, history []model.RecentConfirmation, now time.Time) string {
	p, ok := parse(s)
	if !ok {
		return NoSchedule
	}
	return nextDose(p, history, now)
}

func nextDose(p parsed, history []model.RecentConfirmation, now time.Time) string {
	today := int(now.Weekday())
	if !takenToday(p, history, now) && model.ContainsDay(p.days, today) && minutesOfDay(now) < p.at.Minutes() {
		return "Today at " + p.at.String()
	}
	for i := 1; i <= 7; i++ {
		day := (today + i) % 7
		if model.ContainsDay(p.days, day) {
			return fmt.Sprintf("%s at %s", model.DayNames[day], p.at)
		}
	}
	return NoSchedule
}

// AvailableTime は服用可能になる時刻（予定時刻の30分前）を "HH:MM" で返す。
// 0時をまたぐ場合は前日の時刻に折り返す。形式不正の場合は空文字を返す。
func AvailableTime(timeOfDay string) string {
	at, err := model.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return ""
	}
	return model.TimeOfDayFromMinutes(at.Minutes() - EarlyWindow).String()
}

// Evaluate はダッシュボード表示に必要な判定をまとめて行う。
func Evaluate(s Schedule, history []model.RecentConfirmation, now time.Time) Status {
	p, ok := parse(s)
	if !ok {
		return Status{NextDose: NoSchedule}
	}
	taken := takenToday(p, history, now)
	scheduledToday := model.ContainsDay(p.days, int(now.Weekday()))
	can := canTake(p, history, now)
	overdue := isOverdue(p, history, now)
	return Status{
		CanTake:        can,
		IsOverdue:      overdue,
		Takeable:       can || overdue,
		ScheduledToday: scheduledToday,
		TakenToday:     taken,
		TooEarly:       scheduledToday && !taken && minutesOfDay(now) < p.at.Minutes()-EarlyWindow,
		NextDose:       nextDose(p, history, now),
		AvailableFrom:  model.TimeOfDayFromMinutes(p.at.Minutes() - EarlyWindow).String(),
	}
}
