package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MinutesPerDay は1日の分数。
const MinutesPerDay = 24 * 60

// TimeOfDay は時刻（時・分）を表す。日付やタイムゾーンは持たない。
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay は "HH:MM" 形式の文字列を解析する。
// PostgreSQL の TIME 型が返す "HH:MM:SS" も受け付け、秒は無視する。
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in time of day: %q", s)
	}
	if len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in time of day: %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in time of day: %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// TimeOfDayFromMinutes は0時からの経過分を TimeOfDay に変換する。
// 範囲外の値は日をまたいで折り返す。
func TimeOfDayFromMinutes(minutes int) TimeOfDay {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// Minutes は0時からの経過分を返す。
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String は "HH:MM" 形式の文字列を返す。
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// DayNames は曜日番号（0=日曜）に対応する英語名。
var DayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// ValidateDaysOfWeek は曜日集合が空でなく、すべて0〜6の範囲であることを検証する。
func ValidateDaysOfWeek(days []int) error {
	if len(days) == 0 {
		return fmt.Errorf("days of week must not be empty")
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("day of week out of range: %d", d)
		}
	}
	return nil
}

// NormalizeDaysOfWeek は曜日集合を昇順に並べ、重複を取り除いた新しいスライスを返す。
func NormalizeDaysOfWeek(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// ContainsDay は曜日集合に day が含まれるかを返す。
func ContainsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
