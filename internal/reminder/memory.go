package reminder

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryScheduler はプロセス内に通知を保持するScheduler。
// Redis 未設定時とテストで使う。
type MemoryScheduler struct {
	mu      sync.Mutex
	entries map[string]map[string]Entry
}

// NewMemoryScheduler はMemorySchedulerを生成する。
func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{entries: make(map[string]map[string]Entry)}
}

// Schedule は通知を登録する。
func (s *MemoryScheduler) Schedule(_ context.Context, ownerID string, trigger Trigger, payload Payload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	if s.entries[ownerID] == nil {
		s.entries[ownerID] = make(map[string]Entry)
	}
	s.entries[ownerID][id] = Entry{ID: id, Trigger: trigger, Payload: payload}
	return id, nil
}

// CancelAll は条件に一致する通知を取り消す。
func (s *MemoryScheduler) CancelAll(_ context.Context, ownerID string, filter Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(ownerID, filter), nil
}

// ReplaceAll は取消と登録をロックを保持したまま行う。
func (s *MemoryScheduler) ReplaceAll(_ context.Context, ownerID string, filter Filter, drafts []Draft) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.cancelLocked(ownerID, filter)
	if len(drafts) > 0 && s.entries[ownerID] == nil {
		s.entries[ownerID] = make(map[string]Entry)
	}
	for _, d := range drafts {
		id := uuid.New().String()
		s.entries[ownerID][id] = Entry{ID: id, Trigger: d.Trigger, Payload: d.Payload}
	}
	return n, nil
}

func (s *MemoryScheduler) cancelLocked(ownerID string, filter Filter) int {
	n := 0
	for id, e := range s.entries[ownerID] {
		if filter.Matches(e.Payload) {
			delete(s.entries[ownerID], id)
			n++
		}
	}
	if len(s.entries[ownerID]) == 0 {
		delete(s.entries, ownerID)
	}
	return n
}

// Owners は通知を持つ所有者をID順で返す。
func (s *MemoryScheduler) Owners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.entries))
	for owner := range s.entries {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out, nil
}

// List は所有者の通知を発火順（曜日・時・分）で返す。
func (s *MemoryScheduler) List(_ context.Context, ownerID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries[ownerID]))
	for _, e := range s.entries[ownerID] {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Trigger.Weekday != b.Trigger.Weekday {
			return a.Trigger.Weekday < b.Trigger.Weekday
		}
		if a.Trigger.Hour != b.Trigger.Hour {
			return a.Trigger.Hour < b.Trigger.Hour
		}
		if a.Trigger.Minute != b.Trigger.Minute {
			return a.Trigger.Minute < b.Trigger.Minute
		}
		return a.Payload.Data.MedicationID < b.Payload.Data.MedicationID
	})
}

var _ Scheduler = (*MemoryScheduler)(nil)
