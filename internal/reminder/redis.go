package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "medconfirm:reminders:"

	// maxReplaceAttempts は ReplaceAll が競合で再試行する上限。
	maxReplaceAttempts = 10
)

// RedisScheduler は所有者ごとのハッシュに通知を保存するScheduler。
// フィールドが通知ID、値が Entry のJSON。プッシュゲートウェイがこのハッシュを読む。
type RedisScheduler struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisScheduler はRedisSchedulerを生成する。
func NewRedisScheduler(client redis.UniversalClient) *RedisScheduler {
	return &RedisScheduler{client: client, keyPrefix: defaultKeyPrefix}
}

func (s *RedisScheduler) key(ownerID string) string {
	return s.keyPrefix + ownerID
}

// Schedule は通知を登録する。
func (s *RedisScheduler) Schedule(ctx context.Context, ownerID string, trigger Trigger, payload Payload) (string, error) {
	id := uuid.New().String()
	raw, err := json.Marshal(Entry{ID: id, Trigger: trigger, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("failed to encode reminder: %w", err)
	}
	if err := s.client.HSet(ctx, s.key(ownerID), id, raw).Err(); err != nil {
		return "", fmt.Errorf("failed to store reminder: %w", err)
	}
	return id, nil
}

// CancelAll は条件に一致する通知を取り消す。
// 解析できない値は条件に関係なく取り消す。
func (s *RedisScheduler) CancelAll(ctx context.Context, ownerID string, filter Filter) (int, error) {
	key := s.key(ownerID)
	all, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to load reminders: %w", err)
	}

	fields := matchingFields(all, filter)
	if len(fields) == 0 {
		return 0, nil
	}

	n, err := s.client.HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders: %w", err)
	}
	return int(n), nil
}

// ReplaceAll はハッシュを WATCH したうえで、取消と登録を MULTI/EXEC でまとめて適用する。
// 他の更新と競合した場合は読み直して再試行する。
func (s *RedisScheduler) ReplaceAll(ctx context.Context, ownerID string, filter Filter, drafts []Draft) (int, error) {
	key := s.key(ownerID)

	values := make([]any, 0, 2*len(drafts))
	for _, d := range drafts {
		id := uuid.New().String()
		raw, err := json.Marshal(Entry{ID: id, Trigger: d.Trigger, Payload: d.Payload})
		if err != nil {
			return 0, fmt.Errorf("failed to encode reminder: %w", err)
		}
		values = append(values, id, raw)
	}

	for attempt := 0; attempt < maxReplaceAttempts; attempt++ {
		var cancelled int
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			all, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			fields := matchingFields(all, filter)
			if len(fields) == 0 && len(values) == 0 {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(fields) > 0 {
					pipe.HDel(ctx, key, fields...)
				}
				if len(values) > 0 {
					pipe.HSet(ctx, key, values...)
				}
				return nil
			})
			cancelled = len(fields)
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to replace reminders: %w", err)
		}
		return cancelled, nil
	}
	return 0, fmt.Errorf("failed to replace reminders after %d attempts: %w", maxReplaceAttempts, redis.TxFailedErr)
}

// Owners はキー接頭辞で SCAN し、通知を持つ所有者を返す。
func (s *RedisScheduler) Owners(ctx context.Context) ([]string, error) {
	var owners []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		owners = append(owners, strings.TrimPrefix(iter.Val(), s.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan reminder owners: %w", err)
	}
	return owners, nil
}

// matchingFields は条件に一致する通知IDを返す。解析できない値も含める。
func matchingFields(all map[string]string, filter Filter) []string {
	var fields []string
	for id, raw := range all {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || filter.Matches(e.Payload) {
			fields = append(fields, id)
		}
	}
	return fields
}

// List は所有者の通知を発火順で返す。
func (s *RedisScheduler) List(ctx context.Context, ownerID string) ([]Entry, error) {
	all, err := s.client.HGetAll(ctx, s.key(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}
	out := make([]Entry, 0, len(all))
	for _, raw := range all {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

var _ Scheduler = (*RedisScheduler)(nil)
