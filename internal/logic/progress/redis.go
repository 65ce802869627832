package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProgressStore 管理 Redis 中的 slot 状态记录（幂等控制）
type RedisProgressStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

const defaultSlotTTL = 7 * 24 * time.Hour

// NewRedisProgressStore 创建 Redis 判重管理器
func NewRedisProgressStore(rdb redis.Cmdable) *RedisProgressStore {
	return &RedisProgressStore{rdb: rdb, ttl: defaultSlotTTL}
}

// getKey 构造 Redis key，按事件类型区分
func (r *RedisProgressStore) getKey(slot uint64, eventType EventType) string {
	return fmt.Sprintf("%s:%d", eventType.keyPrefix(), slot)
}

// GetSlotStatus 获取 slot 的状态（Unknown / Processed / Invalid / Pending）
func (r *RedisProgressStore) GetSlotStatus(ctx context.Context, slot uint64, eventType EventType) (SlotStatus, error) {
	val, err := r.rdb.Get(ctx, r.getKey(slot, eventType)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return SlotUnknown, nil
	case err != nil:
		return SlotUnknown, fmt.Errorf("redis get error: %w", err)
	}
	switch s := SlotStatus(val); s {
	case SlotProcessed, SlotInvalid, SlotPending:
		return s, nil
	default:
		return SlotUnknown, nil
	}
}

// MarkSlotStatus 设置 slot 的状态
func (r *RedisProgressStore) MarkSlotStatus(ctx context.Context, slot uint64, eventType EventType, status SlotStatus) error {
	return r.rdb.Set(ctx, r.getKey(slot, eventType), int(status), r.ttl).Err()
}
