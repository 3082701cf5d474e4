package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/opopir/opopir-backend/internal/config"
)

// RedisDeadlineIndex keeps session deadlines in a sorted set scored by
// the deadline's unix timestamp, so the deadline worker can pop the
// sessions whose time budget has run out with a single range call.
type RedisDeadlineIndex struct {
	rdb *redis.Client
}

// NewRedisDeadlineIndex creates a RedisDeadlineIndex.
func NewRedisDeadlineIndex(rdb *redis.Client) *RedisDeadlineIndex {
	return &RedisDeadlineIndex{rdb: rdb}
}

// Schedule registers the session for auto-submission at deadline.
func (d *RedisDeadlineIndex) Schedule(ctx context.Context, sessionID uuid.UUID, deadline time.Time) error {
	return d.rdb.ZAdd(ctx, config.CacheKey.SessionDeadlineIndexKey(), redis.Z{
		Score:  float64(deadlineScore(deadline)),
		Member: sessionID.String(),
	}).Err()
}

// deadlineScore converts a deadline to its sorted-set score. PopDue
// compares whole seconds, so a fractional deadline rounds up: firing
// under a second late is harmless, firing early would pop the session
// while it still has time left.
func deadlineScore(deadline time.Time) int64 {
	s := deadline.Unix()
	if deadline.Nanosecond() > 0 {
		s++
	}
	return s
}

// Cancel drops the session from the index after a manual submission.
func (d *RedisDeadlineIndex) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	return d.rdb.ZRem(ctx, config.CacheKey.SessionDeadlineIndexKey(), sessionID.String()).Err()
}

// PopDue atomically removes and returns the sessions whose deadline is at
// or before now. Removal happens before the auto-submit runs; auto-submit
// retries are the worker's problem, not the index's.
func (d *RedisDeadlineIndex) PopDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	key := config.CacheKey.SessionDeadlineIndexKey()
	max := strconv.FormatInt(now.Unix(), 10)

	members, err := d.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	removed := make([]interface{}, len(members))
	for i, m := range members {
		removed[i] = m
	}
	if err := d.rdb.ZRem(ctx, key, removed...).Err(); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
