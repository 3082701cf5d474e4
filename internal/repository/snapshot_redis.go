package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/opopir/opopir-backend/internal/config"
	"github.com/opopir/opopir-backend/internal/model"
)

// Snapshots are kept as long as the longest plausible session plus slack;
// the durable autosave copy covers anything older.
const snapshotTTL = 24 * time.Hour

// RedisSnapshotStore keeps the mid-exam answer snapshot in Redis hashes:
// one for choices, one for the answer timestamps used by pacing.
type RedisSnapshotStore struct {
	rdb *redis.Client
}

// NewRedisSnapshotStore creates a RedisSnapshotStore.
func NewRedisSnapshotStore(rdb *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb}
}

// SaveAnswer writes one answer, last write wins. An empty choice clears
// the position back to unanswered.
func (s *RedisSnapshotStore) SaveAnswer(ctx context.Context, sessionID uuid.UUID, position int, choice string, at time.Time) error {
	answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())
	paceKey := config.CacheKey.SessionPaceKey(sessionID.String())
	field := strconv.Itoa(position)

	pipe := s.rdb.Pipeline()
	if choice == "" {
		pipe.HDel(ctx, answersKey, field)
		pipe.HDel(ctx, paceKey, field)
	} else {
		pipe.HSet(ctx, answersKey, field, choice)
		pipe.HSet(ctx, paceKey, field, at.Unix())
		pipe.Expire(ctx, answersKey, snapshotTTL)
		pipe.Expire(ctx, paceKey, snapshotTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Load reads the full snapshot. A session with no saved answers yields an
// empty, non-nil snapshot.
func (s *RedisSnapshotStore) Load(ctx context.Context, sessionID uuid.UUID) (*model.SessionSnapshot, error) {
	answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())
	paceKey := config.CacheKey.SessionPaceKey(sessionID.String())

	rawAnswers, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	rawPace, err := s.rdb.HGetAll(ctx, paceKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load pace: %w", err)
	}

	snap := &model.SessionSnapshot{
		SessionID:  sessionID,
		Answers:    make(map[int]string, len(rawAnswers)),
		AnsweredAt: make(map[int]int64, len(rawPace)),
	}
	for field, choice := range rawAnswers {
		position, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		snap.Answers[position] = choice
	}
	for field, raw := range rawPace {
		position, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		if at, err := strconv.ParseInt(raw, 10, 64); err == nil {
			snap.AnsweredAt[position] = at
		}
	}
	return snap, nil
}

// Restore re-seeds the cache from a durable snapshot after eviction.
func (s *RedisSnapshotStore) Restore(ctx context.Context, snap *model.SessionSnapshot) error {
	if len(snap.Answers) == 0 {
		return nil
	}
	answersKey := config.CacheKey.SessionAnswersKey(snap.SessionID.String())
	paceKey := config.CacheKey.SessionPaceKey(snap.SessionID.String())

	pipe := s.rdb.Pipeline()
	for position, choice := range snap.Answers {
		pipe.HSet(ctx, answersKey, strconv.Itoa(position), choice)
	}
	for position, at := range snap.AnsweredAt {
		pipe.HSet(ctx, paceKey, strconv.Itoa(position), at)
	}
	pipe.Expire(ctx, answersKey, snapshotTTL)
	pipe.Expire(ctx, paceKey, snapshotTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear drops the snapshot; called after scoring lands.
func (s *RedisSnapshotStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return s.rdb.Del(ctx,
		config.CacheKey.SessionAnswersKey(sessionID.String()),
		config.CacheKey.SessionPaceKey(sessionID.String()),
	).Err()
}
