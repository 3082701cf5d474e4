package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/opopir/opopir-backend/internal/config"
	"github.com/opopir/opopir-backend/internal/model"
)

// RedisJobQueue pushes worker jobs as JSON onto Redis lists; the workers
// consume them with BLPop.
type RedisJobQueue struct {
	rdb *redis.Client
}

// NewRedisJobQueue creates a RedisJobQueue.
func NewRedisJobQueue(rdb *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{rdb: rdb}
}

// EnqueueAnswer queues one autosaved answer for durable persistence.
func (q *RedisJobQueue) EnqueueAnswer(ctx context.Context, job model.AnswerJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err()
}

// EnqueueScore queues a submitted session for scoring.
func (q *RedisJobQueue) EnqueueScore(ctx context.Context, job model.ScoreJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.ScoreSessionsQueue, raw).Err()
}
