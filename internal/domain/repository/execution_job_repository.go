package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"habit_hero/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// ValidationJobQueue is a Redis list; producers LPUSH and the worker BRPOPs.
type ValidationJobQueue interface {
	Enqueue(ctx context.Context, job *model.ValidationJob) error
}

type redisValidationJobQueue struct {
	rdb   *redis.Client
	queue string
}

func NewRedisValidationJobQueue(rdb *redis.Client, queue string) ValidationJobQueue {
	return &redisValidationJobQueue{rdb: rdb, queue: queue}
}

func (q *redisValidationJobQueue) Enqueue(ctx context.Context, job *model.ValidationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redisValidationJobQueue.Enqueue marshal: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.queue, payload).Err(); err != nil {
		return fmt.Errorf("redisValidationJobQueue.Enqueue push: %w", err)
	}
	return nil
}
