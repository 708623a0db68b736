package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionAbuseRepository counts sandbox timeouts per user inside a rolling window.
type SubmissionAbuseRepository interface {
	RecordTimeout(ctx context.Context, userID string) (int64, error)
	TimeoutCount(ctx context.Context, userID string) (int64, error)
}

type redisSubmissionAbuseRepository struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRedisSubmissionAbuseRepository(rdb *redis.Client, window time.Duration) SubmissionAbuseRepository {
	return &redisSubmissionAbuseRepository{rdb: rdb, window: window}
}

func abuseKey(userID string) string {
	return "sandbox:timeouts:" + userID
}

func (r *redisSubmissionAbuseRepository) RecordTimeout(ctx context.Context, userID string) (int64, error) {
	key := abuseKey(userID)
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redisSubmissionAbuseRepository.RecordTimeout: %w", err)
	}
	if n == 1 {
		// first timeout opens the window
		if err := r.rdb.Expire(ctx, key, r.window).Err(); err != nil {
			return n, fmt.Errorf("redisSubmissionAbuseRepository.RecordTimeout expire: %w", err)
		}
	}
	return n, nil
}

func (r *redisSubmissionAbuseRepository) TimeoutCount(ctx context.Context, userID string) (int64, error) {
	n, err := r.rdb.Get(ctx, abuseKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redisSubmissionAbuseRepository.TimeoutCount: %w", err)
	}
	return n, nil
}
