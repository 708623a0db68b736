package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type LeaderboardScore struct {
	UserID   string
	Currency int
}

// LeaderboardRepository keeps a sorted set of currency per user.
type LeaderboardRepository interface {
	SetScore(ctx context.Context, userID string, currency int) error
	Top(ctx context.Context, limit int) ([]LeaderboardScore, error)
}

type redisLeaderboardRepository struct {
	rdb *redis.Client
	key string
}

func NewRedisLeaderboardRepository(rdb *redis.Client, key string) LeaderboardRepository {
	return &redisLeaderboardRepository{rdb: rdb, key: key}
}

func (r *redisLeaderboardRepository) SetScore(ctx context.Context, userID string, currency int) error {
	err := r.rdb.ZAdd(ctx, r.key, redis.Z{Score: float64(currency), Member: userID}).Err()
	if err != nil {
		return fmt.Errorf("redisLeaderboardRepository.SetScore: %w", err)
	}
	return nil
}

func (r *redisLeaderboardRepository) Top(ctx context.Context, limit int) ([]LeaderboardScore, error) {
	if limit <= 0 {
		return []LeaderboardScore{}, nil
	}
	zs, err := r.rdb.ZRevRangeWithScores(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisLeaderboardRepository.Top: %w", err)
	}
	scores := make([]LeaderboardScore, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		scores = append(scores, LeaderboardScore{UserID: member, Currency: int(z.Score)})
	}
	return scores, nil
}
