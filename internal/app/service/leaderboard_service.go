package service

import (
	"context"
	"errors"
	"log/slog"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type LeaderboardService struct {
	leaderboard repository.LeaderboardRepository
	userRepo    repository.UserRepository
	logger      *slog.Logger
}

func NewLeaderboardService(leaderboard repository.LeaderboardRepository, userRepo repository.UserRepository, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{leaderboard: leaderboard, userRepo: userRepo, logger: logger}
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	limit = min(limit, maxLeaderboardLimit)

	scores, err := s.leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, common.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(scores))
	for _, score := range scores {
		user, err := s.userRepo.FindByID(ctx, score.UserID)
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn("Leaderboard references unknown user", "user_id", score.UserID)
			continue
		}
		if err != nil {
			return nil, common.Errorf("failed to resolve leaderboard user: %w", err)
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:     len(entries) + 1,
			UserID:   user.ID,
			Username: user.Username,
			Currency: score.Currency,
			MapTier:  user.MapTier,
		})
	}
	return entries, nil
}
