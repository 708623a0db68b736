package service

import (
	"context"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"
)

type UserService struct {
	userRepo      repository.UserRepository
	challengeRepo repository.ChallengeRepository
}

func NewUserService(userRepo repository.UserRepository, challengeRepo repository.ChallengeRepository) *UserService {
	return &UserService{userRepo: userRepo, challengeRepo: challengeRepo}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	solutions, err := s.challengeRepo.GetSolutionsByUserID(ctx, userID, "")
	if err != nil {
		return nil, common.Errorf("failed to load solutions: %w", err)
	}
	return &model.Profile{User: *user, Solutions: solutions}, nil
}
