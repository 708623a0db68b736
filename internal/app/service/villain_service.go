package service

import (
	"context"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"
)

type VillainService struct {
	villainRepo   repository.VillainRepository
	challengeRepo repository.ChallengeRepository
}

func NewVillainService(villainRepo repository.VillainRepository, challengeRepo repository.ChallengeRepository) *VillainService {
	return &VillainService{villainRepo: villainRepo, challengeRepo: challengeRepo}
}

func (s *VillainService) GetVillain(ctx context.Context, villainID string) (*model.Villain, error) {
	return s.villainRepo.FindByID(ctx, villainID)
}

// VillainForChallenge picks a random opponent of the challenge's difficulty.
func (s *VillainService) VillainForChallenge(ctx context.Context, challengeID string) (*model.Villain, error) {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	villain, err := s.villainRepo.FindRandomByDifficulty(ctx, challenge.Difficulty)
	if err != nil {
		return nil, common.Errorf("no %s villain available: %w", challenge.Difficulty, err)
	}
	return villain, nil
}
