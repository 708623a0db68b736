package service

import (
	"context"
	"log/slog"
	"time"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"

	"github.com/google/uuid"
)

type ExecutionJobService struct {
	queue  repository.ValidationJobQueue
	logger *slog.Logger
}

func NewExecutionJobService(queue repository.ValidationJobQueue, logger *slog.Logger) *ExecutionJobService {
	return &ExecutionJobService{queue: queue, logger: logger}
}

// EnqueueChallengeValidation asks the worker to run the challenge's reference
// solutions against its test cases.
func (s *ExecutionJobService) EnqueueChallengeValidation(ctx context.Context, challengeID string) (*model.ValidationJob, error) {
	job := &model.ValidationJob{
		ID:          uuid.NewString(),
		JobType:     model.JobTypeChallengeValidation,
		ChallengeID: challengeID,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, common.Errorf("failed to enqueue validation job: %w", err)
	}
	s.logger.Info("Validation job enqueued", "job_id", job.ID, "challenge_id", challengeID)
	return job, nil
}
