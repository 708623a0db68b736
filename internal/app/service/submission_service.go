package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"habit_hero/internal/app/combat"
	"habit_hero/internal/app/judge"
	"habit_hero/internal/app/progression"
	"habit_hero/internal/app/sandbox"
	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"
)

type SubmissionService struct {
	tx            repository.Transactor
	challengeRepo repository.ChallengeRepository
	villainRepo   repository.VillainRepository
	verifier      *judge.Verifier
	progression   *progression.Engine
	combat        *combat.Handler
	leaderboard   repository.LeaderboardRepository
	abuse         repository.SubmissionAbuseRepository
	maxCodeLength int
	submitTimeout time.Duration
	logger        *slog.Logger
}

func NewSubmissionService(
	tx repository.Transactor,
	challengeRepo repository.ChallengeRepository,
	villainRepo repository.VillainRepository,
	verifier *judge.Verifier,
	engine *progression.Engine,
	combatHandler *combat.Handler,
	leaderboard repository.LeaderboardRepository,
	abuse repository.SubmissionAbuseRepository,
	maxCodeLength int,
	submitTimeout time.Duration,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		tx:            tx,
		challengeRepo: challengeRepo,
		villainRepo:   villainRepo,
		verifier:      verifier,
		progression:   engine,
		combat:        combatHandler,
		leaderboard:   leaderboard,
		abuse:         abuse,
		maxCodeLength: maxCodeLength,
		submitTimeout: submitTimeout,
		logger:        logger,
	}
}

// Submit judges one attempt at a challenge and applies the reward or the
// penalty. A wrong answer is not an error: it comes back with Accepted=false.
// All test cases share one deadline of submitTimeout.
func (s *SubmissionService) Submit(ctx context.Context, userID string, req model.SubmitRequest) (*model.SubmissionResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, common.Errorf("%w: code must not be empty", common.ErrValidation)
	}
	if s.maxCodeLength > 0 && len(req.Code) > s.maxCodeLength {
		return nil, common.Errorf("%w: code exceeds %d characters", common.ErrValidation, s.maxCodeLength)
	}
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, req.ChallengeID)
	if err != nil {
		return nil, common.Errorf("challenge %s: %w", req.ChallengeID, err)
	}
	testCases, err := s.challengeRepo.GetTestCasesByChallengeID(ctx, challenge.ID)
	if err != nil {
		return nil, common.Errorf("failed to load test cases: %w", err)
	}
	if len(testCases) == 0 {
		return nil, common.Errorf("%w: no test cases", common.ErrValidation)
	}
	if strings.TrimSpace(req.VillainID) == "" {
		return nil, common.Errorf("%w: villain_id is required", common.ErrValidation)
	}
	if challenge.Status != model.StatusPublished {
		return nil, common.Errorf("challenge is not published: %w", common.ErrForbidden)
	}
	villain, err := s.villainRepo.FindByID(ctx, req.VillainID)
	if err != nil {
		return nil, common.Errorf("villain %s: %w", req.VillainID, err)
	}

	verifyCtx := ctx
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}
	verdict, err := s.verifier.Verify(verifyCtx, req.Code, testCases)
	if err != nil {
		return nil, common.Errorf("failed to verify submission: %w", err)
	}
	// A caller that went away is not the author's fault.
	if err := ctx.Err(); err != nil {
		return nil, common.Errorf("submission abandoned: %w", err)
	}
	if errors.Is(verdict.Cause, sandbox.ErrTimeout) {
		s.recordTimeout(ctx, userID, challenge.ID)
	}

	if verdict.Passed {
		return s.accept(ctx, userID, challenge, villain, req.Code)
	}
	return s.reject(ctx, userID, challenge, villain, verdict)
}

func (s *SubmissionService) accept(ctx context.Context, userID string, challenge *model.Challenge, villain *model.Villain, code string) (*model.SubmissionResult, error) {
	var (
		user  *model.User
		hit   *model.Villain
		stage string
	)
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		stage = "add_solution"
		added, err := s.challengeRepo.AddApprovedSolution(ctx, tx, challenge.ID, &userID, code)
		if err != nil {
			return err
		}
		if !added {
			s.logger.Debug("Solution already approved", "challenge_id", challenge.ID, "user_id", userID)
		}

		stage = "clear_snippet"
		if err := s.challengeRepo.ClearCodeSnippet(ctx, tx, challenge.ID); err != nil {
			return err
		}

		stage = "reward"
		if user, err = s.progression.Reward(ctx, tx, userID, challenge.RewardExperience); err != nil {
			return err
		}

		stage = "strike"
		hit, err = s.combat.Strike(ctx, tx, villain.ID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to persist accepted submission",
			"challenge_id", challenge.ID, "user_id", userID, "villain_id", villain.ID, "stage", stage, "error", err)
		return nil, common.Errorf("failed to save accepted submission: %w", err)
	}

	if err := s.leaderboard.SetScore(ctx, user.ID, user.Currency); err != nil {
		s.logger.Warn("Failed to update leaderboard", "user_id", user.ID, "error", err)
	}

	s.logger.Info("Submission accepted",
		"challenge_id", challenge.ID, "user_id", userID, "villain_id", hit.ID, "villain_hp", hit.HP, "map_tier", user.MapTier)

	hp := hit.HP
	msg := fmt.Sprintf("Challenge completed! %s takes a hit.", hit.Name)
	if hit.Defeated() {
		msg = fmt.Sprintf("Challenge completed! %s has been defeated.", hit.Name)
	}
	return &model.SubmissionResult{
		Accepted:        true,
		Message:         msg,
		Currency:        user.Currency,
		Experience:      user.Experience,
		MapTier:         user.MapTier,
		VillainHP:       &hp,
		VillainDefeated: hit.Defeated(),
	}, nil
}

func (s *SubmissionService) reject(ctx context.Context, userID string, challenge *model.Challenge, villain *model.Villain, verdict judge.Verdict) (*model.SubmissionResult, error) {
	var user *model.User
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = s.combat.Punish(ctx, tx, userID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to persist rejected submission",
			"challenge_id", challenge.ID, "user_id", userID, "villain_id", villain.ID, "stage", "penalty", "error", err)
		return nil, common.Errorf("failed to save rejected submission: %w", err)
	}

	s.logger.Info("Submission rejected",
		"challenge_id", challenge.ID, "user_id", userID, "failed_case", verdict.FailedCase, "cause", verdict.Cause)

	failed := verdict.FailedCase
	return &model.SubmissionResult{
		Accepted:       false,
		Message:        rejectionMessage(verdict),
		Currency:       user.Currency,
		Experience:     user.Experience,
		MapTier:        user.MapTier,
		FailedTestCase: &failed,
	}, nil
}

// rejectionMessage never echoes expected values; test cases stay hidden.
func rejectionMessage(v judge.Verdict) string {
	switch {
	case errors.Is(v.Cause, sandbox.ErrTimeout):
		return "Submission rejected: your code took too long to run"
	case errors.Is(v.Cause, sandbox.ErrNoFunctionFound):
		return "Submission rejected: no function declaration found"
	case errors.Is(v.Cause, sandbox.ErrExecution):
		return "Submission rejected: " + v.Cause.Error()
	default:
		return fmt.Sprintf("Submission rejected: test case %d failed", v.FailedCase+1)
	}
}

func (s *SubmissionService) recordTimeout(ctx context.Context, userID, challengeID string) {
	count, err := s.abuse.RecordTimeout(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to record sandbox timeout", "user_id", userID, "error", err)
	}
	s.logger.Warn("Sandbox timeout", "user_id", userID, "challenge_id", challengeID, "timeouts_in_window", count)
}
