package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"habit_hero/internal/app/sandbox"
	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ChallengeService struct {
	tx             repository.Transactor
	challengeRepo  repository.ChallengeRepository
	execJobService *ExecutionJobService
	maxCodeLength  int
	logger         *slog.Logger
}

func NewChallengeService(
	tx repository.Transactor,
	challengeRepo repository.ChallengeRepository,
	execJobService *ExecutionJobService,
	maxCodeLength int,
	logger *slog.Logger,
) *ChallengeService {
	return &ChallengeService{
		tx:             tx,
		challengeRepo:  challengeRepo,
		execJobService: execJobService,
		maxCodeLength:  maxCodeLength,
		logger:         logger,
	}
}

type CreateChallengeRequest struct {
	Title            string                    `json:"title"`
	Description      string                    `json:"description"`
	Difficulty       model.ChallengeDifficulty `json:"difficulty"`
	CodeSnippet      string                    `json:"code_snippet"`
	RewardCurrency   int                       `json:"reward_currency"`
	RewardExperience int                       `json:"reward_experience"`
	TestCases        []model.TestCase          `json:"test_cases"`
	Solutions        []string                  `json:"solutions"` // reference solutions, checked by the worker
}

func (s *ChallengeService) ListChallenges(ctx context.Context, userRole string, difficulty model.ChallengeDifficulty) ([]model.Challenge, error) {
	if difficulty != "" && !difficulty.Valid() {
		return nil, common.Errorf("%w: unknown difficulty %q", common.ErrValidation, difficulty)
	}
	status := model.StatusPublished
	if userRole == model.RoleAdmin {
		status = "" // admins see every status
	}
	return s.challengeRepo.ListChallenges(ctx, difficulty, status)
}

// GetChallenge hides unpublished challenges from regular users. Test cases and
// solutions are only attached for admins.
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID, userRole string) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if userRole != model.RoleAdmin {
		if challenge.Status != model.StatusPublished {
			return nil, common.ErrNotFound
		}
		return challenge, nil
	}

	if challenge.TestCases, err = s.challengeRepo.GetTestCasesByChallengeID(ctx, challenge.ID); err != nil {
		return nil, common.Errorf("failed to load test cases: %w", err)
	}
	if challenge.Solutions, err = s.challengeRepo.GetSolutionsByChallengeID(ctx, challenge.ID, ""); err != nil {
		return nil, common.Errorf("failed to load solutions: %w", err)
	}
	return challenge, nil
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, userID string, req CreateChallengeRequest) (*model.Challenge, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return nil, common.Errorf("%w: title and description are required", common.ErrValidation)
	}
	if !req.Difficulty.Valid() {
		return nil, common.Errorf("%w: difficulty must be Easy, Medium or Hard", common.ErrValidation)
	}
	if len(req.TestCases) == 0 {
		return nil, common.Errorf("%w: at least one test case is required", common.ErrValidation)
	}
	if len(req.Solutions) == 0 {
		return nil, common.Errorf("%w: at least one reference solution is required", common.ErrValidation)
	}
	if req.RewardCurrency < 0 || req.RewardExperience < 0 {
		return nil, common.Errorf("%w: rewards must not be negative", common.ErrValidation)
	}
	for i, src := range req.Solutions {
		if err := s.checkCode(src); err != nil {
			return nil, err
		}
		if _, err := sandbox.FunctionName(src); err != nil {
			return nil, common.Errorf("%w: solution %d: %v", common.ErrValidation, i+1, err)
		}
	}

	challenge := &model.Challenge{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(req.Title),
		Slug:             slug.Make(req.Title),
		Description:      req.Description,
		Difficulty:       req.Difficulty,
		Status:           model.StatusPendingValidation,
		CodeSnippet:      req.CodeSnippet,
		RewardCurrency:   req.RewardCurrency,
		RewardExperience: req.RewardExperience,
		CreatedByID:      &userID,
	}

	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.challengeRepo.CreateChallenge(ctx, tx, challenge); err != nil {
			return err
		}
		if err := s.challengeRepo.AddTestCasesToChallenge(ctx, tx, challenge.ID, req.TestCases); err != nil {
			return err
		}
		for _, src := range req.Solutions {
			if _, err := s.challengeRepo.AddApprovedSolution(ctx, tx, challenge.ID, &userID, src); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, common.Errorf("failed to create challenge: %w", err)
	}

	if _, err := s.execJobService.EnqueueChallengeValidation(ctx, challenge.ID); err != nil {
		// The challenge stays PendingValidation and can be re-enqueued.
		s.logger.Error("Failed to enqueue validation job", "challenge_id", challenge.ID, "error", err)
	}
	challenge.TestCases = req.TestCases
	return challenge, nil
}

// ProposeSolution files an alternative solution for admin review.
func (s *ChallengeService) ProposeSolution(ctx context.Context, userID, challengeID, code string) (*model.Solution, error) {
	if err := s.checkCode(code); err != nil {
		return nil, err
	}
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Status != model.StatusPublished {
		return nil, common.ErrNotFound
	}
	solution := &model.Solution{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		UserID:      &userID,
		Code:        code,
	}
	if err := s.challengeRepo.AddPendingSolution(ctx, nil, solution); err != nil {
		return nil, err
	}
	return solution, nil
}

func (s *ChallengeService) ReviewSolution(ctx context.Context, challengeID, solutionID string, approve bool) (*model.Solution, error) {
	status := model.SolutionRejected
	if approve {
		status = model.SolutionApproved
	}
	solution, err := s.challengeRepo.ReviewSolution(ctx, nil, challengeID, solutionID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Solution reviewed", "challenge_id", challengeID, "solution_id", solutionID, "status", status)
	return solution, nil
}

func (s *ChallengeService) checkCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return common.Errorf("%w: code must not be empty", common.ErrValidation)
	}
	if s.maxCodeLength > 0 && len(code) > s.maxCodeLength {
		return common.Errorf("%w: code exceeds %d characters", common.ErrValidation, s.maxCodeLength)
	}
	return nil
}
