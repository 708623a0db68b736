package model

import (
	"time"
)

type ChallengeDifficulty string
type ChallengeStatus string
type SolutionStatus string

const (
	DifficultyEasy   ChallengeDifficulty = "Easy"
	DifficultyMedium ChallengeDifficulty = "Medium"
	DifficultyHard   ChallengeDifficulty = "Hard"

	StatusDraft             ChallengeStatus = "Draft"
	StatusPendingValidation ChallengeStatus = "PendingValidation"
	StatusPublished         ChallengeStatus = "Published"
	StatusRejected          ChallengeStatus = "Rejected"

	SolutionApproved SolutionStatus = "approved"
	SolutionPending  SolutionStatus = "pending"
	SolutionRejected SolutionStatus = "rejected"
)

func (d ChallengeDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Challenge struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Slug             string              `json:"slug"`
	Description      string              `json:"description"`
	Difficulty       ChallengeDifficulty `json:"difficulty"`
	Status           ChallengeStatus     `json:"status"`
	CodeSnippet      string              `json:"code_snippet"`
	RewardCurrency   int                 `json:"reward_currency"`
	RewardExperience int                 `json:"reward_experience"`
	CreatedByID      *string             `json:"created_by_id,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	TestCases        []TestCase          `json:"test_cases,omitempty"` // admin only view
	Solutions        []Solution          `json:"solutions,omitempty"`  // admin only view
}

// TestCase holds decoded JSON values: numbers are float64, arrays []any, objects map[string]any.
type TestCase struct {
	ID          string `json:"id"`
	ChallengeID string `json:"challenge_id"`
	Input       []any  `json:"input"`
	Expected    any    `json:"expected"`
	SortOrder   int    `json:"sort_order"`
}

type Solution struct {
	ID          string         `json:"id"`
	ChallengeID string         `json:"challenge_id"`
	UserID      *string        `json:"user_id,omitempty"`
	Code        string         `json:"code"`
	Status      SolutionStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty"`
}
