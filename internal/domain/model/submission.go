package model

// SubmitRequest is a single attempt at a challenge. It is never persisted.
type SubmitRequest struct {
	ChallengeID string `json:"challenge_id"`
	VillainID   string `json:"villain_id"`
	Code        string `json:"code"`
}

type SubmissionResult struct {
	Accepted        bool   `json:"accepted"`
	Message         string `json:"message"`
	Currency        int    `json:"currency"`
	Experience      int    `json:"experience"`
	MapTier         string `json:"map_tier"`
	VillainHP       *int   `json:"villain_hp,omitempty"`
	VillainDefeated bool   `json:"villain_defeated"`
	FailedTestCase  *int   `json:"failed_test_case,omitempty"`
}
