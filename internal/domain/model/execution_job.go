package model

import "time"

const JobTypeChallengeValidation = "challenge_validation"

// ValidationJob is the queue payload asking the worker to check a new
// challenge's reference solutions against its test cases.
type ValidationJob struct {
	ID          string    `json:"id"`
	JobType     string    `json:"job_type"`
	ChallengeID string    `json:"challenge_id"`
	Attempts    int       `json:"attempts"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
