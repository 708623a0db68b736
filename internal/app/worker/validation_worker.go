package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"habit_hero/internal/app/judge"
	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 3
	popTimeout         = 5 * time.Second
)

// releaseLock deletes the lock only while we still own it.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// ValidationWorker publishes or rejects newly created challenges by running
// their reference solutions against the stored test cases. Only one
// validation runs at a time across all workers sharing lockKey.
type ValidationWorker struct {
	rdb           *redis.Client
	queueName     string
	lockKey       string
	lockTTL       time.Duration
	challengeRepo repository.ChallengeRepository
	verifier      *judge.Verifier
	logger        *slog.Logger

	MaxAttempts  int
	RequeueDelay time.Duration
}

func NewValidationWorker(
	rdb *redis.Client,
	queueName, lockKey string,
	lockTTL time.Duration,
	challengeRepo repository.ChallengeRepository,
	verifier *judge.Verifier,
	logger *slog.Logger,
) *ValidationWorker {
	return &ValidationWorker{
		rdb:           rdb,
		queueName:     queueName,
		lockKey:       lockKey,
		lockTTL:       lockTTL,
		challengeRepo: challengeRepo,
		verifier:      verifier,
		logger:        logger.With("component", "validation_worker"),
		MaxAttempts:   defaultMaxAttempts,
		RequeueDelay:  time.Second,
	}
}

func (w *ValidationWorker) Start(ctx context.Context) {
	w.logger.Info("Validation worker started", "queue", w.queueName)
	for {
		if ctx.Err() != nil {
			w.logger.Info("Validation worker stopping")
			return
		}

		res, err := w.rdb.BRPop(ctx, popTimeout, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.logger.Info("Validation worker stopping")
				return
			}
			w.logger.Error("Failed to pop from validation queue", "error", err)
			w.sleep(ctx, 5*time.Second)
			continue
		}
		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			w.logger.Warn("BRPop returned an empty payload")
			continue
		}

		var job model.ValidationJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			w.logger.Error("Dropping malformed validation job", "payload", res[1], "error", err)
			continue
		}
		w.processWithLock(ctx, &job)
	}
}

func (w *ValidationWorker) processWithLock(ctx context.Context, job *model.ValidationJob) {
	log := w.logger.With("job_id", job.ID, "challenge_id", job.ChallengeID)
	lockValue := uuid.NewString()

	ok, err := w.rdb.SetNX(ctx, w.lockKey, lockValue, w.lockTTL).Result()
	if err != nil {
		log.Error("Failed to acquire validation lock", "error", err)
		w.requeue(ctx, job)
		return
	}
	if !ok {
		log.Info("Validation lock busy, re-queueing")
		w.requeue(ctx, job)
		return
	}
	defer func() {
		// Release with a fresh context so shutdown does not leak the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseLock.Run(releaseCtx, w.rdb, []string{w.lockKey}, lockValue).Err(); err != nil {
			log.Error("Failed to release validation lock", "error", err)
		}
	}()

	if err := w.HandleJob(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts >= w.MaxAttempts {
			log.Error("Giving up on validation job", "attempts", job.Attempts, "error", err)
			return
		}
		log.Warn("Validation job failed, retrying", "attempts", job.Attempts, "error", err)
		w.requeue(ctx, job)
	}
}

// HandleJob validates one challenge. A returned error is transient and the
// job may be retried; permanent outcomes are persisted and return nil.
func (w *ValidationWorker) HandleJob(ctx context.Context, job *model.ValidationJob) error {
	log := w.logger.With("job_id", job.ID, "challenge_id", job.ChallengeID)
	if job.JobType != model.JobTypeChallengeValidation {
		log.Warn("Ignoring job of unknown type", "job_type", job.JobType)
		return nil
	}

	challenge, err := w.challengeRepo.FindChallengeByID(ctx, job.ChallengeID)
	if errors.Is(err, common.ErrNotFound) {
		log.Warn("Challenge no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if challenge.Status != model.StatusPendingValidation {
		log.Info("Challenge already validated", "status", challenge.Status)
		return nil
	}

	cases, err := w.challengeRepo.GetTestCasesByChallengeID(ctx, challenge.ID)
	if err != nil {
		return fmt.Errorf("load test cases: %w", err)
	}
	solutions, err := w.challengeRepo.GetSolutionsByChallengeID(ctx, challenge.ID, model.SolutionApproved)
	if err != nil {
		return fmt.Errorf("load solutions: %w", err)
	}

	status, reason, err := w.evaluate(ctx, cases, solutions)
	if err != nil {
		return fmt.Errorf("verify solutions: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.challengeRepo.UpdateChallengeStatus(ctx, nil, challenge.ID, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if status == model.StatusPublished {
		log.Info("Challenge published", "solutions", len(solutions), "test_cases", len(cases))
	} else {
		log.Warn("Challenge rejected", "reason", reason)
	}
	return nil
}

// evaluate returns an error only when the sandbox itself failed; the job is
// then retried rather than rejected.
func (w *ValidationWorker) evaluate(ctx context.Context, cases []model.TestCase, solutions []model.Solution) (model.ChallengeStatus, string, error) {
	if len(cases) == 0 {
		return model.StatusRejected, "no test cases", nil
	}
	if len(solutions) == 0 {
		return model.StatusRejected, "no reference solutions", nil
	}
	for _, sol := range solutions {
		verdict, err := w.verifier.Verify(ctx, sol.Code, cases)
		if err != nil {
			return "", "", err
		}
		if !verdict.Passed {
			return model.StatusRejected, fmt.Sprintf("solution %s: %v", sol.ID, verdict.Cause), nil
		}
	}
	return model.StatusPublished, "", nil
}

// requeue puts the job back at the tail, behind jobs that are already waiting.
// Producers LPUSH and the loop BRPOPs, so the tail is the left end.
func (w *ValidationWorker) requeue(ctx context.Context, job *model.ValidationJob) {
	w.sleep(ctx, w.RequeueDelay)
	payload, err := json.Marshal(job)
	if err != nil {
		w.logger.Error("Failed to encode job for re-queue", "job_id", job.ID, "error", err)
		return
	}
	// The job is pushed back even during shutdown so it survives a restart.
	if err := w.rdb.LPush(context.WithoutCancel(ctx), w.queueName, payload).Err(); err != nil {
		w.logger.Error("Failed to re-queue job", "job_id", job.ID, "error", err)
	}
}

func (w *ValidationWorker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
