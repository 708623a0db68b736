package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
)

func TestSubmitAcceptedScenario(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())

	res, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){return a+b;}",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("expected accepted, got %+v", res)
	}
	if u := f.users.Get("u-1"); u.Currency != 10 || u.Experience != 20 {
		t.Fatalf("user progress = %+v, want currency 10 experience 20", u)
	}
	if v := f.villains.Get("v-1"); v.HP != 25 {
		t.Fatalf("villain hp = %d, want 25", v.HP)
	}
	if res.VillainHP == nil || *res.VillainHP != 25 || res.VillainDefeated {
		t.Fatalf("unexpected villain outcome %+v", res)
	}
	if got := f.challenges.Solutions("ch-sum", model.SolutionApproved); len(got) != 1 {
		t.Fatalf("expected one approved solution, got %d", len(got))
	}
	if ch := f.challenges.Get("ch-sum"); ch.CodeSnippet != "" {
		t.Fatalf("code snippet should be cleared, got %q", ch.CodeSnippet)
	}
	if f.leaderboard.Scores["u-1"] != 10 {
		t.Fatalf("leaderboard not updated: %v", f.leaderboard.Scores)
	}
	if f.tx.Calls != 1 {
		t.Fatalf("expected one transaction, got %d", f.tx.Calls)
	}
}

func TestSubmitRejectedScenario(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())

	res, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){return a-b;}",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Accepted {
		t.Fatalf("expected rejection")
	}
	if res.FailedTestCase == nil || *res.FailedTestCase != 0 {
		t.Fatalf("expected failing case 0, got %v", res.FailedTestCase)
	}
	if u := f.users.Get("u-1"); u.Experience != 15 || u.Currency != 0 {
		t.Fatalf("user progress = %+v, want experience 15 currency 0", u)
	}
	if v := f.villains.Get("v-1"); v.HP != 30 {
		t.Fatalf("villain hp changed on rejection: %d", v.HP)
	}
	if got := f.challenges.Solutions("ch-sum", ""); len(got) != 0 {
		t.Fatalf("rejected code must not be stored, got %d", len(got))
	}
	if strings.Contains(res.Message, "3") {
		t.Fatalf("rejection message leaks expected value: %q", res.Message)
	}
}

func TestSubmitNoTestCases(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum())

	_, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){return a+b;}",
	})
	if !errors.Is(err, common.ErrValidation) || !strings.Contains(err.Error(), "no test cases") {
		t.Fatalf("expected no test cases validation error, got %v", err)
	}
	if f.executor.calls != 0 {
		t.Fatalf("verifier must not run, executor called %d times", f.executor.calls)
	}
	if f.tx.Calls != 0 {
		t.Fatalf("no state may change")
	}
}

func TestSubmitNoFunctionDeclaration(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())

	res, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "const sum = (a, b) => a + b;",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Accepted || !strings.Contains(res.Message, "no function declaration") {
		t.Fatalf("expected NoFunctionFound rejection, got %+v", res)
	}
	if u := f.users.Get("u-1"); u.Experience != 15 {
		t.Fatalf("penalty not applied: %+v", u)
	}
}

func TestSubmitIdempotentSolutions(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())
	req := model.SubmitRequest{ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){return a+b;}"}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Submit(context.Background(), "u-1", req); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if got := f.challenges.Solutions("ch-sum", model.SolutionApproved); len(got) != 1 {
		t.Fatalf("expected exactly one stored copy, got %d", len(got))
	}
	if u := f.users.Get("u-1"); u.Currency != 20 {
		t.Fatalf("each accepted submission still rewards, currency = %d", u.Currency)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())
	f.challenges.Put(&model.Challenge{ID: "ch-draft", Status: model.StatusPendingValidation}, sumCase())

	tests := []struct {
		name string
		req  model.SubmitRequest
		want error
	}{
		{"blank code", model.SubmitRequest{ChallengeID: "ch-sum", VillainID: "v-1", Code: "   \n"}, common.ErrValidation},
		{"too long", model.SubmitRequest{ChallengeID: "ch-sum", VillainID: "v-1", Code: strings.Repeat("x", 10001)}, common.ErrValidation},
		{"missing villain id", model.SubmitRequest{ChallengeID: "ch-sum", Code: "function f(){}"}, common.ErrValidation},
		{"unknown challenge", model.SubmitRequest{ChallengeID: "nope", VillainID: "v-1", Code: "function f(){}"}, common.ErrNotFound},
		{"unpublished", model.SubmitRequest{ChallengeID: "ch-draft", VillainID: "v-1", Code: "function f(){}"}, common.ErrForbidden},
		{"unknown villain", model.SubmitRequest{ChallengeID: "ch-sum", VillainID: "v-404", Code: "function f(){}"}, common.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), "u-1", tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if f.executor.calls != 0 {
		t.Fatalf("invalid submissions must not execute code")
	}
}

func TestSubmitValidationOrder(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum())
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "u-1", model.SubmitRequest{ChallengeID: "nope", Code: "function f(){}"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("a missing challenge outranks a missing villain id, got %v", err)
	}

	_, err = f.svc.Submit(ctx, "u-1", model.SubmitRequest{ChallengeID: "ch-sum", Code: "function f(){}"})
	if !errors.Is(err, common.ErrValidation) || !strings.Contains(err.Error(), "no test cases") {
		t.Fatalf("missing test cases outrank a missing villain id, got %v", err)
	}
}

func TestSubmitCasesShareOneDeadline(t *testing.T) {
	// Each case fits the sandbox timeout on its own; together they do not fit the submission deadline.
	f := newSubmissionFixtureWithDeadline(time.Second, 250*time.Millisecond)
	cases := make([]model.TestCase, 6)
	for i := range cases {
		cases[i] = sumCase()
	}
	f.challenges.Put(publishedSum(), cases...)

	start := time.Now()
	res, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1",
		Code: "function sum(a,b){ var end = Date.now() + 100; while (Date.now() < end) {} return a+b; }",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Accepted {
		t.Fatalf("a run past the submission deadline must be rejected")
	}
	if !strings.Contains(res.Message, "too long") {
		t.Fatalf("expected a timeout rejection, got %q", res.Message)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("submission ran for %v", elapsed)
	}
	if f.executor.calls >= len(cases) {
		t.Fatalf("cases past the deadline must not run, executor called %d times", f.executor.calls)
	}
	if f.abuse.Counts["u-1"] != 1 {
		t.Fatalf("timeout not recorded: %v", f.abuse.Counts)
	}
}

func TestSubmitAbandonedByCallerIsNotPenalised(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	_, err := f.svc.Submit(ctx, "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){ for(;;){} }",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.tx.Calls != 0 {
		t.Fatalf("no penalty may be applied")
	}
	if u := f.users.Get("u-1"); u.Experience != 20 {
		t.Fatalf("experience changed: %+v", u)
	}
	if len(f.abuse.Counts) != 0 {
		t.Fatalf("timeout must not be recorded: %v", f.abuse.Counts)
	}
}

func TestSubmitTimeoutIsRejectedAndRecorded(t *testing.T) {
	f := newSubmissionFixture(40 * time.Millisecond)
	f.challenges.Put(publishedSum(), sumCase())

	res, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){ while(true){} }",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Accepted {
		t.Fatalf("timeout must be a rejection")
	}
	if f.abuse.Counts["u-1"] != 1 {
		t.Fatalf("timeout not recorded: %v", f.abuse.Counts)
	}
}

func TestSubmitPersistenceFailure(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())
	f.villains.Err = errors.New("connection reset by peer")

	_, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){return a+b;}",
	})
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	if common.HTTPStatusFromError(err) != 500 {
		t.Fatalf("persistence failure should map to 500, got %d", common.HTTPStatusFromError(err))
	}
	if len(f.leaderboard.Scores) != 0 {
		t.Fatalf("leaderboard must not change when the transaction fails")
	}
}

func TestSubmitDefeatsVillain(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())
	if err := f.villains.UpdateHP(context.Background(), nil, "v-1", 5); err != nil {
		t.Fatalf("UpdateHP failed: %v", err)
	}

	res, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){return a+b;}",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !res.VillainDefeated || res.VillainHP == nil || *res.VillainHP != 0 {
		t.Fatalf("expected defeated villain, got %+v", res)
	}
	if !strings.Contains(res.Message, "defeated") {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestSubmitLeaderboardFailureIsBestEffort(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.challenges.Put(publishedSum(), sumCase())
	f.leaderboard.Err = errors.New("redis down")

	res, err := f.svc.Submit(context.Background(), "u-1", model.SubmitRequest{
		ChallengeID: "ch-sum", VillainID: "v-1", Code: "function sum(a,b){return a+b;}",
	})
	if err != nil || !res.Accepted {
		t.Fatalf("leaderboard errors must not fail the submission: %+v %v", res, err)
	}
}
