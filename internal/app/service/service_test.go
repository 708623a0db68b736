package service

import (
	"context"
	"io"
	"time"

	"habit_hero/internal/app/combat"
	"habit_hero/internal/app/judge"
	"habit_hero/internal/app/progression"
	"habit_hero/internal/app/sandbox"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository/fake"
	"habit_hero/internal/platform/logger"
)

var testLogger = logger.NewWithWriter(io.Discard, "error")

type submissionFixture struct {
	svc         *SubmissionService
	tx          *fake.Transactor
	challenges  *fake.Challenges
	villains    *fake.Villains
	users       *fake.Users
	leaderboard *fake.Leaderboard
	abuse       *fake.Abuse
	executor    *countingExecutor
}

type countingExecutor struct {
	sandbox.Executor
	calls int
}

func (c *countingExecutor) Invoke(ctx context.Context, source, name string, args []any) (any, error) {
	c.calls++
	return c.Executor.Invoke(ctx, source, name, args)
}

func newSubmissionFixture(timeout time.Duration) *submissionFixture {
	return newSubmissionFixtureWithDeadline(timeout, 5*time.Second)
}

// newSubmissionFixtureWithDeadline sets the per-invocation sandbox timeout and
// the deadline shared by every test case of one submission.
func newSubmissionFixtureWithDeadline(timeout, submitTimeout time.Duration) *submissionFixture {
	f := &submissionFixture{
		tx:          &fake.Transactor{},
		challenges:  fake.NewChallenges(),
		villains:    fake.NewVillains(&model.Villain{ID: "v-1", Name: "Glitch Goblin", HP: 30, Difficulty: model.DifficultyEasy}),
		users:       fake.NewUsers(&model.User{ID: "u-1", Username: "kakiro", Currency: 0, Experience: 20, MapTier: "Kakiro's village"}),
		leaderboard: fake.NewLeaderboard(),
		abuse:       fake.NewAbuse(),
		executor:    &countingExecutor{Executor: sandbox.NewGojaExecutor(timeout, 512)},
	}
	engine := progression.NewEngine(f.users, progression.DefaultTiers, 10, 5)
	f.svc = NewSubmissionService(
		f.tx, f.challenges, f.villains,
		judge.NewVerifier(f.executor),
		engine,
		combat.NewHandler(f.villains, engine, 5),
		f.leaderboard, f.abuse,
		10000,
		submitTimeout,
		testLogger,
	)
	return f
}

func publishedSum() *model.Challenge {
	return &model.Challenge{
		ID:          "ch-sum",
		Title:       "Sum",
		Difficulty:  model.DifficultyEasy,
		Status:      model.StatusPublished,
		CodeSnippet: "function sum(a, b) {\n\n}",
	}
}

func sumCase() model.TestCase {
	return model.TestCase{ID: "tc-1", Input: []any{1.0, 2.0}, Expected: 3.0}
}
