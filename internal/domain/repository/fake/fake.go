// Package fake provides in-memory repository implementations for tests.
package fake

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"

	"github.com/google/uuid"
)

// Transactor runs fn without a real transaction. FailNext makes the next call
// return that error after fn succeeds, simulating a failed commit.
type Transactor struct {
	mu       sync.Mutex
	Calls    int
	FailNext error
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	t.mu.Lock()
	t.Calls++
	fail := t.FailNext
	t.FailNext = nil
	t.mu.Unlock()
	if err := fn(nil); err != nil {
		return err
	}
	return fail
}

type Users struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	Err   error
	Saves int
}

func NewUsers(users ...*model.User) *Users {
	u := &Users{byID: map[string]*model.User{}}
	for _, user := range users {
		u.byID[user.ID] = user
	}
	return u
}

func (u *Users) Get(id string) *model.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.byID[id]; ok {
		c := *user
		return &c
	}
	return nil
}

func (u *Users) Create(ctx context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.byID {
		if existing.Username == user.Username || existing.Email == user.Email {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
	}
	c := *user
	u.byID[user.ID] = &c
	return nil
}

func (u *Users) find(match func(*model.User) bool) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byID {
		if match(user) {
			c := *user
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.find(func(x *model.User) bool { return x.Email == email })
}

func (u *Users) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return u.find(func(x *model.User) bool { return x.Username == username })
}

func (u *Users) FindByID(ctx context.Context, id string) (*model.User, error) {
	return u.find(func(x *model.User) bool { return x.ID == id })
}

func (u *Users) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.User, error) {
	return u.FindByID(ctx, id)
}

func (u *Users) UpdateProgress(ctx context.Context, tx *sql.Tx, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	stored, ok := u.byID[user.ID]
	if !ok {
		return common.ErrNotFound
	}
	stored.Currency, stored.Experience, stored.Hearts = user.Currency, user.Experience, user.Hearts
	u.Saves++
	return nil
}

func (u *Users) UpdateMapTier(ctx context.Context, tx *sql.Tx, id, tier string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	stored, ok := u.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	stored.MapTier = tier
	return nil
}

type Villains struct {
	mu   sync.Mutex
	byID map[string]*model.Villain
	Err  error
}

func NewVillains(villains ...*model.Villain) *Villains {
	v := &Villains{byID: map[string]*model.Villain{}}
	for _, villain := range villains {
		v.byID[villain.ID] = villain
	}
	return v
}

func (v *Villains) Get(id string) *model.Villain {
	v.mu.Lock()
	defer v.mu.Unlock()
	if villain, ok := v.byID[id]; ok {
		c := *villain
		return &c
	}
	return nil
}

func (v *Villains) Create(ctx context.Context, tx *sql.Tx, villain *model.Villain) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := *villain
	v.byID[villain.ID] = &c
	return nil
}

func (v *Villains) FindByID(ctx context.Context, id string) (*model.Villain, error) {
	if villain := v.Get(id); villain != nil {
		return villain, nil
	}
	return nil, common.ErrNotFound
}

func (v *Villains) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Villain, error) {
	return v.FindByID(ctx, id)
}

func (v *Villains) FindRandomByDifficulty(ctx context.Context, difficulty model.ChallengeDifficulty) (*model.Villain, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, 0, len(v.byID))
	for id, villain := range v.byID {
		if villain.Difficulty == difficulty {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, common.ErrNotFound
	}
	sort.Strings(ids)
	c := *v.byID[ids[0]]
	return &c, nil
}

func (v *Villains) UpdateHP(ctx context.Context, tx *sql.Tx, id string, hp int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Err != nil {
		return v.Err
	}
	villain, ok := v.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	villain.HP = hp
	return nil
}

type Challenges struct {
	mu        sync.Mutex
	byID      map[string]*model.Challenge
	testCases map[string][]model.TestCase
	solutions []model.Solution
	Err       error
}

func NewChallenges() *Challenges {
	return &Challenges{byID: map[string]*model.Challenge{}, testCases: map[string][]model.TestCase{}}
}

// Put stores a challenge together with its test cases.
func (c *Challenges) Put(ch *model.Challenge, cases ...model.TestCase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *ch
	c.byID[ch.ID] = &cp
	c.testCases[ch.ID] = append([]model.TestCase(nil), cases...)
}

func (c *Challenges) Get(id string) *model.Challenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.byID[id]; ok {
		cp := *ch
		return &cp
	}
	return nil
}

// Solutions returns the stored solutions for a challenge with the given status.
func (c *Challenges) Solutions(challengeID string, status model.SolutionStatus) []model.Solution {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Solution
	for _, s := range c.solutions {
		if s.ChallengeID == challengeID && (status == "" || s.Status == status) {
			out = append(out, s)
		}
	}
	return out
}

func (c *Challenges) CreateChallenge(ctx context.Context, tx *sql.Tx, ch *model.Challenge) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.byID {
		if existing.Slug == ch.Slug {
			return fmt.Errorf("challenge with this slug already exists: %w", common.ErrConflict)
		}
	}
	cp := *ch
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	c.byID[ch.ID] = &cp
	return nil
}

func (c *Challenges) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	if ch := c.Get(id); ch != nil {
		return ch, nil
	}
	return nil, common.ErrNotFound
}

func (c *Challenges) ListChallenges(ctx context.Context, difficulty model.ChallengeDifficulty, status model.ChallengeStatus) ([]model.Challenge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []model.Challenge{}
	for _, ch := range c.byID {
		if (difficulty == "" || ch.Difficulty == difficulty) && (status == "" || ch.Status == status) {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Challenges) UpdateChallengeStatus(ctx context.Context, tx *sql.Tx, id string, status model.ChallengeStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	ch.Status = status
	return nil
}

func (c *Challenges) ClearCodeSnippet(ctx context.Context, tx *sql.Tx, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	if ch, ok := c.byID[id]; ok {
		ch.CodeSnippet = ""
	}
	return nil
}

func (c *Challenges) AddTestCasesToChallenge(ctx context.Context, tx *sql.Tx, challengeID string, cases []model.TestCase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, tc := range cases {
		if tc.ID == "" {
			tc.ID = uuid.NewString()
		}
		tc.ChallengeID, tc.SortOrder = challengeID, i+1
		c.testCases[challengeID] = append(c.testCases[challengeID], tc)
	}
	return nil
}

func (c *Challenges) GetTestCasesByChallengeID(ctx context.Context, challengeID string) ([]model.TestCase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.testCases[challengeID]), nil
}

func (c *Challenges) AddApprovedSolution(ctx context.Context, tx *sql.Tx, challengeID string, userID *string, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	for i := range c.solutions {
		s := &c.solutions[i]
		if s.ChallengeID == challengeID && s.Code == code {
			if s.Status == model.SolutionApproved {
				return false, nil
			}
			s.Status = model.SolutionApproved
			return true, nil
		}
	}
	c.solutions = append(c.solutions, model.Solution{
		ID: uuid.NewString(), ChallengeID: challengeID, UserID: userID, Code: code,
		Status: model.SolutionApproved, CreatedAt: time.Now(),
	})
	return true, nil
}

func (c *Challenges) AddPendingSolution(ctx context.Context, tx *sql.Tx, s *model.Solution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.solutions {
		if existing.ChallengeID == s.ChallengeID && existing.Code == s.Code {
			return fmt.Errorf("this solution was already submitted: %w", common.ErrConflict)
		}
	}
	s.Status = model.SolutionPending
	s.CreatedAt = time.Now()
	c.solutions = append(c.solutions, *s)
	return nil
}

func (c *Challenges) ReviewSolution(ctx context.Context, tx *sql.Tx, challengeID, solutionID string, status model.SolutionStatus) (*model.Solution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.solutions {
		s := &c.solutions[i]
		if s.ID == solutionID && s.ChallengeID == challengeID && s.Status == model.SolutionPending {
			now := time.Now()
			s.Status, s.ReviewedAt = status, &now
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("pending solution %s: %w", solutionID, common.ErrNotFound)
}

func (c *Challenges) GetSolutionsByChallengeID(ctx context.Context, challengeID string, status model.SolutionStatus) ([]model.Solution, error) {
	return c.Solutions(challengeID, status), nil
}

func (c *Challenges) GetSolutionsByUserID(ctx context.Context, userID string, status model.SolutionStatus) ([]model.Solution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []model.Solution{}
	for _, s := range c.solutions {
		if s.UserID != nil && *s.UserID == userID && (status == "" || s.Status == status) {
			out = append(out, s)
		}
	}
	return out, nil
}

type Leaderboard struct {
	mu     sync.Mutex
	Scores map[string]int
	Err    error
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{Scores: map[string]int{}}
}

func (l *Leaderboard) SetScore(ctx context.Context, userID string, currency int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.Scores[userID] = currency
	return nil
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]repository.LeaderboardScore, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]repository.LeaderboardScore, 0, len(l.Scores))
	for id, c := range l.Scores {
		out = append(out, repository.LeaderboardScore{UserID: id, Currency: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency > out[j].Currency
		}
		return out[i].UserID < out[j].UserID
	})
	if limit < len(out) {
		out = out[:max(limit, 0)]
	}
	return out, nil
}

type Abuse struct {
	mu     sync.Mutex
	Counts map[string]int64
}

func NewAbuse() *Abuse {
	return &Abuse{Counts: map[string]int64{}}
}

func (a *Abuse) RecordTimeout(ctx context.Context, userID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Counts[userID]++
	return a.Counts[userID], nil
}

func (a *Abuse) TimeoutCount(ctx context.Context, userID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Counts[userID], nil
}

type JobQueue struct {
	mu   sync.Mutex
	Jobs []model.ValidationJob
	Err  error
}

func (q *JobQueue) Enqueue(ctx context.Context, job *model.ValidationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Jobs = append(q.Jobs, *job)
	return nil
}

var (
	_ repository.Transactor                = (*Transactor)(nil)
	_ repository.UserRepository            = (*Users)(nil)
	_ repository.VillainRepository         = (*Villains)(nil)
	_ repository.ChallengeRepository       = (*Challenges)(nil)
	_ repository.LeaderboardRepository     = (*Leaderboard)(nil)
	_ repository.SubmissionAbuseRepository = (*Abuse)(nil)
	_ repository.ValidationJobQueue        = (*JobQueue)(nil)
)
