package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error
	FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error)
	ListChallenges(ctx context.Context, difficulty model.ChallengeDifficulty, status model.ChallengeStatus) ([]model.Challenge, error)
	UpdateChallengeStatus(ctx context.Context, tx *sql.Tx, id string, status model.ChallengeStatus) error
	ClearCodeSnippet(ctx context.Context, tx *sql.Tx, id string) error

	AddTestCasesToChallenge(ctx context.Context, tx *sql.Tx, challengeID string, testCases []model.TestCase) error
	GetTestCasesByChallengeID(ctx context.Context, challengeID string) ([]model.TestCase, error)

	// AddApprovedSolution reports whether the code was newly added to the approved set.
	AddApprovedSolution(ctx context.Context, tx *sql.Tx, challengeID string, userID *string, code string) (bool, error)
	AddPendingSolution(ctx context.Context, tx *sql.Tx, solution *model.Solution) error
	ReviewSolution(ctx context.Context, tx *sql.Tx, challengeID, solutionID string, status model.SolutionStatus) (*model.Solution, error)
	GetSolutionsByChallengeID(ctx context.Context, challengeID string, status model.SolutionStatus) ([]model.Solution, error)
	GetSolutionsByUserID(ctx context.Context, userID string, status model.SolutionStatus) ([]model.Solution, error)
}

type pgChallengeRepository struct {
	db *sql.DB
}

func NewPgChallengeRepository(db *sql.DB) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

const challengeColumns = `id, title, slug, description, difficulty, status, code_snippet,
	reward_currency, reward_experience, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (*model.Challenge, error) {
	c := &model.Challenge{}
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Difficulty, &c.Status, &c.CodeSnippet,
		&c.RewardCurrency, &c.RewardExperience, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgChallengeRepository) CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	query := `INSERT INTO challenges (id, title, slug, description, difficulty, status, code_snippet, reward_currency, reward_experience, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := conn(r.db, tx).ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.Difficulty, c.Status,
		c.CodeSnippet, c.RewardCurrency, c.RewardExperience, c.CreatedByID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("challenge with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgChallengeRepository.CreateChallenge: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if err != nil {
		if isMissingRow(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindChallengeByID: %w", err)
	}
	return c, nil
}

func (r *pgChallengeRepository) ListChallenges(ctx context.Context, difficulty model.ChallengeDifficulty, status model.ChallengeStatus) ([]model.Challenge, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + challengeColumns + ` FROM challenges`)

	var conditions []string
	var args []any
	if difficulty != "" {
		args = append(args, difficulty)
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at ASC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListChallenges query: %w", err)
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.ListChallenges scan: %w", err)
		}
		challenges = append(challenges, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListChallenges rows.Err: %w", err)
	}
	return challenges, nil
}

func (r *pgChallengeRepository) UpdateChallengeStatus(ctx context.Context, tx *sql.Tx, id string, status model.ChallengeStatus) error {
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE challenges SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.UpdateChallengeStatus: %w", err)
	}
	return requireRow(res, "pgChallengeRepository.UpdateChallengeStatus")
}

func (r *pgChallengeRepository) ClearCodeSnippet(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE challenges SET code_snippet = '', updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.ClearCodeSnippet: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) AddTestCasesToChallenge(ctx context.Context, tx *sql.Tx, challengeID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	stmt, err := conn(r.db, tx).PrepareContext(ctx,
		`INSERT INTO challenge_test_cases (id, challenge_id, input, expected, sort_order) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.AddTestCasesToChallenge prepare: %w", err)
	}
	defer stmt.Close()

	for i, tc := range testCases {
		if tc.ID == "" {
			tc.ID = uuid.NewString()
		}
		input := tc.Input
		if input == nil {
			input = []any{}
		}
		inputJSON, err := json.Marshal(input)
		if err != nil {
			return fmt.Errorf("pgChallengeRepository.AddTestCasesToChallenge marshal input %d: %w", i, err)
		}
		expectedJSON, err := json.Marshal(tc.Expected)
		if err != nil {
			return fmt.Errorf("pgChallengeRepository.AddTestCasesToChallenge marshal expected %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, tc.ID, challengeID, inputJSON, expectedJSON, i+1); err != nil {
			return fmt.Errorf("pgChallengeRepository.AddTestCasesToChallenge exec for case %d: %w", i, err)
		}
	}
	return nil
}

func (r *pgChallengeRepository) GetTestCasesByChallengeID(ctx context.Context, challengeID string) ([]model.TestCase, error) {
	query := `SELECT id, challenge_id, input, expected, sort_order
	          FROM challenge_test_cases WHERE challenge_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.GetTestCasesByChallengeID query: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		var inputJSON, expectedJSON []byte
		if err := rows.Scan(&tc.ID, &tc.ChallengeID, &inputJSON, &expectedJSON, &tc.SortOrder); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.GetTestCasesByChallengeID scan: %w", err)
		}
		if err := json.Unmarshal(inputJSON, &tc.Input); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.GetTestCasesByChallengeID decode input of %s: %w", tc.ID, err)
		}
		if err := json.Unmarshal(expectedJSON, &tc.Expected); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.GetTestCasesByChallengeID decode expected of %s: %w", tc.ID, err)
		}
		testCases = append(testCases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.GetTestCasesByChallengeID rows.Err: %w", err)
	}
	return testCases, nil
}

func (r *pgChallengeRepository) AddApprovedSolution(ctx context.Context, tx *sql.Tx, challengeID string, userID *string, code string) (bool, error) {
	// A pending or rejected copy of the same code is promoted instead of duplicated.
	query := `INSERT INTO challenge_solutions (id, challenge_id, user_id, code, status, reviewed_at)
	          VALUES ($1, $2, $3, $4, 'approved', CURRENT_TIMESTAMP)
	          ON CONFLICT (challenge_id, md5(code)) DO UPDATE
	          SET status = 'approved', reviewed_at = CURRENT_TIMESTAMP
	          WHERE challenge_solutions.status <> 'approved'`
	res, err := conn(r.db, tx).ExecContext(ctx, query, uuid.NewString(), challengeID, userID, code)
	if err != nil {
		return false, fmt.Errorf("pgChallengeRepository.AddApprovedSolution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgChallengeRepository.AddApprovedSolution rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *pgChallengeRepository) AddPendingSolution(ctx context.Context, tx *sql.Tx, s *model.Solution) error {
	query := `INSERT INTO challenge_solutions (id, challenge_id, user_id, code, status) VALUES ($1, $2, $3, $4, 'pending')`
	_, err := conn(r.db, tx).ExecContext(ctx, query, s.ID, s.ChallengeID, s.UserID, s.Code)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("this solution was already submitted: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgChallengeRepository.AddPendingSolution: %w", err)
	}
	s.Status = model.SolutionPending
	return nil
}

const solutionColumns = `id, challenge_id, user_id, code, status, created_at, reviewed_at`

func scanSolution(row rowScanner) (*model.Solution, error) {
	s := &model.Solution{}
	if err := row.Scan(&s.ID, &s.ChallengeID, &s.UserID, &s.Code, &s.Status, &s.CreatedAt, &s.ReviewedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// ReviewSolution only moves solutions out of the pending state.
func (r *pgChallengeRepository) ReviewSolution(ctx context.Context, tx *sql.Tx, challengeID, solutionID string, status model.SolutionStatus) (*model.Solution, error) {
	query := `UPDATE challenge_solutions SET status = $1, reviewed_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND challenge_id = $3 AND status = 'pending'
	          RETURNING ` + solutionColumns
	s, err := scanSolution(conn(r.db, tx).QueryRowContext(ctx, query, status, solutionID, challengeID))
	if err != nil {
		if isMissingRow(err) {
			return nil, fmt.Errorf("pending solution %s: %w", solutionID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgChallengeRepository.ReviewSolution: %w", err)
	}
	return s, nil
}

func (r *pgChallengeRepository) GetSolutionsByChallengeID(ctx context.Context, challengeID string, status model.SolutionStatus) ([]model.Solution, error) {
	return r.listSolutions(ctx, "challenge_id", challengeID, status)
}

func (r *pgChallengeRepository) GetSolutionsByUserID(ctx context.Context, userID string, status model.SolutionStatus) ([]model.Solution, error) {
	return r.listSolutions(ctx, "user_id", userID, status)
}

// column is always a literal from this file.
func (r *pgChallengeRepository) listSolutions(ctx context.Context, column, value string, status model.SolutionStatus) ([]model.Solution, error) {
	query := `SELECT ` + solutionColumns + ` FROM challenge_solutions WHERE ` + column + ` = $1`
	args := []any{value}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.listSolutions query: %w", err)
	}
	defer rows.Close()

	solutions := []model.Solution{}
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.listSolutions scan: %w", err)
		}
		solutions = append(solutions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.listSolutions rows.Err: %w", err)
	}
	return solutions, nil
}
