package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAddApprovedSolutionReportsInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	userID := "user-1"
	mock.ExpectExec(`INSERT INTO challenge_solutions .* ON CONFLICT \(challenge_id, md5\(code\)\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), "ch-1", &userID, "function sum(a,b){return a+b;}").
		WillReturnResult(sqlmock.NewResult(0, 1))

	added, err := repo.AddApprovedSolution(context.Background(), nil, "ch-1", &userID, "function sum(a,b){return a+b;}")
	if err != nil {
		t.Fatalf("AddApprovedSolution failed: %v", err)
	}
	if !added {
		t.Fatalf("expected new solution to be reported as added")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddApprovedSolutionIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	mock.ExpectExec(`INSERT INTO challenge_solutions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddApprovedSolution(context.Background(), nil, "ch-1", nil, "function f(){}")
	if err != nil {
		t.Fatalf("AddApprovedSolution failed: %v", err)
	}
	if added {
		t.Fatalf("existing approved solution must not be reported as added")
	}
}

func TestGetTestCasesDecodesJSON(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "challenge_id", "input", "expected", "sort_order"}).
		AddRow("tc-1", "ch-1", []byte(`[1, 2]`), []byte(`3`), 1).
		AddRow("tc-2", "ch-1", []byte(`["abc"]`), []byte(`"cba"`), 2).
		AddRow("tc-3", "ch-1", []byte(`[[3, 1, 2]]`), []byte(`[1, 2, 3]`), 3)
	mock.ExpectQuery(`SELECT id, challenge_id, input, expected, sort_order\s+FROM challenge_test_cases`).
		WithArgs("ch-1").
		WillReturnRows(rows)

	cases, err := repo.GetTestCasesByChallengeID(context.Background(), "ch-1")
	if err != nil {
		t.Fatalf("GetTestCasesByChallengeID failed: %v", err)
	}
	if len(cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(cases))
	}
	if got := cases[0].Input; len(got) != 2 || got[0] != float64(1) || got[1] != float64(2) {
		t.Fatalf("unexpected input %#v", got)
	}
	if cases[0].Expected != float64(3) {
		t.Fatalf("unexpected expected %#v", cases[0].Expected)
	}
	if cases[1].Expected != "cba" {
		t.Fatalf("unexpected expected %#v", cases[1].Expected)
	}
	if arr, ok := cases[2].Input[0].([]any); !ok || len(arr) != 3 {
		t.Fatalf("nested array not decoded: %#v", cases[2].Input)
	}
}

func TestAddTestCasesAssignsSortOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	prep := mock.ExpectPrepare(`INSERT INTO challenge_test_cases`)
	prep.ExpectExec().WithArgs("tc-1", "ch-1", []byte(`[1,2]`), []byte(`3`), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), "ch-1", []byte(`[]`), []byte(`null`), 2).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AddTestCasesToChallenge(context.Background(), nil, "ch-1", []model.TestCase{
		{ID: "tc-1", Input: []any{1, 2}, Expected: 3},
		{},
	})
	if err != nil {
		t.Fatalf("AddTestCasesToChallenge failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindChallengeByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	mock.ExpectQuery(`FROM challenges WHERE id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindChallengeByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`}
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		call  func(db *sql.DB) error
	}{
		{"challenge", `FROM challenges WHERE id = \$1`, func(db *sql.DB) error {
			_, err := NewPgChallengeRepository(db).FindChallengeByID(ctx, "not-a-uuid")
			return err
		}},
		{"empty challenge id", `FROM challenges WHERE id = \$1`, func(db *sql.DB) error {
			_, err := NewPgChallengeRepository(db).FindChallengeByID(ctx, "")
			return err
		}},
		{"solution review", `UPDATE challenge_solutions SET status`, func(db *sql.DB) error {
			_, err := NewPgChallengeRepository(db).ReviewSolution(ctx, nil, "not-a-uuid", "also-bad", model.SolutionApproved)
			return err
		}},
		{"villain", `FROM villains WHERE id = \$1`, func(db *sql.DB) error {
			_, err := NewPgVillainRepository(db).FindByID(ctx, "not-a-uuid")
			return err
		}},
		{"villain for update", `FROM villains WHERE id = \$1 FOR UPDATE`, func(db *sql.DB) error {
			_, err := NewPgVillainRepository(db).FindByIDForUpdate(ctx, nil, "")
			return err
		}},
		{"user", `FROM users WHERE id = \$1`, func(db *sql.DB) error {
			_, err := NewPgUserRepository(db).FindByID(ctx, "not-a-uuid")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery(tt.query).WillReturnError(badUUID)

			err := tt.call(db)
			if !errors.Is(err, common.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if status := common.HTTPStatusFromError(err); status != 404 {
				t.Fatalf("expected 404, got %d", status)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestOtherQueryErrorsAreNotMasked(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM challenges WHERE id = \$1`).WillReturnError(&pgconn.PgError{Code: "57014"})

	_, err := NewPgChallengeRepository(db).FindChallengeByID(context.Background(), "c-1")
	if err == nil || errors.Is(err, common.ErrNotFound) {
		t.Fatalf("a canceled query must surface as a failure, got %v", err)
	}
}

func TestListChallengesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	now := time.Now()
	cols := []string{"id", "title", "slug", "description", "difficulty", "status", "code_snippet",
		"reward_currency", "reward_experience", "created_by", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM challenges WHERE difficulty = \$1 AND status = \$2 ORDER BY created_at ASC`).
		WithArgs(model.DifficultyEasy, model.StatusPublished).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("ch-1", "Sum", "sum", "Add two numbers", "Easy", "Published", "", 10, 5, nil, now, now))

	list, err := repo.ListChallenges(context.Background(), model.DifficultyEasy, model.StatusPublished)
	if err != nil {
		t.Fatalf("ListChallenges failed: %v", err)
	}
	if len(list) != 1 || list[0].Slug != "sum" || list[0].Difficulty != model.DifficultyEasy {
		t.Fatalf("unexpected list %#v", list)
	}
	if list[0].CreatedByID != nil {
		t.Fatalf("expected nil creator")
	}
}

func TestListChallengesWithoutFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	mock.ExpectQuery(`FROM challenges ORDER BY created_at ASC`).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, err := repo.ListChallenges(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ListChallenges failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestReviewSolutionOnlyTouchesPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	mock.ExpectQuery(`UPDATE challenge_solutions SET status = \$1.*AND status = 'pending'`).
		WithArgs(model.SolutionApproved, "sol-1", "ch-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ReviewSolution(context.Background(), nil, "ch-1", "sol-1", model.SolutionApproved)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSolutionsByUserIDFiltersStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgChallengeRepository(db)

	now := time.Now()
	uid := "user-1"
	mock.ExpectQuery(`FROM challenge_solutions WHERE user_id = \$1 AND status = \$2`).
		WithArgs("user-1", model.SolutionPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "challenge_id", "user_id", "code", "status", "created_at", "reviewed_at"}).
			AddRow("sol-1", "ch-1", uid, "function f(){}", "pending", now, nil))

	sols, err := repo.GetSolutionsByUserID(context.Background(), "user-1", model.SolutionPending)
	if err != nil {
		t.Fatalf("GetSolutionsByUserID failed: %v", err)
	}
	if len(sols) != 1 || sols[0].Status != model.SolutionPending || sols[0].ReviewedAt != nil {
		t.Fatalf("unexpected solutions %#v", sols)
	}
	if sols[0].UserID == nil || *sols[0].UserID != uid {
		t.Fatalf("unexpected user id %v", sols[0].UserID)
	}
}
