package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"habit_hero/internal/common/security"

	"github.com/DATA-DOG/go-sqlmock"
)

// bcryptOf matches a bcrypt hash of password.
type bcryptOf string

func (b bcryptOf) Match(v driver.Value) bool {
	hash, ok := v.(string)
	return ok && hash != string(b) && security.CheckPasswordHash(string(b), hash)
}

func TestSeedAdminCreatesAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT INTO users .* 'admin'\) ON CONFLICT \(email\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "root", "admin@habithero.dev", bcryptOf("s3cret-pass")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-admin"))

	created, err := SeedAdmin(context.Background(), db, AdminAccount{
		Username: " root ", Email: "Admin@HabitHero.dev", Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}
	if !created {
		t.Fatalf("expected the admin to be created")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeedAdminKeepsExistingAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	created, err := SeedAdmin(context.Background(), db, AdminAccount{Username: "root", Email: "admin@habithero.dev", Password: "pw"})
	if err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}
	if created {
		t.Fatalf("an existing email must not be overwritten")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeedAdminRequiresCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	for _, admin := range []AdminAccount{
		{Username: "root", Email: "admin@habithero.dev"},
		{Username: "root", Password: "pw"},
		{Email: "admin@habithero.dev", Password: "pw"},
	} {
		if _, err := SeedAdmin(context.Background(), db, admin); err == nil {
			t.Fatalf("expected an error for %+v", admin)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query may run: %v", err)
	}
}

func TestSeedAdminSurfacesUsernameClash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	clash := errors.New(`duplicate key value violates unique constraint "users_username_key"`)
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(clash)

	_, err = SeedAdmin(context.Background(), db, AdminAccount{Username: "taken", Email: "new@habithero.dev", Password: "pw"})
	if !errors.Is(err, clash) {
		t.Fatalf("expected the insert error, got %v", err)
	}
}
