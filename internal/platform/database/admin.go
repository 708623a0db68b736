package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"habit_hero/internal/common/security"

	"github.com/google/uuid"
)

// AdminAccount is an operator account created by the seed command.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

const seedAdminSQL = `INSERT INTO users (id, username, email, hashed_password, role)
	VALUES ($1, $2, $3, $4, 'admin') ON CONFLICT (email) DO NOTHING RETURNING id`

// SeedAdmin creates the admin unless a user with that email already exists,
// in which case the existing row is left untouched. It reports whether a row
// was created.
func SeedAdmin(ctx context.Context, db *sql.DB, admin AdminAccount) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	username := strings.TrimSpace(admin.Username)
	if email == "" || username == "" || admin.Password == "" {
		return false, fmt.Errorf("seed admin: username, email and password are required")
	}

	hashed, err := security.HashPassword(admin.Password)
	if err != nil {
		return false, fmt.Errorf("seed admin: hash password: %w", err)
	}

	var id string
	err = db.QueryRowContext(ctx, seedAdminSQL, uuid.NewString(), username, email, hashed).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed admin %q: %w", email, err)
	}
	return true, nil
}
