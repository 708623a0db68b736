package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"habit_hero/internal/common"
	"habit_hero/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.User, error)
	UpdateProgress(ctx context.Context, tx *sql.Tx, user *model.User) error
	UpdateMapTier(ctx context.Context, tx *sql.Tx, id, tier string) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, first_name, last_name, hashed_password, role,
	currency, experience, hearts, map_tier, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.HashedPassword, &user.Role,
		&user.Currency, &user.Experience, &user.Hearts, &user.MapTier, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if isMissingRow(err) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, first_name, last_name, hashed_password, role, currency, experience, hearts, map_tier)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.HashedPassword, user.Role, user.Currency, user.Experience, user.Hearts, user.MapTier)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByUsername: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, err
}

// FindByIDForUpdate locks the row until tx ends.
func (r *pgUserRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.User, error) {
	user, err := scanUser(conn(r.db, tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByIDForUpdate: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) UpdateProgress(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `UPDATE users SET currency = $1, experience = $2, hearts = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4`
	res, err := conn(r.db, tx).ExecContext(ctx, query, user.Currency, user.Experience, user.Hearts, user.ID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProgress: %w", err)
	}
	return requireRow(res, "pgUserRepository.UpdateProgress")
}

func (r *pgUserRepository) UpdateMapTier(ctx context.Context, tx *sql.Tx, id, tier string) error {
	query := `UPDATE users SET map_tier = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	res, err := conn(r.db, tx).ExecContext(ctx, query, tier, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateMapTier: %w", err)
	}
	return requireRow(res, "pgUserRepository.UpdateMapTier")
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
