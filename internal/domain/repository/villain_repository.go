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

type VillainRepository interface {
	Create(ctx context.Context, tx *sql.Tx, villain *model.Villain) error
	FindByID(ctx context.Context, id string) (*model.Villain, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Villain, error)
	FindRandomByDifficulty(ctx context.Context, difficulty model.ChallengeDifficulty) (*model.Villain, error)
	UpdateHP(ctx context.Context, tx *sql.Tx, id string, hp int) error
}

type pgVillainRepository struct {
	db *sql.DB
}

func NewPgVillainRepository(db *sql.DB) VillainRepository {
	return &pgVillainRepository{db: db}
}

const villainColumns = `id, name, location, hp, attack_power, difficulty`

func scanVillain(row *sql.Row) (*model.Villain, error) {
	v := &model.Villain{}
	if err := row.Scan(&v.ID, &v.Name, &v.Location, &v.HP, &v.AttackPower, &v.Difficulty); err != nil {
		if isMissingRow(err) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *pgVillainRepository) Create(ctx context.Context, tx *sql.Tx, v *model.Villain) error {
	query := `INSERT INTO villains (id, name, location, hp, attack_power, difficulty) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := conn(r.db, tx).ExecContext(ctx, query, v.ID, v.Name, v.Location, v.HP, v.AttackPower, v.Difficulty)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("villain %q already exists: %w", v.Name, common.ErrConflict)
		}
		return fmt.Errorf("pgVillainRepository.Create: %w", err)
	}
	return nil
}

func (r *pgVillainRepository) FindByID(ctx context.Context, id string) (*model.Villain, error) {
	v, err := scanVillain(r.db.QueryRowContext(ctx, `SELECT `+villainColumns+` FROM villains WHERE id = $1`, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgVillainRepository.FindByID: %w", err)
	}
	return v, err
}

func (r *pgVillainRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Villain, error) {
	v, err := scanVillain(conn(r.db, tx).QueryRowContext(ctx, `SELECT `+villainColumns+` FROM villains WHERE id = $1 FOR UPDATE`, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgVillainRepository.FindByIDForUpdate: %w", err)
	}
	return v, err
}

func (r *pgVillainRepository) FindRandomByDifficulty(ctx context.Context, difficulty model.ChallengeDifficulty) (*model.Villain, error) {
	query := `SELECT ` + villainColumns + ` FROM villains WHERE difficulty = $1 ORDER BY random() LIMIT 1`
	v, err := scanVillain(r.db.QueryRowContext(ctx, query, difficulty))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgVillainRepository.FindRandomByDifficulty: %w", err)
	}
	return v, err
}

func (r *pgVillainRepository) UpdateHP(ctx context.Context, tx *sql.Tx, id string, hp int) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `UPDATE villains SET hp = $1 WHERE id = $2`, hp, id)
	if err != nil {
		return fmt.Errorf("pgVillainRepository.UpdateHP: %w", err)
	}
	return requireRow(res, "pgVillainRepository.UpdateHP")
}
