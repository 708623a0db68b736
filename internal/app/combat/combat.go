package combat

import (
	"context"
	"database/sql"
	"fmt"

	"habit_hero/internal/app/progression"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"
)

// Handler applies the fight side effects of a submission: villains lose HP
// on a correct answer, users lose experience on a wrong one.
type Handler struct {
	villains    repository.VillainRepository
	progression *progression.Engine
	damage      int
}

func NewHandler(villains repository.VillainRepository, engine *progression.Engine, damage int) *Handler {
	return &Handler{villains: villains, progression: engine, damage: damage}
}

// Strike damages the villain. HP stops at zero; a villain at zero is defeated.
func (h *Handler) Strike(ctx context.Context, tx *sql.Tx, villainID string) (*model.Villain, error) {
	villain, err := h.villains.FindByIDForUpdate(ctx, tx, villainID)
	if err != nil {
		return nil, fmt.Errorf("strike: load villain %s: %w", villainID, err)
	}
	villain.HP = max(villain.HP-h.damage, 0)
	if err := h.villains.UpdateHP(ctx, tx, villain.ID, villain.HP); err != nil {
		return nil, fmt.Errorf("strike: persist hp for %s: %w", villainID, err)
	}
	return villain, nil
}

func (h *Handler) Punish(ctx context.Context, tx *sql.Tx, userID string) (*model.User, error) {
	return h.progression.LoseExperience(ctx, tx, userID)
}
