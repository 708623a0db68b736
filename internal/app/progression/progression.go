// Package progression owns every change to a user's currency, experience and
// map tier. Tiers are keyed on currency balance.
package progression

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository"
)

type Tier struct {
	Name     string
	Required int
}

var DefaultTiers = []Tier{
	{Name: "Kakiro's village", Required: 0},
	{Name: "Forest of Shadows", Required: 100},
	{Name: "Mountain of Eternity", Required: 250},
	{Name: "Desert of Secrets", Required: 500},
	{Name: "Sky City", Required: 1000},
}

// ResolveTier returns the highest tier whose requirement is <= metric.
// tiers must be sorted ascending by Required.
func ResolveTier(tiers []Tier, metric int) string {
	if len(tiers) == 0 {
		return ""
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if metric >= tiers[i].Required {
			return tiers[i].Name
		}
	}
	return tiers[0].Name
}

type Engine struct {
	users             repository.UserRepository
	tiers             []Tier
	currencyIncrement int
	experiencePenalty int
}

func NewEngine(users repository.UserRepository, tiers []Tier, currencyIncrement, experiencePenalty int) *Engine {
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b Tier) int { return cmp.Compare(a.Required, b.Required) })
	return &Engine{
		users:             users,
		tiers:             sorted,
		currencyIncrement: currencyIncrement,
		experiencePenalty: experiencePenalty,
	}
}

// Reward credits the fixed currency increment plus bonusExperience and moves
// the user to a new map tier if the balance now qualifies.
func (e *Engine) Reward(ctx context.Context, tx *sql.Tx, userID string, bonusExperience int) (*model.User, error) {
	user, err := e.users.FindByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("reward: load user %s: %w", userID, err)
	}
	user.Currency += e.currencyIncrement
	user.Experience += max(bonusExperience, 0)
	if err := e.users.UpdateProgress(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("reward: persist progress for %s: %w", userID, err)
	}
	if _, err := e.RecomputeTier(ctx, tx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoseExperience applies the failure penalty. Experience never drops below zero.
func (e *Engine) LoseExperience(ctx context.Context, tx *sql.Tx, userID string) (*model.User, error) {
	user, err := e.users.FindByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("penalty: load user %s: %w", userID, err)
	}
	user.Experience = max(user.Experience-e.experiencePenalty, 0)
	if err := e.users.UpdateProgress(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("penalty: persist progress for %s: %w", userID, err)
	}
	return user, nil
}

// RecomputeTier persists the tier only when it changed.
func (e *Engine) RecomputeTier(ctx context.Context, tx *sql.Tx, user *model.User) (bool, error) {
	tier := ResolveTier(e.tiers, user.Currency)
	if tier == user.MapTier {
		return false, nil
	}
	if err := e.users.UpdateMapTier(ctx, tx, user.ID, tier); err != nil {
		return false, fmt.Errorf("map tier: persist %q for %s: %w", tier, user.ID, err)
	}
	user.MapTier = tier
	return true, nil
}

// InitialTier is the tier a brand new account starts in.
func (e *Engine) InitialTier() string {
	return ResolveTier(e.tiers, 0)
}
