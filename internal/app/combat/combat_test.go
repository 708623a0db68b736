package combat

import (
	"context"
	"errors"
	"testing"

	"habit_hero/internal/app/progression"
	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository/fake"
)

func newHandler(v *fake.Villains, u *fake.Users) *Handler {
	return NewHandler(v, progression.NewEngine(u, progression.DefaultTiers, 10, 5), 5)
}

func TestStrike(t *testing.T) {
	villains := fake.NewVillains(&model.Villain{ID: "v-1", Name: "Glitch Goblin", HP: 12})
	h := newHandler(villains, fake.NewUsers())

	v, err := h.Strike(context.Background(), nil, "v-1")
	if err != nil {
		t.Fatalf("Strike failed: %v", err)
	}
	if v.HP != 7 || villains.Get("v-1").HP != 7 {
		t.Fatalf("hp = %d, want 7", v.HP)
	}
	if v.Defeated() {
		t.Fatalf("villain should still stand")
	}
}

func TestStrikeClampsAndDefeats(t *testing.T) {
	villains := fake.NewVillains(&model.Villain{ID: "v-1", HP: 3})
	h := newHandler(villains, fake.NewUsers())

	for i := 0; i < 2; i++ {
		v, err := h.Strike(context.Background(), nil, "v-1")
		if err != nil {
			t.Fatalf("Strike failed: %v", err)
		}
		if v.HP != 0 || !v.Defeated() {
			t.Fatalf("expected defeated villain at 0 hp, got %+v", v)
		}
	}
}

func TestStrikePersistFailure(t *testing.T) {
	villains := fake.NewVillains(&model.Villain{ID: "v-1", HP: 30})
	villains.Err = errors.New("connection reset")
	h := newHandler(villains, fake.NewUsers())

	if _, err := h.Strike(context.Background(), nil, "v-1"); err == nil {
		t.Fatalf("expected persistence error")
	}
}

func TestPunish(t *testing.T) {
	users := fake.NewUsers(&model.User{ID: "u-1", Experience: 20, Currency: 50})
	h := newHandler(fake.NewVillains(), users)

	u, err := h.Punish(context.Background(), nil, "u-1")
	if err != nil {
		t.Fatalf("Punish failed: %v", err)
	}
	if u.Experience != 15 || u.Currency != 50 {
		t.Fatalf("unexpected user %+v", u)
	}
}
