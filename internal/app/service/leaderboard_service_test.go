package service

import (
	"context"
	"testing"

	"habit_hero/internal/domain/model"
	"habit_hero/internal/domain/repository/fake"
)

func TestLeaderboardTopResolvesUsers(t *testing.T) {
	users := fake.NewUsers(
		&model.User{ID: "u-1", Username: "kakiro", MapTier: "Forest of Shadows"},
		&model.User{ID: "u-2", Username: "mina", MapTier: "Kakiro's village"},
	)
	board := fake.NewLeaderboard()
	board.Scores = map[string]int{"u-1": 150, "u-2": 40, "ghost": 90}

	svc := NewLeaderboardService(board, users, testLogger)
	entries, err := svc.Top(context.Background(), 0)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected unknown users to be skipped, got %+v", entries)
	}
	if entries[0].Username != "kakiro" || entries[0].Rank != 1 || entries[0].Currency != 150 {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Username != "mina" || entries[1].Rank != 2 {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}

func TestProfileListsSolutions(t *testing.T) {
	uid := "u-1"
	users := fake.NewUsers(&model.User{ID: uid, Username: "kakiro", HashedPassword: "hash"})
	challenges := fake.NewChallenges()
	challenges.Put(&model.Challenge{ID: "ch-1", Status: model.StatusPublished})
	if err := challenges.AddPendingSolution(context.Background(), nil, &model.Solution{ID: "s-1", ChallengeID: "ch-1", UserID: &uid, Code: "function f(){}"}); err != nil {
		t.Fatalf("AddPendingSolution failed: %v", err)
	}

	profile, err := NewUserService(users, challenges).Profile(context.Background(), uid)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.HashedPassword != "" {
		t.Fatalf("password hash leaked")
	}
	if len(profile.Solutions) != 1 || profile.Solutions[0].Status != model.SolutionPending {
		t.Fatalf("unexpected solutions %+v", profile.Solutions)
	}
}

func TestVillainForChallenge(t *testing.T) {
	villains := fake.NewVillains(
		&model.Villain{ID: "easy-1", Difficulty: model.DifficultyEasy},
		&model.Villain{ID: "hard-1", Difficulty: model.DifficultyHard},
	)
	challenges := fake.NewChallenges()
	challenges.Put(&model.Challenge{ID: "ch-hard", Difficulty: model.DifficultyHard})

	v, err := NewVillainService(villains, challenges).VillainForChallenge(context.Background(), "ch-hard")
	if err != nil {
		t.Fatalf("VillainForChallenge failed: %v", err)
	}
	if v.ID != "hard-1" {
		t.Fatalf("expected a Hard villain, got %+v", v)
	}
}
