package main

import (
	"context"
	"os"
	"time"

	"habit_hero/internal/platform/config"
	"habit_hero/internal/platform/database"
	"habit_hero/internal/platform/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		log.Error("Database unavailable", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.InitSchema(ctx, db); err != nil {
		log.Error("Schema initialization failed", "error", err)
		os.Exit(1)
	}
	report, err := database.Seed(ctx, db)
	if err != nil {
		log.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	log.Info("Seed complete", "villains_added", report.Villains, "challenges_added", report.Challenges)

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Info("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin account")
		return
	}
	created, err := database.SeedAdmin(ctx, db, database.AdminAccount{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		log.Error("Admin seeding failed", "error", err)
		os.Exit(1)
	}
	if created {
		log.Info("Admin account created", "email", cfg.AdminEmail)
	} else {
		log.Info("Admin account already present", "email", cfg.AdminEmail)
	}
}
