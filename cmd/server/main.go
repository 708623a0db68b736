package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habit_hero/internal/api"
	"habit_hero/internal/app/combat"
	"habit_hero/internal/app/judge"
	"habit_hero/internal/app/progression"
	"habit_hero/internal/app/sandbox"
	"habit_hero/internal/app/service"
	"habit_hero/internal/app/worker"
	"habit_hero/internal/common/security"
	"habit_hero/internal/domain/repository"
	"habit_hero/internal/platform/config"
	"habit_hero/internal/platform/database"
	"habit_hero/internal/platform/logger"
	"habit_hero/internal/platform/queue"
)

func main() {
	// Sandbox runners are this same binary; they must not touch config or the network.
	if sandbox.IsRunnerProcess() {
		os.Exit(sandbox.ServeRunner(os.Stdin, os.Stdout))
	}

	// 1. Configuration and logging
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	log.Info("Configuration loaded")

	// 2. JWT
	security.InitJWT()

	// 3. Database
	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		log.Error("Database unavailable", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.InitSchema(initCtx, db)
	initCancel()
	if err != nil {
		log.Error("Schema initialization failed", "error", err)
		os.Exit(1)
	}

	// 4. Redis
	rdb, err := queue.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Error("Redis unavailable", "error", err)
		os.Exit(1)
	}
	defer queue.CloseRedis(rdb)

	// 5. Repositories
	tx := repository.NewPgTransactor(db)
	userRepo := repository.NewPgUserRepository(db)
	challengeRepo := repository.NewPgChallengeRepository(db)
	villainRepo := repository.NewPgVillainRepository(db)
	jobQueue := repository.NewRedisValidationJobQueue(rdb, cfg.ValidationQueueName)
	leaderboardRepo := repository.NewRedisLeaderboardRepository(rdb, cfg.LeaderboardKey)
	abuseRepo := repository.NewRedisSubmissionAbuseRepository(rdb, cfg.AbuseWindow)
	blacklist := security.NewTokenBlacklist(rdb)

	// 6. Game engine
	engine := progression.NewEngine(userRepo, progression.DefaultTiers, cfg.RewardCurrency, cfg.ExperiencePenalty)
	combatHandler := combat.NewHandler(villainRepo, engine, cfg.VillainDamage)
	self, err := os.Executable()
	if err != nil {
		log.Error("Cannot locate own binary for sandbox runners", "error", err)
		os.Exit(1)
	}
	executor := sandbox.NewProcessExecutor(self, cfg.SandboxTimeout, cfg.SandboxMaxCallStack,
		int64(cfg.SandboxMemoryLimitMB)<<20, cfg.SandboxMaxConcurrency)
	verifier := judge.NewVerifier(executor)

	// 7. Services
	execJobService := service.NewExecutionJobService(jobQueue, log)
	services := api.Services{
		Auth:      service.NewAuthService(userRepo, blacklist, engine.InitialTier()),
		User:      service.NewUserService(userRepo, challengeRepo),
		Challenge: service.NewChallengeService(tx, challengeRepo, execJobService, cfg.MaxCodeLength, log),
		Submission: service.NewSubmissionService(tx, challengeRepo, villainRepo, verifier, engine, combatHandler,
			leaderboardRepo, abuseRepo, cfg.MaxCodeLength, cfg.SubmissionTimeout, log),
		Villain:     service.NewVillainService(villainRepo, challengeRepo),
		Leaderboard: service.NewLeaderboardService(leaderboardRepo, userRepo, log),
	}

	// 8. Validation worker
	validationWorker := worker.NewValidationWorker(rdb, cfg.ValidationQueueName, cfg.ValidationLockKey,
		time.Duration(cfg.ValidationLockTTLSeconds)*time.Second, challengeRepo, verifier, log)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		validationWorker.Start(workerCtx)
		close(workerDone)
	}()

	// 9. HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(services, blacklist, cfg.CORSAllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not listen", "port", cfg.APIPort, "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop

	log.Info("Shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("Validation worker did not stop before the shutdown deadline")
	}
	log.Info("Server and worker stopped gracefully")
}
