package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ValidationQueueName      string
	ValidationLockKey        string
	ValidationLockTTLSeconds int

	// Sandbox limits. Timeout is wall-clock per function invocation;
	// SubmissionTimeout bounds all test cases of one submission together.
	SandboxTimeout        time.Duration
	SandboxMaxCallStack   int
	SandboxMemoryLimitMB  int
	SandboxMaxConcurrency int
	SubmissionTimeout     time.Duration
	MaxCodeLength         int

	RewardCurrency    int
	VillainDamage     int
	ExperiencePenalty int

	AbuseWindow    time.Duration
	LeaderboardKey string

	CORSAllowedOrigins []string
	LogLevel           string

	// Admin account created by cmd/seed when email and password are set.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

var AppConfig *Config

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:                  getEnv("API_PORT", "5300"),
		JWTKey:                   []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                   time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 168)) * time.Hour,
		DBHost:                   getEnv("DB_HOST", "localhost"),
		DBPort:                   getEnv("DB_PORT", "5432"),
		DBUser:                   getEnv("DB_USER", "user"),
		DBPassword:               getEnv("DB_PASSWORD", "password"),
		DBName:                   getEnv("DB_NAME", "habit_hero_db"),
		DBSslMode:                getEnv("DB_SSLMODE", "disable"),
		RedisAddr:                getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		RedisDB:                  getEnvAsInt("REDIS_DB", 0),
		ValidationQueueName:      getEnv("VALIDATION_QUEUE_NAME", "challenge_validation_queue"),
		ValidationLockKey:        getEnv("VALIDATION_LOCK_KEY", "challenge_validation_lock"),
		ValidationLockTTLSeconds: getEnvAsInt("VALIDATION_LOCK_TTL_SECONDS", 120),
		SandboxTimeout:           time.Duration(getEnvAsInt("SANDBOX_TIMEOUT_MS", 2000)) * time.Millisecond,
		SandboxMaxCallStack:      getEnvAsInt("SANDBOX_MAX_CALL_STACK", 1024),
		SandboxMemoryLimitMB:     getEnvAsInt("SANDBOX_MEMORY_LIMIT_MB", 256),
		SandboxMaxConcurrency:    getEnvAsInt("SANDBOX_MAX_CONCURRENCY", 4),
		SubmissionTimeout:        time.Duration(getEnvAsInt("SUBMISSION_TIMEOUT_MS", 5000)) * time.Millisecond,
		MaxCodeLength:            getEnvAsInt("MAX_CODE_LENGTH", 10000),
		RewardCurrency:           getEnvAsInt("REWARD_CURRENCY", 10),
		VillainDamage:            getEnvAsInt("VILLAIN_DAMAGE", 5),
		ExperiencePenalty:        getEnvAsInt("EXPERIENCE_PENALTY", 5),
		AbuseWindow:              time.Duration(getEnvAsInt("ABUSE_WINDOW_HOURS", 24)) * time.Hour,
		LeaderboardKey:           getEnv("LEADERBOARD_KEY", "leaderboard:currency"),
		CORSAllowedOrigins:       getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		AdminUsername:            getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:               getEnv("ADMIN_EMAIL", ""),
		AdminPassword:            getEnv("ADMIN_PASSWORD", ""),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
	return AppConfig
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
