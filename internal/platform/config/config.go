package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	RedisAddr      string
	RedisPassword  string
	RedisChannel   string
	AdminJWTSecret string

	DefaultPitchSeconds  int
	DefaultVotingSeconds int
	BreakSeconds         int
	TimerTick            time.Duration
	OutboxPoll           time.Duration

	EnableTimerResume bool
	EnableOutboxRelay bool
	EnableSwagger     bool
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Real environment variables win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "pitchday"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	pitch, err := envInt("DEFAULT_PITCH_SECONDS", 90)
	if err != nil {
		return Config{}, err
	}
	voting, err := envInt("DEFAULT_VOTING_SECONDS", 30)
	if err != nil {
		return Config{}, err
	}
	breakSeconds, err := envInt("BREAK_SECONDS", 120)
	if err != nil {
		return Config{}, err
	}
	tickMillis, err := envInt("TIMER_TICK_MS", 1000)
	if err != nil {
		return Config{}, err
	}
	pollMillis, err := envInt("OUTBOX_POLL_MS", 2000)
	if err != nil {
		return Config{}, err
	}

	channel := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if channel == "" {
		channel = "pitchday.voting"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisChannel:   channel,
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),

		DefaultPitchSeconds:  pitch,
		DefaultVotingSeconds: voting,
		BreakSeconds:         breakSeconds,
		TimerTick:            time.Duration(tickMillis) * time.Millisecond,
		OutboxPoll:           time.Duration(pollMillis) * time.Millisecond,

		EnableTimerResume: envBool("ENABLE_TIMER_RESUME", true),
		EnableOutboxRelay: envBool("ENABLE_OUTBOX_RELAY", false),
		EnableSwagger:     envBool("ENABLE_SWAGGER", true),
	}, nil
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return value, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
