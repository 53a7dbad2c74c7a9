package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, name := range []string{
		"SERVICE_NAME", "HTTP_PORT", "DEFAULT_PITCH_SECONDS", "DEFAULT_VOTING_SECONDS",
		"BREAK_SECONDS", "TIMER_TICK_MS", "OUTBOX_POLL_MS", "REDIS_CHANNEL", "ENABLE_SWAGGER",
	} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "pitchday" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected identity defaults: %+v", cfg)
	}
	if cfg.DefaultPitchSeconds != 90 || cfg.DefaultVotingSeconds != 30 || cfg.BreakSeconds != 120 {
		t.Fatalf("unexpected duration defaults: %+v", cfg)
	}
	if cfg.TimerTick != time.Second {
		t.Fatalf("expected 1s tick, got %s", cfg.TimerTick)
	}
	if !cfg.EnableSwagger || cfg.RedisChannel != "pitchday.voting" {
		t.Fatalf("unexpected feature defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEFAULT_PITCH_SECONDS", "60")
	t.Setenv("TIMER_TICK_MS", "50")
	t.Setenv("ENABLE_TIMER_RESUME", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultPitchSeconds != 60 {
		t.Fatalf("expected pitch 60, got %d", cfg.DefaultPitchSeconds)
	}
	if cfg.TimerTick != 50*time.Millisecond {
		t.Fatalf("expected 50ms tick, got %s", cfg.TimerTick)
	}
	if cfg.EnableTimerResume {
		t.Fatalf("expected timer resume disabled")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEFAULT_VOTING_SECONDS", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid duration error")
	}
}
