package config

import (
	"testing"
	"time"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://10.0.0.2:9000")
	t.Setenv("STATE_DIR", "/tmp/console-state")
	t.Setenv("IDLE_TIMEOUT", "20m")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("REQUEST_LOG", "true")

	cfg := Load()
	if cfg.APIBaseURL != "http://10.0.0.2:9000" {
		t.Fatalf("expected API_BASE_URL override, got %s", cfg.APIBaseURL)
	}
	if cfg.StateDir != "/tmp/console-state" {
		t.Fatalf("expected STATE_DIR override, got %s", cfg.StateDir)
	}
	if cfg.IdleTimeout != 20*time.Minute {
		t.Fatalf("expected IDLE_TIMEOUT 20m, got %s", cfg.IdleTimeout)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("expected POLL_INTERVAL 2s, got %s", cfg.PollInterval)
	}
	if !cfg.LogRequests {
		t.Fatalf("expected REQUEST_LOG override")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IDLE_TIMEOUT", "")
	t.Setenv("POLL_INTERVAL", "")

	cfg := Load()
	if cfg.IdleTimeout != 15*time.Minute {
		t.Fatalf("expected default idle timeout 15m, got %s", cfg.IdleTimeout)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("expected default poll interval 5s, got %s", cfg.PollInterval)
	}
}

func TestGetenvDurationSecondsFallback(t *testing.T) {
	t.Setenv("IDLE_TIMEOUT", "")
	t.Setenv("IDLE_TIMEOUT_SECONDS", "90")

	cfg := Load()
	if cfg.IdleTimeout != 90*time.Second {
		t.Fatalf("expected 90s from seconds fallback, got %s", cfg.IdleTimeout)
	}
}
