package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  port: "9090"
log:
  mode: prod
redis:
  addr: localhost:6379
  ttl: 5m
assessment:
  ttl: 2m
  catalog: config/catalog.yaml
session:
  maxSubmitRetries: 0
  submitTimeout: 3s
attemptApi:
  baseUrl: http://persistence:8080
rewards:
  channel: awards
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Mode != "prod" || cfg.Assessment.Catalog != "config/catalog.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.AttemptAPI.BaseURL != "http://persistence:8080" || cfg.Rewards.Channel != "awards" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := cfg.Retries(3); got != 0 {
		t.Fatalf("explicit zero retries must be kept, got %d", got)
	}
	if got := TTLDuration(cfg.Session.SubmitTimeout, time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s submit timeout, got %s", got)
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	if got := cfg.Retries(3); got != 3 {
		t.Fatalf("expected fallback retries, got %d", got)
	}
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad duration, got %s", got)
	}
}
