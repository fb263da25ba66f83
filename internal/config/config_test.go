package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
server:
  port: 9000
mounts:
  - prefix: /api/users
    name: users
    backends:
      - http://localhost:9001
      - http://localhost:9002
    strategy: random
    auth: true
  - prefix: /images/
    backend: http://localhost:9003
auth:
  api_keys: [key-1]
circuitbreaker:
  threshold: 3
  timeout: 10
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Server.Port)
	}
	if len(cfg.Mounts) != 2 {
		t.Fatalf("Expected 2 mounts, got %d", len(cfg.Mounts))
	}

	users := cfg.Mounts[0]
	if users.DisplayName() != "users" || !users.Auth || users.Strategy != "random" {
		t.Errorf("Unexpected users mount: %+v", users)
	}
	if got := users.GetBackends(); len(got) != 2 {
		t.Errorf("Expected 2 backends, got %v", got)
	}

	images := cfg.Mounts[1]
	if images.DisplayName() != "/images/" {
		t.Errorf("Expected prefix as display name, got %q", images.DisplayName())
	}
	if got := images.GetBackends(); len(got) != 1 || got[0] != "http://localhost:9003" {
		t.Errorf("Expected single backend, got %v", got)
	}

	if cfg.CircuitBreakerTimeout() != 10*time.Second {
		t.Errorf("Expected 10s breaker timeout, got %v", cfg.CircuitBreakerTimeout())
	}
	if cfg.RateLimit.MaxTokens != 10 || cfg.HealthCheckInterval() != 10*time.Second {
		t.Errorf("Expected defaults to be applied, got %+v", cfg)
	}
	if cfg.Log.Level != "info" || cfg.Telemetry.ServiceName != "mountgate" {
		t.Errorf("Expected log/telemetry defaults, got %+v %+v", cfg.Log, cfg.Telemetry)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no mounts", "server:\n  port: 1\n", "at least one mount"},
		{"no backends", "mounts:\n  - prefix: /a\n", "no backends"},
		{"bad strategy", "mounts:\n  - prefix: /a\n    backend: http://x\n    strategy: sticky\n", "unknown strategy"},
		{"auth without credentials", "mounts:\n  - prefix: /a\n    backend: http://x\n    auth: true\n", "auth required"},
		{"bad log level", "mounts:\n  - prefix: /a\n    backend: http://x\nlog:\n  level: loud\n", "unknown level"},
		{"bad yaml", "mounts: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAllBackends(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	all := cfg.AllBackends()
	if len(all["/api/users"]) != 2 || len(all["/images/"]) != 1 {
		t.Errorf("Unexpected backends: %v", all)
	}
}
