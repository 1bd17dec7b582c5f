package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "gmw.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
local:
  state_path: "/tmp/state.json"
  queue_path: "/tmp/queue.db"
  timezone: "UTC"

remote:
  dsn: "postgres://u:p@localhost:5432/gmw"
  max_conns: 8
  min_conns: 1
  timeout: "5s"
  pull_limit: 500

sync:
  flush_interval: "1m"
  summary_debounce: "250ms"

http:
  addr: "127.0.0.1:9999"

log:
  level: "debug"
  format: "json"
`

func TestLoad_FromYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Local.StatePath != "/tmp/state.json" {
		t.Errorf("state_path: got %q", cfg.Local.StatePath)
	}
	if !cfg.Remote.Enabled() {
		t.Error("remote should be enabled when dsn is set")
	}
	if cfg.Remote.MaxConns != 8 || cfg.Remote.MinConns != 1 {
		t.Errorf("conns: got %d/%d", cfg.Remote.MaxConns, cfg.Remote.MinConns)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("timeout: got %s", cfg.Remote.Timeout)
	}
	if cfg.Remote.PullLimit != 500 {
		t.Errorf("pull_limit: got %d", cfg.Remote.PullLimit)
	}
	if cfg.Sync.FlushInterval != time.Minute {
		t.Errorf("flush_interval: got %s", cfg.Sync.FlushInterval)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9999" {
		t.Errorf("http.addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log: got %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("GMW_REMOTE_PULL_LIMIT", "42")
	t.Setenv("GMW_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Remote.PullLimit != 42 {
		t.Errorf("pull_limit: got %d, want 42", cfg.Remote.PullLimit)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level: got %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GMW_CONFIG_PATH", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Remote.Enabled() {
		t.Error("remote should be disabled without a dsn")
	}
	if cfg.Remote.PullLimit != 1500 {
		t.Errorf("pull_limit default: got %d, want 1500", cfg.Remote.PullLimit)
	}
	if cfg.Local.Timezone != "Local" {
		t.Errorf("timezone default: got %q", cfg.Local.Timezone)
	}
	if cfg.Sync.SummaryDebounce != 500*time.Millisecond {
		t.Errorf("summary_debounce default: got %s", cfg.Sync.SummaryDebounce)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Local:  LocalConfig{StatePath: "s.json", QueuePath: "q.db", Timezone: "UTC"},
			Remote: RemoteConfig{MaxConns: 4, Timeout: time.Second, PullLimit: 1500},
			Sync:   SyncConfig{FlushInterval: time.Second},
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty state path", func(c *Config) { c.Local.StatePath = "" }, "state_path"},
		{"bad timezone", func(c *Config) { c.Local.Timezone = "Mars/Olympus" }, "timezone"},
		{"zero pull limit", func(c *Config) { c.Remote.PullLimit = 0 }, "pull_limit"},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }, "timeout"},
		{"min over max", func(c *Config) { c.Remote.MinConns = 10 }, "min_conns"},
		{"short secret", func(c *Config) { c.Remote.JWTSecret = "short" }, "jwt_secret"},
		{"zero flush", func(c *Config) { c.Sync.FlushInterval = 0 }, "flush_interval"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
