package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var concordEnv = []string{
	"CONCORD_PORT", "CONCORD_METRICS_PORT", "CONCORD_ADMIN_TOKEN",
	"CONCORD_DATABASE_DRIVER", "CONCORD_DATABASE_URL", "CONCORD_SQLITE_PATH",
	"CONCORD_HERMES_URL", "CONCORD_AUTO_ASSIGN_ENABLED", "CONCORD_TICK_INTERVAL_MS",
	"CONCORD_STATS_INTERVAL_MS", "CONCORD_EXACT_SKILLS", "CONCORD_DEFAULT_STRATEGY",
	"CONCORD_MCP_ENABLED", "CONCORD_LOG_LEVEL", "CONCORD_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range concordEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Database.Driver)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Assignment.AutoAssignEnabled {
		t.Error("expected auto-assign disabled by default")
	}
	if !cfg.MCP.Enabled || cfg.MCP.Path != "/mcp" {
		t.Errorf("expected MCP enabled at /mcp, got %+v", cfg.MCP)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	// Matching defaults
	w := cfg.WeightSet()
	if w.Skill != 40 || w.Elemental != 30 || w.Workload != 30 || w.WorkloadPenalty != 5 {
		t.Errorf("unexpected default weights %+v", w)
	}
	if cfg.Matching.DefaultStrategy != "hybrid" {
		t.Errorf("expected hybrid strategy, got %s", cfg.Matching.DefaultStrategy)
	}
	if cfg.Matching.PartnerLimit != 3 {
		t.Errorf("expected partner limit 3, got %d", cfg.Matching.PartnerLimit)
	}
	if cfg.Matching.ExactSkills {
		t.Error("expected containment skill matching by default")
	}

	// Duration helpers
	if cfg.TickInterval() != 5*time.Second {
		t.Errorf("expected TickInterval 5s, got %v", cfg.TickInterval())
	}
	if cfg.StatsInterval() != 30*time.Second {
		t.Errorf("expected StatsInterval 30s, got %v", cfg.StatsInterval())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONCORD_PORT", "9000")
	t.Setenv("CONCORD_METRICS_PORT", "9001")
	t.Setenv("CONCORD_ADMIN_TOKEN", "secret-token")
	t.Setenv("CONCORD_DATABASE_URL", "postgres://localhost/concord_test")
	t.Setenv("CONCORD_HERMES_URL", "nats://nats:4222")
	t.Setenv("CONCORD_AUTO_ASSIGN_ENABLED", "true")
	t.Setenv("CONCORD_TICK_INTERVAL_MS", "2000")
	t.Setenv("CONCORD_EXACT_SKILLS", "true")
	t.Setenv("CONCORD_DEFAULT_STRATEGY", "wuxing")
	t.Setenv("CONCORD_MCP_ENABLED", "false")
	t.Setenv("CONCORD_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/concord_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("a database URL should select postgres, got %s", cfg.Database.Driver)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if !cfg.Assignment.AutoAssignEnabled {
		t.Error("expected auto-assign enabled")
	}
	if cfg.Assignment.TickIntervalMs != 2000 {
		t.Errorf("expected tick 2000, got %d", cfg.Assignment.TickIntervalMs)
	}
	if !cfg.Matching.ExactSkills {
		t.Error("expected exact skill matching")
	}
	if cfg.Matching.DefaultStrategy != "wuxing" {
		t.Errorf("expected strategy alias to be kept, got %s", cfg.Matching.DefaultStrategy)
	}
	if cfg.MCP.Enabled {
		t.Error("expected MCP disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "concord.yaml")
	yaml := `
server:
  port: 8800
database:
  driver: sqlite
  sqlite_path: /tmp/concord.db
matching:
  weights:
    skill: 50
    elemental: 25
    workload: 25
  workload_penalty: 10
  partner_limit: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8800 {
		t.Errorf("expected port 8800, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("unset keys should keep defaults, got metrics port %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.SQLitePath != "/tmp/concord.db" {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	w := cfg.WeightSet()
	if w.Skill != 50 || w.Elemental != 25 || w.Workload != 25 || w.WorkloadPenalty != 10 {
		t.Errorf("unexpected weights %+v", w)
	}
	if cfg.Matching.PartnerLimit != 5 {
		t.Errorf("expected partner limit 5, got %d", cfg.Matching.PartnerLimit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"weights must sum to 100", func(c *Config) { c.Matching.Weights.Skill = 50 }, "weights"},
		{"negative penalty", func(c *Config) { c.Matching.WorkloadPenalty = -1 }, "negative"},
		{"unknown strategy", func(c *Config) { c.Matching.DefaultStrategy = "vibes" }, "default_strategy"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, "unknown database driver"},
		{"postgres needs url", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.url"},
		{"sqlite needs path", func(c *Config) {
			c.Database.Driver = DriverSQLite
			c.Database.SQLitePath = ""
		}, "sqlite_path"},
		{"auto-assign needs tick", func(c *Config) {
			c.Assignment.AutoAssignEnabled = true
			c.Assignment.TickIntervalMs = 0
		}, "tick_interval_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
