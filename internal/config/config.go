package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Concord/internal/scoring"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Hermes     HermesConfig     `yaml:"hermes"`
	Assignment AssignmentConfig `yaml:"assignment"`
	Matching   MatchingConfig   `yaml:"matching"`
	MCP        MCPConfig        `yaml:"mcp"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type AssignmentConfig struct {
	AutoAssignEnabled bool `yaml:"auto_assign_enabled"`
	TickIntervalMs    int  `yaml:"tick_interval_ms"`
	StatsIntervalMs   int  `yaml:"stats_interval_ms"`
}

type MatchingConfig struct {
	Weights         MatchingWeights `yaml:"weights"`
	WorkloadPenalty float64         `yaml:"workload_penalty"`
	ExactSkills     bool            `yaml:"exact_skills"`
	DefaultStrategy string          `yaml:"default_strategy"`
	PartnerLimit    int             `yaml:"partner_limit"`
}

type MatchingWeights struct {
	Skill     float64 `yaml:"skill"`
	Elemental float64 `yaml:"elemental"`
	Workload  float64 `yaml:"workload"`
}

type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Assignment.TickIntervalMs) * time.Millisecond
}

func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Assignment.StatsIntervalMs) * time.Millisecond
}

// WeightSet converts the matching section into engine weights.
func (c *Config) WeightSet() scoring.WeightSet {
	return scoring.WeightSet{
		Skill:           c.Matching.Weights.Skill,
		Elemental:       c.Matching.Weights.Elemental,
		Workload:        c.Matching.Weights.Workload,
		WorkloadPenalty: c.Matching.WorkloadPenalty,
	}
}

func defaults() *Config {
	w := scoring.DefaultWeights()
	return &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Database: DatabaseConfig{
			Driver:     DriverMemory,
			SQLitePath: "data/concord.db",
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Assignment: AssignmentConfig{
			AutoAssignEnabled: false,
			TickIntervalMs:    5000,
			StatsIntervalMs:   30000,
		},
		Matching: MatchingConfig{
			Weights: MatchingWeights{
				Skill:     w.Skill,
				Elemental: w.Elemental,
				Workload:  w.Workload,
			},
			WorkloadPenalty: w.WorkloadPenalty,
			DefaultStrategy: string(scoring.StrategyHybrid),
			PartnerLimit:    scoring.DefaultPartnerLimit,
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if err := c.WeightSet().Validate(); err != nil {
		return fmt.Errorf("matching weights: %w", err)
	}
	if _, err := scoring.ParseStrategy(c.Matching.DefaultStrategy); err != nil {
		return fmt.Errorf("matching.default_strategy: %w", err)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Matching.PartnerLimit < 0 {
		return fmt.Errorf("matching.partner_limit must not be negative")
	}
	if c.Assignment.AutoAssignEnabled && c.Assignment.TickIntervalMs <= 0 {
		return fmt.Errorf("assignment.tick_interval_ms must be positive when auto-assign is enabled")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CONCORD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("CONCORD_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("CONCORD_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("CONCORD_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CONCORD_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		if os.Getenv("CONCORD_DATABASE_DRIVER") == "" {
			cfg.Database.Driver = DriverPostgres
		}
	}
	if v := os.Getenv("CONCORD_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CONCORD_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("CONCORD_AUTO_ASSIGN_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Assignment.AutoAssignEnabled = b
		}
	}
	if v := os.Getenv("CONCORD_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Assignment.TickIntervalMs = n
		}
	}
	if v := os.Getenv("CONCORD_STATS_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Assignment.StatsIntervalMs = n
		}
	}
	if v := os.Getenv("CONCORD_EXACT_SKILLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Matching.ExactSkills = b
		}
	}
	if v := os.Getenv("CONCORD_DEFAULT_STRATEGY"); v != "" {
		cfg.Matching.DefaultStrategy = v
	}
	if v := os.Getenv("CONCORD_MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MCP.Enabled = b
		}
	}
	if v := os.Getenv("CONCORD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONCORD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
