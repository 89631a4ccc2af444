package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides
// (e.g. TICKETBOARD_API_BASE_URL).
const EnvPrefix = "TICKETBOARD"

// Cache backend names.
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// EndpointsConfig holds the ticket API paths. Paths may contain an {id}
// placeholder that is replaced with the ticket id.
type EndpointsConfig struct {
	HealthCheck   string `mapstructure:"health_check" yaml:"health_check"`
	ListTickets   string `mapstructure:"list_tickets" yaml:"list_tickets"`
	CreateTicket  string `mapstructure:"create_ticket" yaml:"create_ticket"`
	UpdateTicket  string `mapstructure:"update_ticket" yaml:"update_ticket"`
	DeleteTicket  string `mapstructure:"delete_ticket" yaml:"delete_ticket"`
	ListComments  string `mapstructure:"list_comments" yaml:"list_comments"`
	CreateComment string `mapstructure:"create_comment" yaml:"create_comment"`
}

// APIConfig holds settings for the remote ticket API.
type APIConfig struct {
	BaseURL      string          `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSec   int             `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries   int             `mapstructure:"max_retries" yaml:"max_retries"`
	MockFallback bool            `mapstructure:"mock_fallback" yaml:"mock_fallback"`
	UserID       int64           `mapstructure:"user_id" yaml:"user_id"`
	Endpoints    EndpointsConfig `mapstructure:"endpoints" yaml:"endpoints"`

	// Defaults holds extra fields merged into request bodies, keyed by
	// operation ("create_ticket", "update_ticket", "create_comment").
	Defaults map[string]map[string]any `mapstructure:"defaults" yaml:"defaults"`
}

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// ColumnConfig declares one board column and the remote status it maps to.
type ColumnConfig struct {
	ID     string `mapstructure:"id" yaml:"id"`
	Title  string `mapstructure:"title" yaml:"title"`
	Status string `mapstructure:"status" yaml:"status"`
}

// BoardConfig holds the board layout and refresh settings.
type BoardConfig struct {
	Columns         []ColumnConfig `mapstructure:"columns" yaml:"columns"`
	PollIntervalSec int            `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// RefreshSchedule is an optional 5-field cron expression. When set
	// it replaces the fixed poll interval.
	RefreshSchedule string `mapstructure:"refresh_schedule" yaml:"refresh_schedule"`
}

// PollInterval returns the fixed refresh interval, or 0 when polling is
// disabled.
func (c BoardConfig) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return 0
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// CacheConfig selects and configures the local snapshot cache.
type CacheConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	DBPath      string `mapstructure:"db_path" yaml:"db_path"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisKey    string `mapstructure:"redis_key" yaml:"redis_key"`
	RedisTTLSec int    `mapstructure:"redis_ttl_sec" yaml:"redis_ttl_sec"`
}

// LogConfig controls log verbosity and destination.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API   APIConfig   `mapstructure:"api" yaml:"api"`
	Board BoardConfig `mapstructure:"board" yaml:"board"`
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/ticketboard, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ticketboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/ticketboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultColumns returns the stock workflow columns.
func DefaultColumns() []ColumnConfig {
	return []ColumnConfig{
		{ID: "column-1", Title: "To Do", Status: "open"},
		{ID: "column-2", Title: "In Progress", Status: "in_progress"},
		{ID: "column-3", Title: "Testing", Status: "testing"},
		{ID: "column-4", Title: "Done", Status: "done"},
	}
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:      "http://localhost:8080/api",
			TimeoutSec:   8,
			MaxRetries:   3,
			MockFallback: true,
			UserID:       1,
			Endpoints: EndpointsConfig{
				HealthCheck:   "/health",
				ListTickets:   "/tickets",
				CreateTicket:  "/tickets",
				UpdateTicket:  "/tickets/{id}",
				DeleteTicket:  "/tickets/{id}",
				ListComments:  "/comments",
				CreateComment: "/comments",
			},
			Defaults: map[string]map[string]any{},
		},
		Board: BoardConfig{
			Columns:         DefaultColumns(),
			PollIntervalSec: 60,
		},
		Cache: CacheConfig{
			Backend:     CacheBackendSQLite,
			DBPath:      filepath.Join(dir, "board.db"),
			RedisAddr:   "localhost:6379",
			RedisKey:    "ticketboard:state",
			RedisTTLSec: 0,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "ticketboard.log"),
		},
	}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *AppConfig {
	return defaultAppConfig()
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// applying TICKETBOARD_* environment overrides. If the file does not exist,
// defaults (plus environment overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv can see every scalar key.
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("api.max_retries", def.API.MaxRetries)
	v.SetDefault("api.mock_fallback", def.API.MockFallback)
	v.SetDefault("api.user_id", def.API.UserID)
	v.SetDefault("api.endpoints.health_check", def.API.Endpoints.HealthCheck)
	v.SetDefault("api.endpoints.list_tickets", def.API.Endpoints.ListTickets)
	v.SetDefault("api.endpoints.create_ticket", def.API.Endpoints.CreateTicket)
	v.SetDefault("api.endpoints.update_ticket", def.API.Endpoints.UpdateTicket)
	v.SetDefault("api.endpoints.delete_ticket", def.API.Endpoints.DeleteTicket)
	v.SetDefault("api.endpoints.list_comments", def.API.Endpoints.ListComments)
	v.SetDefault("api.endpoints.create_comment", def.API.Endpoints.CreateComment)
	v.SetDefault("board.poll_interval_sec", def.Board.PollIntervalSec)
	v.SetDefault("board.refresh_schedule", def.Board.RefreshSchedule)
	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.db_path", def.Cache.DBPath)
	v.SetDefault("cache.redis_addr", def.Cache.RedisAddr)
	v.SetDefault("cache.redis_key", def.Cache.RedisKey)
	v.SetDefault("cache.redis_ttl_sec", def.Cache.RedisTTLSec)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)

	if err := v.ReadInConfig(); err != nil {
		_, pathErr := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !pathErr && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.Board.Columns) == 0 {
		cfg.Board.Columns = DefaultColumns()
	}
	if cfg.API.Defaults == nil {
		cfg.API.Defaults = map[string]map[string]any{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// MaxAPIRetries bounds api.max_retries.
const MaxAPIRetries = 10

// Validate checks the configuration for values the board cannot work with.
func (c *AppConfig) Validate() error {
	seenIDs := make(map[string]bool, len(c.Board.Columns))
	seenStatus := make(map[string]bool, len(c.Board.Columns))
	for i, col := range c.Board.Columns {
		if strings.TrimSpace(col.ID) == "" {
			return fmt.Errorf("board.columns[%d]: id must not be empty", i)
		}
		if seenIDs[col.ID] {
			return fmt.Errorf("board.columns[%d]: duplicate id %q", i, col.ID)
		}
		seenIDs[col.ID] = true
		if col.Status != "" {
			if seenStatus[col.Status] {
				return fmt.Errorf("board.columns[%d]: duplicate status %q", i, col.Status)
			}
			seenStatus[col.Status] = true
		}
	}

	if c.API.MaxRetries < 0 || c.API.MaxRetries > MaxAPIRetries {
		return fmt.Errorf("api.max_retries: %d is outside 0..%d", c.API.MaxRetries, MaxAPIRetries)
	}

	switch c.Cache.Backend {
	case CacheBackendSQLite, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}

	if c.Board.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Board.RefreshSchedule); err != nil {
			return fmt.Errorf("board.refresh_schedule: %w", err)
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("board", cfg.Board)
	v.Set("cache", cfg.Cache)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
