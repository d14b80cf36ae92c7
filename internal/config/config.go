// ABOUTME: Configuration loading and parsing for coven-bot
// ABOUTME: Supports YAML or TOML files with ${VAR} expansion, COVEN_BOT_ env overrides and duration parsing

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "COVEN_BOT_"

// Config represents the complete coven-bot configuration
type Config struct {
	Bot      BotConfig      `yaml:"bot" toml:"bot" envPrefix:"BOT_"`
	Matrix   MatrixConfig   `yaml:"matrix" toml:"matrix" envPrefix:"MATRIX_"`
	Server   ServerConfig   `yaml:"server" toml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" toml:"database" envPrefix:"DATABASE_"`
	Dispatch DispatchConfig `yaml:"dispatch" toml:"dispatch" envPrefix:"DISPATCH_"`
	Tasks    TasksConfig    `yaml:"tasks" toml:"tasks" envPrefix:"TASKS_"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging" envPrefix:"LOGGING_"`
}

// BotConfig holds identity and command settings
type BotConfig struct {
	Name          string   `yaml:"name" toml:"name" env:"NAME"`
	CommandPrefix string   `yaml:"command_prefix" toml:"command_prefix" env:"COMMAND_PREFIX"`
	Owners        []string `yaml:"owners" toml:"owners" env:"OWNERS"`
}

// MatrixConfig holds Matrix connection settings. Either access_token or
// username and password are required.
type MatrixConfig struct {
	Homeserver      string   `yaml:"homeserver" toml:"homeserver" env:"HOMESERVER"`
	UserID          string   `yaml:"user_id" toml:"user_id" env:"USER_ID"`
	AccessToken     string   `yaml:"access_token" toml:"access_token" env:"ACCESS_TOKEN"`
	Username        string   `yaml:"username" toml:"username" env:"USERNAME"`
	Password        string   `yaml:"password" toml:"password" env:"PASSWORD"`
	RecoveryKey     string   `yaml:"recovery_key" toml:"recovery_key" env:"RECOVERY_KEY"`
	AllowedRooms    []string `yaml:"allowed_rooms" toml:"allowed_rooms" env:"ALLOWED_ROOMS"`
	TypingIndicator *bool    `yaml:"typing_indicator" toml:"typing_indicator" env:"TYPING_INDICATOR"`
	// CryptoDatabase is where end-to-end encryption keys are kept. Empty
	// disables encryption support.
	CryptoDatabase string `yaml:"crypto_database" toml:"crypto_database" env:"CRYPTO_DATABASE"`
}

// Typing reports whether to show a typing indicator while handling commands.
// Defaults to true.
func (m MatrixConfig) Typing() bool {
	return m.TypingIndicator == nil || *m.TypingIndicator
}

// ServerConfig holds the status HTTP server address. Empty disables it.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"HTTP_ADDR"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"PATH"`
}

// DispatchConfig tunes the event dispatcher
type DispatchConfig struct {
	Workers    int `yaml:"workers" toml:"workers" env:"WORKERS"`
	DedupeSize int `yaml:"dedupe_size" toml:"dedupe_size" env:"DEDUPE_SIZE"`

	DedupeTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	DedupeTTLRaw string `yaml:"dedupe_ttl" toml:"dedupe_ttl" env:"DEDUPE_TTL"`
}

// TasksConfig tunes background task retention
type TasksConfig struct {
	Retention    time.Duration `yaml:"-" toml:"-"`
	ReapInterval time.Duration `yaml:"-" toml:"-"`

	RetentionRaw    string `yaml:"retention" toml:"retention" env:"RETENTION"`
	ReapIntervalRaw string `yaml:"reap_interval" toml:"reap_interval" env:"REAP_INTERVAL"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"LEVEL"`
	Format string `yaml:"format" toml:"format" env:"FORMAT"`
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Default returns a configuration with every default applied and no Matrix
// credentials.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	_ = parseDurations(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are read as TOML, anything else as YAML. Environment
// variables in the format ${VAR_NAME} are expanded before decoding, and
// COVEN_BOT_* variables override decoded values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides cfg from COVEN_BOT_* environment variables, e.g.
// COVEN_BOT_MATRIX_ACCESS_TOKEN or COVEN_BOT_DISPATCH_WORKERS.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Bot.Name == "" {
		c.Bot.Name = "coven-bot"
	}
	if c.Bot.CommandPrefix == "" {
		c.Bot.CommandPrefix = "!"
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath()
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.DedupeSize <= 0 {
		c.Dispatch.DedupeSize = 10000
	}
	if c.Dispatch.DedupeTTLRaw == "" {
		c.Dispatch.DedupeTTLRaw = "5m"
	}
	if c.Tasks.RetentionRaw == "" {
		c.Tasks.RetentionRaw = "10m"
	}
	if c.Tasks.ReapIntervalRaw == "" {
		c.Tasks.ReapIntervalRaw = "1m"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func defaultDatabasePath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "coven", "bot.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "coven", "bot.db")
	}
	return "bot.db"
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Bot.CommandPrefix, " \t\n") {
		return fmt.Errorf("bot.command_prefix must not contain whitespace")
	}

	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("matrix.homeserver must be an http(s) URL, got %q", c.Matrix.Homeserver)
	}
	if c.Matrix.AccessToken == "" {
		if c.Matrix.Username == "" || c.Matrix.Password == "" {
			return fmt.Errorf("matrix.access_token or matrix.username and matrix.password are required")
		}
	} else if !strings.HasPrefix(c.Matrix.UserID, "@") || !strings.Contains(c.Matrix.UserID, ":") {
		return fmt.Errorf("matrix.user_id must look like @name:server when using an access token")
	}
	for _, room := range c.Matrix.AllowedRooms {
		if !strings.HasPrefix(room, "!") && !strings.HasPrefix(room, "#") {
			return fmt.Errorf("matrix.allowed_rooms entry %q must be a room id or alias", room)
		}
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Tasks.Retention < 0 || c.Dispatch.DedupeTTL <= 0 {
		return fmt.Errorf("tasks.retention must not be negative and dispatch.dedupe_ttl must be positive")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"dispatch.dedupe_ttl", cfg.Dispatch.DedupeTTLRaw, &cfg.Dispatch.DedupeTTL},
		{"tasks.retention", cfg.Tasks.RetentionRaw, &cfg.Tasks.Retention},
		{"tasks.reap_interval", cfg.Tasks.ReapIntervalRaw, &cfg.Tasks.ReapInterval},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// WriteYAML writes cfg to path, creating parent directories. Durations are
// written in their raw form.
func WriteYAML(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
