// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (PARLEY_*)
//  2. Config file (~/.parley/config.yaml)
//  3. Default values
//
// Runtime-mutable display settings (language, send key, font size,
// system instruction) are saved back to the config file via Save; the
// engine consumes them as an immutable snapshot, so persistence here is
// independent of engine correctness.
//
// Security: the PostgreSQL password is masked in MarshalJSON. When adding
// sensitive fields, update MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidStorage indicates an unknown storage backend.
	ErrInvalidStorage = errors.New("invalid storage backend")

	// ErrInvalidLanguage indicates an unsupported UI language.
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrInvalidSendKey indicates an unknown send-key behavior.
	ErrInvalidSendKey = errors.New("invalid send key")

	// ErrInvalidFontSize indicates a font size out of range.
	ErrInvalidFontSize = errors.New("invalid font size")

	// ErrInvalidModelName indicates an empty or malformed model name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgresPort indicates a PostgreSQL port out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")
)

// Storage backend identifiers used in Config.Storage.
const (
	StorageLocal    = "local"
	StoragePostgres = "postgres"
)

// Font size bounds for display settings.
const (
	MinFontSize = 8
	MaxFontSize = 32
)

// Config stores application configuration.
type Config struct {
	// Generation
	ModelName         string `mapstructure:"model_name" json:"model_name"` // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	SystemInstruction string `mapstructure:"system_instruction" json:"system_instruction"`

	// Display settings
	Language string `mapstructure:"language" json:"language"` // "en", "zh-TW"
	SendKey  string `mapstructure:"send_key" json:"send_key"` // "enter", "ctrl+enter"
	FontSize int    `mapstructure:"font_size" json:"font_size"`

	// Storage
	Storage string `mapstructure:"storage" json:"storage"`   // "local" (default) or "postgres"
	DataDir string `mapstructure:"data_dir" json:"data_dir"` // local store directory

	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve mode
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (serve mode, disabled by default)
	TracingEnabled  bool   `mapstructure:"tracing_enabled" json:"tracing_enabled"`
	TracingEndpoint string `mapstructure:"tracing_endpoint" json:"tracing_endpoint"`
}

// Dir returns the configuration directory (~/.parley), creating it if
// needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	dir := filepath.Join(home, ".parley")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Load loads configuration with priority env > file > defaults.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return load(dir)
}

// load reads configuration from the given directory. Split out for
// tests.
func load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v, dir)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("config file not found, using defaults", "dir", dir)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration back to ~/.parley/config.yaml.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return save(cfg, dir)
}

func save(cfg *Config, dir string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("model_name", cfg.ModelName)
	v.Set("system_instruction", cfg.SystemInstruction)
	v.Set("language", cfg.Language)
	v.Set("send_key", cfg.SendKey)
	v.Set("font_size", cfg.FontSize)
	v.Set("storage", cfg.Storage)
	v.Set("data_dir", cfg.DataDir)
	v.Set("postgres_host", cfg.PostgresHost)
	v.Set("postgres_port", cfg.PostgresPort)
	v.Set("postgres_user", cfg.PostgresUser)
	v.Set("postgres_password", cfg.PostgresPassword)
	v.Set("postgres_db_name", cfg.PostgresDBName)
	v.Set("postgres_ssl_mode", cfg.PostgresSSLMode)
	v.Set("http_addr", cfg.HTTPAddr)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_json", cfg.LogJSON)
	v.Set("tracing_enabled", cfg.TracingEnabled)
	v.Set("tracing_endpoint", cfg.TracingEndpoint)

	path := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("model_name", "googleai/gemini-2.5-flash")
	v.SetDefault("system_instruction", "")
	v.SetDefault("language", "en")
	v.SetDefault("send_key", "enter")
	v.SetDefault("font_size", 14)
	v.SetDefault("storage", StorageLocal)
	v.SetDefault("data_dir", filepath.Join(dir, "data"))
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "parley")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "parley")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("http_addr", "127.0.0.1:3400")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("tracing_endpoint", "localhost:4318")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PARLEY")
	keys := []string{
		"model_name", "system_instruction", "language", "send_key",
		"font_size", "storage", "data_dir",
		"postgres_host", "postgres_port", "postgres_user",
		"postgres_password", "postgres_db_name", "postgres_ssl_mode",
		"http_addr", "log_level", "log_json",
		"tracing_enabled", "tracing_endpoint",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// ConnString builds the PostgreSQL connection string.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// SlogLevel maps the configured log level to slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "********"
	}
	return json.Marshal(masked)
}
