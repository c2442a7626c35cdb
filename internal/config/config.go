// Package config loads scrimmetrics settings from an optional YAML file and
// SCRIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override, e.g. SCRIM_PATHS_DB.
const EnvPrefix = "SCRIM"

// Config represents the complete application configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Analyst  AnalystConfig  `yaml:"analyst" envconfig:"ANALYST"`
}

// PathsConfig locates the input sheets and the database. Sheet paths may be
// local files or s3://bucket/key URIs.
type PathsConfig struct {
	RawSheet string `yaml:"raw_sheet" envconfig:"RAW_SHEET" validate:"required"`
	Cleaned  string `yaml:"cleaned" envconfig:"CLEANED" validate:"required"`
	Roster   string `yaml:"roster" envconfig:"ROSTER"`
	Players  string `yaml:"players" envconfig:"PLAYERS"`
	DB       string `yaml:"db" envconfig:"DB" validate:"required"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

// AnalysisConfig tunes the aggregation layer.
type AnalysisConfig struct {
	TopCompositions int `yaml:"top_compositions" envconfig:"TOP_COMPOSITIONS" validate:"min=1,max=100"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// AnalystConfig configures the grounded Q&A command.
type AnalystConfig struct {
	Model  string `yaml:"model" envconfig:"MODEL" validate:"required"`
	APIKey string `yaml:"api_key" envconfig:"API_KEY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			RawSheet: "score.csv",
			Cleaned:  "cleaned_score.csv",
			Roster:   "form.csv",
			Players:  "players.csv",
			DB:       filepath.Join(userHome(), ".scrimmetrics", "scrims.db"),
		},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Analysis: AnalysisConfig{TopCompositions: 15},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Analyst: AnalystConfig{Model: "claude-haiku-4-5-20251001"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// path is non-empty), then SCRIM_* environment variables, then validation.
// A missing file is an error only when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Only variables that are set overwrite a field.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return err
}

// APIKey returns the configured analyst key, falling back to $ANTHROPIC_API_KEY.
func (c *Config) APIKey() string {
	if c.Analyst.APIKey != "" {
		return c.Analyst.APIKey
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
