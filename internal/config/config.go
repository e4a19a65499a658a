// Package config handles configuration loading and management for taskfleet.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskfleet.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Models    ModelsConfig    `mapstructure:"models"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Streaming StreamingConfig `mapstructure:"streaming"`
	Server    ServerConfig    `mapstructure:"server"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Teams     TeamsConfig     `mapstructure:"teams"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseAWSBedrock routes calls through AWS Bedrock instead of the direct API.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// ModelsConfig holds the primary/fallback model pair.
type ModelsConfig struct {
	// Primary is the model used until the failure threshold is crossed.
	Primary string `mapstructure:"primary"`
	// Fallback is the model switched to after repeated failures.
	Fallback string `mapstructure:"fallback"`
	// FallbackAfterAttempts is the consecutive-failure count that flips the
	// selector to the fallback model.
	FallbackAfterAttempts int `mapstructure:"fallback_after_attempts"`
}

// RetryConfig holds retry executor settings.
type RetryConfig struct {
	// MaxAttempts is the retry budget per request.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Delay is the base backoff; attempt N sleeps Delay*N.
	Delay time.Duration `mapstructure:"delay"`
	// AttemptTimeout bounds a single team run. Zero disables the bound.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// QuotaConfig holds daily usage quota settings.
type QuotaConfig struct {
	// DailyLimit is the soft cap on recorded requests per calendar day.
	DailyLimit int `mapstructure:"daily_limit"`
	// WarnFraction is the fraction of the limit at which the first (and
	// only) daily warning fires.
	WarnFraction float64 `mapstructure:"warn_fraction"`
	// DBPath is the SQLite file holding the usage record. Empty selects the
	// XDG data path.
	DBPath string `mapstructure:"db_path"`
}

// StreamingConfig holds synthetic chunking settings for teams without
// native streaming.
type StreamingConfig struct {
	// ChunkWords is the number of words per synthetic MESSAGE event.
	ChunkWords int `mapstructure:"chunk_words"`
	// ChunkDelay is the pacing delay between synthetic events.
	ChunkDelay time.Duration `mapstructure:"chunk_delay"`
}

// ServerConfig holds the HTTP boundary settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// WarehouseConfig holds the read-only SQL warehouse settings used by the
// data analysis team's tools.
type WarehouseConfig struct {
	// DBPath is the SQLite database standing in for the warehouse.
	DBPath string `mapstructure:"db_path"`
	// MaxRows caps result sets returned to agents.
	MaxRows int `mapstructure:"max_rows"`
}

// TeamsConfig holds team construction settings.
type TeamsConfig struct {
	// PromptsFile optionally overrides built-in agent system prompts.
	PromptsFile string `mapstructure:"prompts_file"`
	// MaxTurns bounds the data team's agent sequence to prevent loops.
	MaxTurns int `mapstructure:"max_turns"`
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables. Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY, TASKFLEET_*)
//  2. Project config (.taskfleet.yaml in current directory or parent)
//  3. User config (~/.config/taskfleet/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TASKFLEET")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs range checks on the scalar settings. Validation happens
// here at load time; the executors assume the values are sane.
func (c *Config) Validate() error {
	if c.Quota.DailyLimit < 1 {
		return fmt.Errorf("quota.daily_limit must be at least 1, got %d", c.Quota.DailyLimit)
	}
	if c.Quota.WarnFraction <= 0 || c.Quota.WarnFraction > 1 {
		return fmt.Errorf("quota.warn_fraction must be in (0,1], got %v", c.Quota.WarnFraction)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative, got %v", c.Retry.Delay)
	}
	if c.Models.FallbackAfterAttempts < 1 {
		return fmt.Errorf("models.fallback_after_attempts must be at least 1, got %d", c.Models.FallbackAfterAttempts)
	}
	if c.Models.Primary == "" {
		return fmt.Errorf("models.primary must not be empty")
	}
	if c.Models.Fallback == "" {
		return fmt.Errorf("models.fallback must not be empty")
	}
	if c.Streaming.ChunkWords < 1 {
		return fmt.Errorf("streaming.chunk_words must be at least 1, got %d", c.Streaming.ChunkWords)
	}
	if c.Streaming.ChunkDelay < 0 {
		return fmt.Errorf("streaming.chunk_delay must not be negative, got %v", c.Streaming.ChunkDelay)
	}
	return nil
}

// UsageDBPath returns the configured usage database path, falling back to
// the XDG data directory.
func (c *Config) UsageDBPath() string {
	if c.Quota.DBPath != "" {
		return c.Quota.DBPath
	}
	return filepath.Join(getUserDataDir(), "usage.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	// Model defaults
	v.SetDefault("models.primary", "claude-sonnet-4-20250514")
	v.SetDefault("models.fallback", "claude-3-5-haiku-20241022")
	v.SetDefault("models.fallback_after_attempts", 2)

	// Retry defaults
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", "2s")
	v.SetDefault("retry.attempt_timeout", "5m")

	// Quota defaults
	v.SetDefault("quota.daily_limit", 1000)
	v.SetDefault("quota.warn_fraction", 0.8)
	v.SetDefault("quota.db_path", "")

	// Streaming defaults
	v.SetDefault("streaming.chunk_words", 15)
	v.SetDefault("streaming.chunk_delay", "80ms")

	// Server defaults
	v.SetDefault("server.addr", "127.0.0.1:8700")

	// Warehouse defaults
	v.SetDefault("warehouse.db_path", "")
	v.SetDefault("warehouse.max_rows", 100)

	// Team defaults
	v.SetDefault("teams.prompts_file", "")
	v.SetDefault("teams.max_turns", 10)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			Primary:               "claude-sonnet-4-20250514",
			Fallback:              "claude-3-5-haiku-20241022",
			FallbackAfterAttempts: 2,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			Delay:          2 * time.Second,
			AttemptTimeout: 5 * time.Minute,
		},
		Quota: QuotaConfig{
			DailyLimit:   1000,
			WarnFraction: 0.8,
		},
		Streaming: StreamingConfig{
			ChunkWords: 15,
			ChunkDelay: 80 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8700",
		},
		Warehouse: WarehouseConfig{
			MaxRows: 100,
		},
		Teams: TeamsConfig{
			MaxTurns: 10,
		},
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// getUserConfigDir returns the XDG config directory for taskfleet.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskfleet")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskfleet")
	}
	return filepath.Join(home, ".config", "taskfleet")
}

// getUserDataDir returns the XDG data directory for taskfleet.
func getUserDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "taskfleet")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "taskfleet")
	}
	return filepath.Join(home, ".local", "share", "taskfleet")
}

// findProjectConfig searches for .taskfleet.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskfleet.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}
