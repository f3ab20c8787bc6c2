// Package config loads client configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	UI      UIConfig      `mapstructure:"ui"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig holds download engine connection configuration
type EngineConfig struct {
	URL string `mapstructure:"url"` // Engine base URL
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme           string `mapstructure:"theme"`
	DefaultCategory string `mapstructure:"default_category"`
	ConfirmDelete   bool   `mapstructure:"confirm_delete"`
}

// CacheConfig holds warm-start cache configuration
type CacheConfig struct {
	Dir     string `mapstructure:"dir"`
	Enabled bool   `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			URL: "http://127.0.0.1:7899",
		},
		UI: UIConfig{
			Theme:           "dark",
			DefaultCategory: "All",
			ConfirmDelete:   true,
		},
		Cache: CacheConfig{
			Dir:     defaultCachePath(),
			Enabled: true,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ciel", "ciel.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "ciel", "ciel.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ciel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "ciel")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "ciel", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "ciel", "cache")
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("CIEL")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// First run: materialize the defaults so there is a file to edit.
		// A read-only home is fine; the defaults still apply.
		_ = Save(DefaultConfig())
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to file. It uses its own viper
// instance so writing never shadows environment overrides held by Load's.
func Save(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v := viper.New()
	v.Set("engine.url", cfg.Engine.URL)

	v.Set("ui.theme", cfg.UI.Theme)
	v.Set("ui.default_category", cfg.UI.DefaultCategory)
	v.Set("ui.confirm_delete", cfg.UI.ConfirmDelete)

	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("cache.enabled", cfg.Cache.Enabled)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CacheDir returns the effective cache directory, empty when caching is off.
func (c *Config) CacheDir() string {
	if !c.Cache.Enabled {
		return ""
	}
	return c.Cache.Dir
}
