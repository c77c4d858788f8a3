package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/yohans-kasaw/taskloop/internal/store"
)

// Config is the full taskloop configuration, loaded from
// ~/.config/taskloop/config.yaml (or ./config.yaml).
type Config struct {
	Store store.Config `mapstructure:"store"`
	Cache CacheConfig  `mapstructure:"cache"`
	Debug bool         `mapstructure:"debug"`
}

// CacheConfig controls cache boundary placement.
type CacheConfig struct {
	UseAnchor       bool `mapstructure:"use_anchor"`
	AnchorThreshold int  `mapstructure:"anchor_threshold"`
}

// ConfigDir returns the XDG config directory for taskloop.
func ConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskloop"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "taskloop"), nil
}

// Load reads the config file if present and applies defaults. A missing
// file is not an error.
func Load() (*Config, error) {
	configPath, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	viper.SetDefault("cache.use_anchor", true)
	viper.SetDefault("cache.anchor_threshold", 5)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
