// This file defines the configuration structure for the application.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port    int `mapstructure:"port"`
	Backend struct {
		BaseURL        string `mapstructure:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"backend"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Credentials struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"credentials"`
	Catalog struct {
		DebounceMS int `mapstructure:"debounce_ms"`
		Retry      struct {
			MaxAttempts int `mapstructure:"max_attempts"`
			BaseDelayMS int `mapstructure:"base_delay_ms"`
			MaxDelayMS  int `mapstructure:"max_delay_ms"`
		} `mapstructure:"retry"`
	} `mapstructure:"catalog"`
	Session struct {
		RevalidateMinutes int `mapstructure:"revalidate_minutes"`
	} `mapstructure:"session"`
	Cache struct {
		MovieTTLHours int `mapstructure:"movie_ttl_hours"`
	} `mapstructure:"cache"`
}

// BackendTimeout is the per-request timeout of the backend client.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// Debounce is the quiet period before a typed search term is committed.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Catalog.DebounceMS) * time.Millisecond
}

// MovieTTL is how long cached movie metadata is kept. Zero disables pruning.
func (c *Config) MovieTTL() time.Duration {
	return time.Duration(c.Cache.MovieTTLHours) * time.Hour
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")

	// MOVIETRACKER_BACKEND_BASE_URL overrides `backend.base_url`, and so on.
	v.SetEnvPrefix("MOVIETRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8090)
	v.SetDefault("backend.base_url", "http://localhost:8888/api")
	v.SetDefault("backend.timeout_seconds", 20)
	v.SetDefault("database.path", "./movietracker.db")
	v.SetDefault("credentials.path", "./.movietracker-token")
	v.SetDefault("catalog.debounce_ms", 300)
	v.SetDefault("catalog.retry.max_attempts", 2)
	v.SetDefault("catalog.retry.base_delay_ms", 1000)
	v.SetDefault("catalog.retry.max_delay_ms", 15000)
	v.SetDefault("session.revalidate_minutes", 5)
	v.SetDefault("cache.movie_ttl_hours", 24)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
