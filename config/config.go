package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/s0up4200/octolist/bulk"
	"github.com/s0up4200/octolist/filter"
	"github.com/s0up4200/octolist/octopus"
)

// EnvPrefix prefixes every environment override, e.g. OCTOLIST_OCTOPUS_API_KEY
const EnvPrefix = "OCTOLIST"

const placeholderAPIKey = "your-api-key-here"

// Load loads the configuration from file and environment. With an explicit
// path the file must exist; otherwise the standard locations are searched
// and a missing file leaves defaults and environment in effect.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".octolist"))
		}
		v.AddConfigPath("/etc/octolist/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key is registered so
// that environment overrides are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("octopus.url", octopus.DefaultBaseURL)
	v.SetDefault("octopus.api_key", "")
	v.SetDefault("octopus.timeout", "30s")
	v.SetDefault("octopus.user_agent", "octolist")
	v.SetDefault("octopus.default_list", "")

	v.SetDefault("bulk.concurrency", bulk.DefaultConcurrency)

	v.SetDefault("filter.cache_size", filter.DefaultCacheSize)
	v.SetDefault("filter.workers", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Octopus.URL == "" {
		return fmt.Errorf("octopus.url is required")
	}
	if u, err := url.Parse(cfg.Octopus.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("octopus.url must be an absolute URL: %s", cfg.Octopus.URL)
	}

	if cfg.Octopus.APIKey == "" || cfg.Octopus.APIKey == placeholderAPIKey {
		return fmt.Errorf("octopus.api_key must be set to a valid API key")
	}

	if cfg.Octopus.Timeout <= 0 {
		return fmt.Errorf("octopus.timeout must be positive, got %s", cfg.Octopus.Timeout)
	}

	if cfg.Bulk.Concurrency <= 0 || cfg.Bulk.Concurrency > bulk.MaxConcurrency {
		return fmt.Errorf("bulk.concurrency must be between 1 and %d, got %d", bulk.MaxConcurrency, cfg.Bulk.Concurrency)
	}

	if cfg.Filter.CacheSize < 0 {
		return fmt.Errorf("filter.cache_size cannot be negative")
	}
	if cfg.Filter.Workers < 0 {
		return fmt.Errorf("filter.workers cannot be negative")
	}
	for name, expression := range cfg.Filter.Presets {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter preset '%s' has an empty expression", name)
		}
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
