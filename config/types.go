package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Octopus OctopusConfig `mapstructure:"octopus"`
	Bulk    BulkConfig    `mapstructure:"bulk"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// OctopusConfig holds API connection details
type OctopusConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	// DefaultList is used by commands run without --list.
	DefaultList string `mapstructure:"default_list"`
}

// BulkConfig controls batch operations
type BulkConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// FilterConfig holds the expression cache size, evaluation workers and
// named filter presets. Zero workers means one per CPU.
type FilterConfig struct {
	CacheSize int               `mapstructure:"cache_size"`
	Workers   int               `mapstructure:"workers"`
	Presets   map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
