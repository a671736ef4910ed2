// Package config holds configuration for the collector and the query
// service. The collector is configured from an optional YAML file layered
// over built-in defaults; the service is configured from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Collector configuration validation errors.
var (
	ErrMissingSource   = errors.New("source name is required")
	ErrMissingBaseURL  = errors.New("base_url is required")
	ErrNoCategories    = errors.New("at least one category slug is required")
	ErrInvalidCap      = errors.New("max_per_category must be at least 1")
	ErrInvalidMinChars = errors.New("min_chars must be non-negative")
	ErrInvalidDelay    = errors.New("delay_ms must be non-negative")
)

// Collector holds scraper settings: where to scrape, which category slugs
// to keep, and the per-run caps and pacing.
type Collector struct {
	Source         string            `yaml:"source"`
	BaseURL        string            `yaml:"base_url"`
	Categories     []string          `yaml:"categories"`
	Feeds          map[string]string `yaml:"feeds"`
	MaxPerCategory int               `yaml:"max_per_category"`
	MinChars       int               `yaml:"min_chars"`
	DelayMs        int               `yaml:"delay_ms"`
}

// DefaultCollector returns the built-in Times of India configuration.
func DefaultCollector() Collector {
	return Collector{
		Source:  "timesofindia",
		BaseURL: "https://timesofindia.indiatimes.com",
		Categories: []string{
			"india",
			"world",
			"business",
			"sports",
			"technology",
			"tech",
			"health-fitness",
			"science",
			"environment",
			"education",
		},
		MaxPerCategory: 200,
		MinChars:       800,
		DelayMs:        1500,
	}
}

// LoadCollector reads a YAML config file and layers it over the defaults.
// Only fields present in the file override the default values.
func LoadCollector(path string) (Collector, error) {
	cfg := DefaultCollector()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var overlay Collector
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if overlay.Source != "" {
		cfg.Source = overlay.Source
	}
	if overlay.BaseURL != "" {
		cfg.BaseURL = overlay.BaseURL
	}
	if len(overlay.Categories) > 0 {
		cfg.Categories = overlay.Categories
	}
	if len(overlay.Feeds) > 0 {
		cfg.Feeds = overlay.Feeds
	}
	if overlay.MaxPerCategory > 0 {
		cfg.MaxPerCategory = overlay.MaxPerCategory
	}
	if overlay.MinChars > 0 {
		cfg.MinChars = overlay.MinChars
	}
	if overlay.DelayMs > 0 {
		cfg.DelayMs = overlay.DelayMs
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the collector configuration for obvious mistakes.
func (c Collector) Validate() error {
	if c.Source == "" {
		return ErrMissingSource
	}
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if len(c.Categories) == 0 {
		return ErrNoCategories
	}
	if c.MaxPerCategory < 1 {
		return ErrInvalidCap
	}
	if c.MinChars < 0 {
		return ErrInvalidMinChars
	}
	if c.DelayMs < 0 {
		return ErrInvalidDelay
	}
	return nil
}

// Delay returns the pause between article fetches.
func (c Collector) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// Service holds the query service configuration, read from the environment.
type Service struct {
	TablePath    string
	BackendURL   string
	DefaultModel string
	CachePath    string
	EmbedTimeout time.Duration
	Port         string
}

// ServiceFromEnv builds service configuration from environment variables,
// falling back to defaults for anything unset. Setting EMBED_CACHE to an
// empty string disables caching.
func ServiceFromEnv() Service {
	cfg := Service{
		TablePath:    getEnv("NEWS_CSV", "news.csv"),
		BackendURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
		DefaultModel: getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		EmbedTimeout: getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
		Port:         getEnv("PORT", "5000"),
	}
	if v, ok := os.LookupEnv("EMBED_CACHE"); ok {
		cfg.CachePath = v
	} else {
		cfg.CachePath = "embeddings.db"
	}
	return cfg
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
