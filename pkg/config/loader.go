package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from various sources
type Loader struct {
	// ConfigFile is the path to the YAML configuration file
	ConfigFile string
	// EnvPrefix is the prefix for environment variables (defaults to "SHELFLINE")
	EnvPrefix string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		EnvPrefix: "SHELFLINE",
	}
}

// WithConfigFile sets the configuration file path
func (l *Loader) WithConfigFile(path string) *Loader {
	l.ConfigFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.EnvPrefix = prefix
	return l
}

// Load loads configuration from all sources in priority order:
// 1. Default configuration
// 2. Configuration file (if specified)
// 3. Environment variables
func (l *Loader) Load() (*ShelflineConfig, error) {
	config := DefaultConfig()

	if l.ConfigFile != "" {
		if err := l.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	l.loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func (l *Loader) loadFromFile(config *ShelflineConfig) error {
	data, err := os.ReadFile(l.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", l.ConfigFile, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (l *Loader) loadFromEnv(config *ShelflineConfig) {
	if val := l.getEnv("ENVIRONMENT"); val != "" {
		config.Environment = val
	}

	// Site
	if val := l.getEnv("SITE_LANGUAGE"); val != "" {
		config.Site.Language = val
	}
	if val := l.getEnv("SITE_URL"); val != "" {
		config.Site.URL = val
	}
	if val := l.getEnv("SITE_SERVER_ADDRESS"); val != "" {
		config.Site.ServerAddress = val
	}

	// Proxy
	if val := l.getEnv("PROXY_HOST"); val != "" {
		config.Proxy.Host = val
	}
	if val := l.getEnv("PROXY_PORT"); val != "" {
		config.Proxy.Port = l.parseInt(val, config.Proxy.Port)
	}
	if val := l.getEnv("PROXY_TYPE"); val != "" {
		config.Proxy.Type = val
	}

	// HTTP
	if val := l.getEnv("HTTP_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.HTTP.Timeout = duration
		}
	}
	if val := l.getEnv("HTTP_USER_AGENT"); val != "" {
		config.HTTP.UserAgent = val
	}

	// Social
	if val := l.getEnv("SOCIAL_MAX_TAG_LENGTH"); val != "" {
		config.Social.MaxTagLength = l.parseInt(val, config.Social.MaxTagLength)
	}

	// Content enrichment keys
	if val := l.getEnv("DPLA_API_KEY"); val != "" {
		config.DPLA.APIKey = val
	}
	if val := l.getEnv("CONTENT_EUROPEANA_API"); val != "" {
		config.Content.EuropeanaAPI = val
	}
	if val := l.getEnv("WORLDCAT_ID"); val != "" {
		config.WorldCat.ID = val
	}
	if val := l.getEnv("FACEBOOK_SECRET"); val != "" {
		config.Facebook.Secret = val
	}

	// Auth and catalog
	if val := l.getEnv("AUTH_METHOD"); val != "" {
		config.Auth.Method = val
	}
	if val := l.getEnv("CATALOG_DRIVER"); val != "" {
		config.Catalog.Driver = val
	}

	// Storage
	if val := l.getEnv("CACHE_DIR"); val != "" {
		config.Cache.Dir = val
	}
	if val := l.getEnv("CACHE_PURGE_SCHEDULE"); val != "" {
		config.Cache.PurgeSchedule = val
	}
	if val := l.getEnv("DATABASE_DSN"); val != "" {
		config.Database.DSN = val
	}
	if val := l.getEnv("SESSION_TYPE"); val != "" {
		config.Session.Type = val
	}

	// Logging
	if val := l.getEnv("LOGGING_LEVEL"); val != "" {
		config.Observability.Logging.Level = val
	}
	if val := l.getEnv("LOGGING_FORMAT"); val != "" {
		config.Observability.Logging.Format = val
	}
	if val := l.getEnv("LOGGING_DEVELOPMENT"); val != "" {
		config.Observability.Logging.Development = l.parseBool(val, config.Observability.Logging.Development)
	}

	// Metrics and server
	if val := l.getEnv("METRICS_ENABLED"); val != "" {
		config.Observability.Metrics.Enabled = l.parseBool(val, config.Observability.Metrics.Enabled)
	}
	if val := l.getEnv("SERVER_ENABLED"); val != "" {
		config.Observability.Server.Enabled = l.parseBool(val, config.Observability.Server.Enabled)
	}
	if val := l.getEnv("SERVER_BIND_ADDRESS"); val != "" {
		config.Observability.Server.BindAddress = val
	}
}

// getEnv gets an environment variable with the configured prefix
func (l *Loader) getEnv(key string) string {
	return os.Getenv(l.EnvPrefix + "_" + key)
}

// parseBool parses a boolean string, returning fallback on error
func (l *Loader) parseBool(val string, fallback bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// parseInt parses an integer string, returning fallback on error
func (l *Loader) parseInt(val string, fallback int) int {
	if i, err := strconv.Atoi(val); err == nil {
		return i
	}
	return fallback
}

// Save saves the configuration to a YAML file
func (config *ShelflineConfig) Save(filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadFromFile is a convenience function to load configuration from a file
func LoadFromFile(filename string) (*ShelflineConfig, error) {
	return NewLoader().WithConfigFile(filename).Load()
}

// LoadFromEnv is a convenience function to load configuration from environment variables only
func LoadFromEnv() (*ShelflineConfig, error) {
	return NewLoader().Load()
}
