package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/quietmetrics/beacon/pkg/observability"
)

// Environment identifies the deployment environment.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
)

// Config holds the analytics pipeline configuration. It is constructed once
// at startup and treated as immutable for the lifetime of the page.
type Config struct {
	// Provider selects the analytics back-end (plausible, fathom, umami,
	// simple, custom).
	Provider string

	// Domain is the site identifier sent to the provider. Required; Load
	// returns a nil config when it is absent.
	Domain string

	// ScriptURL optionally overrides the provider's script location. It is
	// validated before use; an invalid override silently disables the
	// provider rather than failing the page.
	ScriptURL string

	// Debug enables development-mode diagnostics.
	Debug bool

	TrackPageviews   bool
	TrackWebVitals   bool
	TrackScrollDepth bool

	// RespectDNT aborts provider initialization when the browser signals
	// Do Not Track.
	RespectDNT bool

	// Environment the pipeline runs in. Outside production the pipeline is
	// inert unless explicitly forced on.
	Environment Environment

	// MonitoringDSN enables the remote crash-reporting sink when set.
	MonitoringDSN string

	// SanitizerRulesPath optionally points at a YAML rule file overriding
	// the built-in PII detection policy.
	SanitizerRulesPath string

	// LogLevel for pipeline diagnostics.
	LogLevel observability.LogLevel
}

// Load resolves the configuration from environment variables.
//
// It returns (nil, nil) when the pipeline should be fully inert: no domain
// configured, explicitly disabled, or a non-production environment without
// the BEACON_FORCE_ENABLE opt-in.
func Load() (*Config, error) {
	if getEnvBool("BEACON_DISABLED", false) {
		return nil, nil
	}

	domain := getEnv("BEACON_DOMAIN", "")
	if domain == "" {
		return nil, nil
	}

	env := parseEnvironment(getEnv("BEACON_ENV", string(EnvDevelopment)))
	if env != EnvProduction && !getEnvBool("BEACON_FORCE_ENABLE", false) {
		return nil, nil
	}

	cfg := &Config{
		Provider:           getEnv("BEACON_PROVIDER", "plausible"),
		Domain:             domain,
		ScriptURL:          getEnv("BEACON_SCRIPT_URL", ""),
		Debug:              getEnvBool("BEACON_DEBUG", false),
		TrackPageviews:     getEnvBool("BEACON_TRACK_PAGEVIEWS", true),
		TrackWebVitals:     getEnvBool("BEACON_TRACK_WEB_VITALS", true),
		TrackScrollDepth:   getEnvBool("BEACON_TRACK_SCROLL_DEPTH", true),
		RespectDNT:         getEnvBool("BEACON_RESPECT_DNT", true),
		Environment:        env,
		MonitoringDSN:      getEnv("BEACON_MONITORING_DSN", ""),
		SanitizerRulesPath: getEnv("BEACON_SANITIZER_RULES", ""),
		LogLevel:           parseLogLevel(getEnv("BEACON_LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	return nil
}

// IsDevelopment reports whether development-mode diagnostics should be
// emitted.
func (c *Config) IsDevelopment() bool {
	return c.Debug || c.Environment != EnvProduction
}

// parseEnvironment normalizes the environment name.
func parseEnvironment(env string) Environment {
	switch strings.ToLower(env) {
	case "production", "prod":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
