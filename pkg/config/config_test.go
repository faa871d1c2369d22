package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmetrics/beacon/pkg/observability"
)

var allEnvVars = []string{
	"BEACON_PROVIDER",
	"BEACON_DOMAIN",
	"BEACON_SCRIPT_URL",
	"BEACON_DEBUG",
	"BEACON_TRACK_PAGEVIEWS",
	"BEACON_TRACK_WEB_VITALS",
	"BEACON_TRACK_SCROLL_DEPTH",
	"BEACON_RESPECT_DNT",
	"BEACON_DISABLED",
	"BEACON_ENV",
	"BEACON_FORCE_ENABLE",
	"BEACON_MONITORING_DSN",
	"BEACON_SANITIZER_RULES",
	"BEACON_LOG_LEVEL",
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range allEnvVars {
		t.Setenv(k, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoadInertConfigurations(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "no domain",
			env:  map[string]string{"BEACON_ENV": "production"},
		},
		{
			name: "explicitly disabled",
			env: map[string]string{
				"BEACON_DOMAIN":   "example.com",
				"BEACON_ENV":      "production",
				"BEACON_DISABLED": "true",
			},
		},
		{
			name: "development without opt-in",
			env: map[string]string{
				"BEACON_DOMAIN": "example.com",
				"BEACON_ENV":    "development",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			cfg, err := Load()
			require.NoError(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"BEACON_DOMAIN": "example.com",
		"BEACON_ENV":    "production",
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "plausible", cfg.Provider)
	assert.Equal(t, "example.com", cfg.Domain)
	assert.Empty(t, cfg.ScriptURL)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.TrackPageviews)
	assert.True(t, cfg.TrackWebVitals)
	assert.True(t, cfg.TrackScrollDepth)
	assert.True(t, cfg.RespectDNT)
	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel)
}

func TestLoadCustomValues(t *testing.T) {
	setEnv(t, map[string]string{
		"BEACON_DOMAIN":             "example.com",
		"BEACON_ENV":                "production",
		"BEACON_PROVIDER":           "fathom",
		"BEACON_SCRIPT_URL":         "https://plausible.io/js/script.js",
		"BEACON_DEBUG":              "true",
		"BEACON_TRACK_PAGEVIEWS":    "false",
		"BEACON_TRACK_WEB_VITALS":   "false",
		"BEACON_TRACK_SCROLL_DEPTH": "false",
		"BEACON_RESPECT_DNT":        "false",
		"BEACON_MONITORING_DSN":     "https://ingest.example.com/reports",
		"BEACON_SANITIZER_RULES":    "/etc/beacon/rules.yaml",
		"BEACON_LOG_LEVEL":          "debug",
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "fathom", cfg.Provider)
	assert.Equal(t, "https://plausible.io/js/script.js", cfg.ScriptURL)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.TrackPageviews)
	assert.False(t, cfg.TrackWebVitals)
	assert.False(t, cfg.TrackScrollDepth)
	assert.False(t, cfg.RespectDNT)
	assert.Equal(t, "https://ingest.example.com/reports", cfg.MonitoringDSN)
	assert.Equal(t, "/etc/beacon/rules.yaml", cfg.SanitizerRulesPath)
	assert.Equal(t, observability.DebugLevel, cfg.LogLevel)
}

func TestLoadForceEnableOutsideProduction(t *testing.T) {
	setEnv(t, map[string]string{
		"BEACON_DOMAIN":       "example.com",
		"BEACON_ENV":          "development",
		"BEACON_FORCE_ENABLE": "true",
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing domain",
			cfg:     Config{Provider: "plausible"},
			wantErr: "domain is required",
		},
		{
			name:    "missing provider",
			cfg:     Config{Domain: "example.com"},
			wantErr: "provider is required",
		},
		{
			name: "valid",
			cfg:  Config{Domain: "example.com", Provider: "plausible"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, EnvProduction, parseEnvironment("production"))
	assert.Equal(t, EnvProduction, parseEnvironment("PROD"))
	assert.Equal(t, EnvDevelopment, parseEnvironment("development"))
	assert.Equal(t, EnvDevelopment, parseEnvironment("staging"))
	assert.Equal(t, EnvDevelopment, parseEnvironment(""))
}

func TestIsDevelopment(t *testing.T) {
	prod := Config{Environment: EnvProduction}
	assert.False(t, prod.IsDevelopment())

	debug := Config{Environment: EnvProduction, Debug: true}
	assert.True(t, debug.IsDevelopment())

	dev := Config{Environment: EnvDevelopment}
	assert.True(t, dev.IsDevelopment())
}
