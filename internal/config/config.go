// Package config assembles the service configuration from defaults, an
// optional YAML file, and environment variable overrides, in that order.
// Invalid override values log a warning and keep the previous value;
// only a missing auth token with auth enabled is a hard error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/auth"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/engine"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/nasaapi"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/ratelimit"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/rover"
)

// Retry mirrors nasaapi.AttemptPolicy with file-friendly units.
type Retry struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMS int     `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
	MaxDelayMS  int     `yaml:"max_delay_ms"`
	Jitter      float64 `yaml:"jitter"`
}

// Budget is a per-provider request allowance.
type Budget struct {
	MaxPerWindow  int `yaml:"max_per_window"`
	WindowSeconds int `yaml:"window_seconds"`
	Burst         int `yaml:"burst"`
}

// Correlation bounds the correlation engine.
type Correlation struct {
	MaxRangeDays int `yaml:"max_range_days"`
	Parallelism  int `yaml:"parallelism"`
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr        string `yaml:"http_addr"`
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`

	AuthEnabled bool   `yaml:"auth_enabled"`
	AuthToken   string `yaml:"auth_token"`

	Retry          Retry             `yaml:"retry"`
	Budgets        map[string]Budget `yaml:"budgets"`
	FallbackBudget Budget            `yaml:"fallback_budget"`

	APODMaxSpanDays int `yaml:"apod_max_span_days"`
	NEOMaxSpanDays  int `yaml:"neo_max_span_days"`

	Correlation Correlation `yaml:"correlation"`

	// RoverDimensions overrides entries in the built-in rover registry.
	RoverDimensions map[string]rover.Dimensions `yaml:"rover_dimensions"`
}

// Default returns the configuration used when nothing is supplied.
// DEMO_KEY is NASA's public sample key with a reduced hourly quota.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		APIKey:          "DEMO_KEY",
		BaseURL:         "https://api.nasa.gov",
		TimeoutSeconds:  30,
		CacheTTLSeconds: 300,
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelayMS: 500,
			Multiplier:  2.0,
			MaxDelayMS:  8000,
			Jitter:      0.2,
		},
		// 950/hour keeps a safety margin under NASA's 1000/hour key quota.
		Budgets: map[string]Budget{
			"apod":      {MaxPerWindow: 950, WindowSeconds: 3600, Burst: 1},
			"neows":     {MaxPerWindow: 950, WindowSeconds: 3600, Burst: 1},
			"marsrover": {MaxPerWindow: 950, WindowSeconds: 3600, Burst: 1},
		},
		FallbackBudget:  Budget{MaxPerWindow: 30, WindowSeconds: 3600, Burst: 1},
		APODMaxSpanDays: 100,
		NEOMaxSpanDays:  7,
		Correlation:     Correlation{MaxRangeDays: 31, Parallelism: 4},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// path is non-empty, then environment overrides.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		logger.Info("loaded config file", "path", path)
	}

	cfg.applyEnv(logger)

	if cfg.AuthEnabled && cfg.AuthToken == "" {
		return cfg, errors.New("NASAEXPLORER_AUTH_TOKEN is required when auth is enabled")
	}
	return cfg, nil
}

func (c *Config) applyEnv(logger *slog.Logger) {
	if v := os.Getenv("NASA_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("NASAEXPLORER_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("NASAEXPLORER_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("NASAEXPLORER_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid NASAEXPLORER_AUTH_ENABLED value, keeping previous", "value", v)
		} else {
			c.AuthEnabled = enabled
		}
	}
	if v := os.Getenv("NASAEXPLORER_AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}

	c.envInt(logger, "NASAEXPLORER_TIMEOUT_SECONDS", &c.TimeoutSeconds, 1)
	c.envInt(logger, "NASAEXPLORER_CACHE_TTL_SECONDS", &c.CacheTTLSeconds, 0)
	c.envInt(logger, "NASAEXPLORER_MAX_ATTEMPTS", &c.Retry.MaxAttempts, 1)
	c.envInt(logger, "NASAEXPLORER_CORRELATION_PARALLELISM", &c.Correlation.Parallelism, 1)
	c.envInt(logger, "NASAEXPLORER_CORRELATION_MAX_RANGE_DAYS", &c.Correlation.MaxRangeDays, 1)
}

func (c *Config) envInt(logger *slog.Logger, name string, dst *int, min int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		logger.Warn("invalid value, keeping previous", "var", name, "value", v)
		return
	}
	*dst = n
}

// ClientConfig converts to the upstream client's configuration.
func (c Config) ClientConfig() nasaapi.Config {
	return nasaapi.Config{
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		Timeout:  time.Duration(c.TimeoutSeconds) * time.Second,
		CacheTTL: time.Duration(c.CacheTTLSeconds) * time.Second,
		Policy: nasaapi.AttemptPolicy{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
			Multiplier:  c.Retry.Multiplier,
			MaxDelay:    time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
			Jitter:      c.Retry.Jitter,
		},
	}
}

// RateBudgets converts the per-provider budgets and the fallback.
func (c Config) RateBudgets() ([]ratelimit.Budget, ratelimit.Budget) {
	budgets := make([]ratelimit.Budget, 0, len(c.Budgets))
	for provider, b := range c.Budgets {
		budgets = append(budgets, ratelimit.Budget{
			Provider:     provider,
			MaxPerWindow: b.MaxPerWindow,
			Window:       time.Duration(b.WindowSeconds) * time.Second,
			Burst:        b.Burst,
		})
	}
	fb := ratelimit.Budget{
		MaxPerWindow: c.FallbackBudget.MaxPerWindow,
		Window:       time.Duration(c.FallbackBudget.WindowSeconds) * time.Second,
		Burst:        c.FallbackBudget.Burst,
	}
	return budgets, fb
}

// AuthConfig converts to the API auth middleware configuration.
func (c Config) AuthConfig() auth.Config {
	return auth.Config{Enabled: c.AuthEnabled, Token: c.AuthToken}
}

// EngineConfig converts to the correlation engine configuration.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		MaxRangeDays: c.Correlation.MaxRangeDays,
		Parallelism:  c.Correlation.Parallelism,
	}
}
