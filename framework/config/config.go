package config

import (
	"os"
	"strconv"
	"time"
)

// Default timeouts used throughout the framework
const (
	// DefaultHTTPTimeout is the default timeout for a single Web API request
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultNavigationTimeout is the default timeout for page navigations
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultActionTimeout is the default timeout for clicks, fills and locator waits
	DefaultActionTimeout = 30 * time.Second

	// DefaultLoginTimeout is the default timeout for the whole interactive sign-in
	DefaultLoginTimeout = 2 * time.Minute

	// DefaultTestTimeout is the default time a single test is allowed to run
	DefaultTestTimeout = 10 * time.Minute

	// DefaultCleanupTimeout is the default timeout for deleting tracked records
	DefaultCleanupTimeout = 2 * time.Minute

	// DefaultCleanupPollInterval is the default interval for polling record deletion
	DefaultCleanupPollInterval = 2 * time.Second

	// DefaultMaxConcurrentDeletes is the default number of parallel deletes during cleanup
	DefaultMaxConcurrentDeletes = 5
)

// Environment variable names for configuration overrides
const (
	EnvHTTPTimeout          = "CRM_E2E_HTTP_TIMEOUT"
	EnvNavigationTimeout    = "CRM_E2E_NAVIGATION_TIMEOUT"
	EnvActionTimeout        = "CRM_E2E_ACTION_TIMEOUT"
	EnvLoginTimeout         = "CRM_E2E_LOGIN_TIMEOUT"
	EnvTestTimeout          = "CRM_E2E_TEST_TIMEOUT"
	EnvCleanupTimeout       = "CRM_E2E_CLEANUP_TIMEOUT"
	EnvMaxConcurrentDeletes = "CRM_E2E_MAX_CONCURRENT_DELETES"
)

// Config holds framework configuration with optional overrides
type Config struct {
	// Timeouts
	HTTPTimeout         time.Duration
	NavigationTimeout   time.Duration
	ActionTimeout       time.Duration
	LoginTimeout        time.Duration
	TestTimeout         time.Duration
	CleanupTimeout      time.Duration
	CleanupPollInterval time.Duration

	// Cleanup
	MaxConcurrentDeletes int
}

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		HTTPTimeout:          DefaultHTTPTimeout,
		NavigationTimeout:    DefaultNavigationTimeout,
		ActionTimeout:        DefaultActionTimeout,
		LoginTimeout:         DefaultLoginTimeout,
		TestTimeout:          DefaultTestTimeout,
		CleanupTimeout:       DefaultCleanupTimeout,
		CleanupPollInterval:  DefaultCleanupPollInterval,
		MaxConcurrentDeletes: DefaultMaxConcurrentDeletes,
	}
}

// FromEnv returns a Config with values from environment variables, falling back to defaults
func FromEnv() *Config {
	cfg := Default()

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvHTTPTimeout, &cfg.HTTPTimeout},
		{EnvNavigationTimeout, &cfg.NavigationTimeout},
		{EnvActionTimeout, &cfg.ActionTimeout},
		{EnvLoginTimeout, &cfg.LoginTimeout},
		{EnvTestTimeout, &cfg.TestTimeout},
		{EnvCleanupTimeout, &cfg.CleanupTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.env); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
				*d.dst = parsed
			}
		}
	}

	if v := os.Getenv(EnvMaxConcurrentDeletes); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentDeletes = n
		}
	}

	return cfg
}

// WithHTTPTimeout returns a copy with updated HTTP timeout
func (c *Config) WithHTTPTimeout(d time.Duration) *Config {
	cp := *c
	cp.HTTPTimeout = d
	return &cp
}

// WithNavigationTimeout returns a copy with updated navigation timeout
func (c *Config) WithNavigationTimeout(d time.Duration) *Config {
	cp := *c
	cp.NavigationTimeout = d
	return &cp
}

// WithActionTimeout returns a copy with updated action timeout
func (c *Config) WithActionTimeout(d time.Duration) *Config {
	cp := *c
	cp.ActionTimeout = d
	return &cp
}

// WithLoginTimeout returns a copy with updated login timeout
func (c *Config) WithLoginTimeout(d time.Duration) *Config {
	cp := *c
	cp.LoginTimeout = d
	return &cp
}

// WithCleanupTimeout returns a copy with updated cleanup timeout and poll interval
func (c *Config) WithCleanupTimeout(timeout, poll time.Duration) *Config {
	cp := *c
	cp.CleanupTimeout = timeout
	cp.CleanupPollInterval = poll
	return &cp
}

// WithMaxConcurrentDeletes returns a copy with updated cleanup parallelism
func (c *Config) WithMaxConcurrentDeletes(n int) *Config {
	cp := *c
	cp.MaxConcurrentDeletes = n
	return &cp
}

// Milliseconds converts d to the float milliseconds playwright expects
func Milliseconds(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
