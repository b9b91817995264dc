// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/corebridge/lib/version"
	"github.com/bureau-foundation/corebridge/lib/wire"
	"github.com/bureau-foundation/corebridge/transport"
)

// EnvVar names the environment variable Load reads the config path from.
const EnvVar = "COREBRIDGE_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the corebridge daemon configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	Engine  EngineConfig  `yaml:"engine"`
	Control ControlConfig `yaml:"control"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Zero values leave the base value in place.
type ConfigOverrides struct {
	Engine  *EngineConfig  `yaml:"engine,omitempty"`
	Control *ControlConfig `yaml:"control,omitempty"`
	HTTP    *HTTPConfig    `yaml:"http,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// EngineConfig describes how the daemon reaches the core engine.
type EngineConfig struct {
	// Socket is the Unix socket the engine listens on.
	Socket string `yaml:"socket"`

	// DialAttempts bounds connection attempts. Zero retries until
	// the daemon is stopped.
	DialAttempts int `yaml:"dial_attempts"`

	// MaxRetryInterval caps the backoff between dial attempts.
	MaxRetryInterval time.Duration `yaml:"max_retry_interval"`

	// Compression is the frame compression for outbound frames:
	// "none", "lz4", or "zstd".
	Compression string `yaml:"compression"`

	// MinVersion is the oldest engine the daemon accepts. Empty
	// skips the check.
	MinVersion string `yaml:"min_version"`

	// StaleCallThreshold is how long a call may stay unanswered
	// before the watchdog reports it. Zero disables the watchdog.
	StaleCallThreshold time.Duration `yaml:"stale_call_threshold"`
}

// ControlConfig configures the local control socket.
type ControlConfig struct {
	Socket string `yaml:"socket"`
}

// MaxHTTPResponseBytes is the largest http.max_response_bytes that
// still fits a response frame. The remaining megabyte carries status,
// headers, and envelope fields.
const MaxHTTPResponseBytes = wire.MaxFrameSize - 1<<20

// HTTPConfig configures the host HTTP service the engine calls into.
type HTTPConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	MaxResponseBytes int64         `yaml:"max_response_bytes"`
	RatePerHost      float64       `yaml:"rate_per_host"`
	Burst            int           `yaml:"burst"`
	FollowRedirects  *bool         `yaml:"follow_redirects"`
	UserAgent        string        `yaml:"user_agent"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the TCP address for /metrics. Empty disables it.
	Listen string `yaml:"listen"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File sends logs to a rotated file instead of stderr. Empty
	// logs to stderr.
	File string `yaml:"file"`

	// Rotation limits for File. Zero values take the defaults from
	// Default.
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	followRedirects := true
	return &Config{
		Environment: Development,
		Engine: EngineConfig{
			Socket:             "${XDG_RUNTIME_DIR:-/tmp}/corebridge/engine.sock",
			MaxRetryInterval:   5 * time.Second,
			Compression:        "none",
			StaleCallThreshold: time.Minute,
		},
		Control: ControlConfig{
			Socket: "${XDG_RUNTIME_DIR:-/tmp}/corebridge/control.sock",
		},
		HTTP: HTTPConfig{
			Timeout:          30 * time.Second,
			MaxResponseBytes: 10 * 1024 * 1024,
			FollowRedirects:  &followRedirects,
			UserAgent:        "corebridge/" + version.Short(),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Load loads configuration from the COREBRIDGE_CONFIG environment
// variable. There is no discovery: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your corebridge.yaml, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies the
// overrides for the selected environment, and expands ${VAR} patterns
// in socket paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production defaults: bounded dialing and quieter logs.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Engine: &EngineConfig{DialAttempts: 30},
				Log:    &LogConfig{Level: "warn"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if engine := overrides.Engine; engine != nil {
		if engine.Socket != "" {
			c.Engine.Socket = engine.Socket
		}
		if engine.DialAttempts != 0 {
			c.Engine.DialAttempts = engine.DialAttempts
		}
		if engine.MaxRetryInterval != 0 {
			c.Engine.MaxRetryInterval = engine.MaxRetryInterval
		}
		if engine.Compression != "" {
			c.Engine.Compression = engine.Compression
		}
		if engine.MinVersion != "" {
			c.Engine.MinVersion = engine.MinVersion
		}
		if engine.StaleCallThreshold != 0 {
			c.Engine.StaleCallThreshold = engine.StaleCallThreshold
		}
	}

	if overrides.Control != nil && overrides.Control.Socket != "" {
		c.Control.Socket = overrides.Control.Socket
	}

	if httpOverrides := overrides.HTTP; httpOverrides != nil {
		if httpOverrides.Timeout != 0 {
			c.HTTP.Timeout = httpOverrides.Timeout
		}
		if httpOverrides.MaxResponseBytes != 0 {
			c.HTTP.MaxResponseBytes = httpOverrides.MaxResponseBytes
		}
		if httpOverrides.RatePerHost != 0 {
			c.HTTP.RatePerHost = httpOverrides.RatePerHost
		}
		if httpOverrides.Burst != 0 {
			c.HTTP.Burst = httpOverrides.Burst
		}
		// A pointer so an override can turn redirects off.
		if httpOverrides.FollowRedirects != nil {
			c.HTTP.FollowRedirects = httpOverrides.FollowRedirects
		}
		if httpOverrides.UserAgent != "" {
			c.HTTP.UserAgent = httpOverrides.UserAgent
		}
	}

	if overrides.Metrics != nil && overrides.Metrics.Listen != "" {
		c.Metrics.Listen = overrides.Metrics.Listen
	}

	if logOverrides := overrides.Log; logOverrides != nil {
		if logOverrides.Level != "" {
			c.Log.Level = logOverrides.Level
		}
		if logOverrides.File != "" {
			c.Log.File = logOverrides.File
		}
		if logOverrides.MaxSizeMB != 0 {
			c.Log.MaxSizeMB = logOverrides.MaxSizeMB
		}
		if logOverrides.MaxBackups != 0 {
			c.Log.MaxBackups = logOverrides.MaxBackups
		}
		if logOverrides.MaxAgeDays != 0 {
			c.Log.MaxAgeDays = logOverrides.MaxAgeDays
		}
		if logOverrides.Compress {
			c.Log.Compress = true
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Engine.Socket = expandVars(c.Engine.Socket, vars)
	c.Control.Socket = expandVars(c.Control.Socket, vars)
	c.Log.File = expandVars(c.Log.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Engine.Socket == "" {
		errs = append(errs, errors.New("engine.socket is required"))
	}
	if c.Engine.DialAttempts < 0 {
		errs = append(errs, errors.New("engine.dial_attempts must not be negative"))
	}
	if _, err := transport.ParseCompressionTag(c.Engine.Compression); err != nil {
		errs = append(errs, fmt.Errorf("engine.compression: %w", err))
	}
	if c.Engine.MinVersion != "" {
		if _, err := version.ParseSemver(c.Engine.MinVersion); err != nil {
			errs = append(errs, fmt.Errorf("engine.min_version: %w", err))
		}
	}
	if c.Engine.StaleCallThreshold < 0 {
		errs = append(errs, errors.New("engine.stale_call_threshold must not be negative"))
	}

	if c.Control.Socket == "" {
		errs = append(errs, errors.New("control.socket is required"))
	}

	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http.timeout must not be negative"))
	}
	if c.HTTP.MaxResponseBytes < 0 {
		errs = append(errs, errors.New("http.max_response_bytes must not be negative"))
	}
	if c.HTTP.MaxResponseBytes > MaxHTTPResponseBytes {
		errs = append(errs, fmt.Errorf("http.max_response_bytes must not exceed %d", MaxHTTPResponseBytes))
	}
	if c.HTTP.RatePerHost < 0 {
		errs = append(errs, errors.New("http.rate_per_host must not be negative"))
	}
	if c.HTTP.RatePerHost > 0 && c.HTTP.Burst < 1 {
		errs = append(errs, errors.New("http.burst must be at least 1 when rate_per_host is set"))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB < 1 {
			errs = append(errs, errors.New("log.max_size_mb must be at least 1 when log.file is set"))
		}
		if c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
			errs = append(errs, errors.New("log.max_backups and log.max_age_days must not be negative"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// FollowRedirects reports the effective redirect policy.
func (c *Config) FollowRedirects() bool {
	return c.HTTP.FollowRedirects == nil || *c.HTTP.FollowRedirects
}

// EnsureSocketDirs creates the parent directories of the configured
// sockets with owner-only permissions.
func (c *Config) EnsureSocketDirs() error {
	for _, socket := range []string{c.Engine.Socket, c.Control.Socket} {
		if socket == "" {
			continue
		}
		directory := filepath.Dir(socket)
		if err := os.MkdirAll(directory, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}

// ParseLevel maps a log level name to its slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q (want debug, info, warn, or error)", name)
}
