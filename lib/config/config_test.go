// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/corebridge/lib/wire"
)

// writeConfig writes content to a corebridge.yaml in a temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "corebridge.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("expected http.timeout=30s, got %s", cfg.HTTP.Timeout)
	}
	if !cfg.FollowRedirects() {
		t.Error("expected follow_redirects=true by default")
	}
	if cfg.Engine.Compression != "none" {
		t.Errorf("expected compression=none, got %s", cfg.Engine.Compression)
	}
	if !strings.HasPrefix(cfg.HTTP.UserAgent, "corebridge/") {
		t.Errorf("expected corebridge user agent, got %q", cfg.HTTP.UserAgent)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when COREBRIDGE_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "COREBRIDGE_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	configPath := writeConfig(t, `
engine:
  socket: /test/engine.sock
`)
	t.Setenv(EnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Engine.Socket != "/test/engine.sock" {
		t.Errorf("expected engine.socket=/test/engine.sock, got %s", cfg.Engine.Socket)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
environment: development

engine:
  socket: /custom/engine.sock
  dial_attempts: 5
  max_retry_interval: 2s
  compression: zstd
  min_version: 1.2.0
  stale_call_threshold: 90s

control:
  socket: /custom/control.sock

http:
  timeout: 10s
  max_response_bytes: 4096
  rate_per_host: 2.5
  burst: 4
  follow_redirects: false
  user_agent: explorer-client/1

metrics:
  listen: 127.0.0.1:9464

log:
  level: debug
  file: /var/log/corebridge/daemon.log
  max_size_mb: 20
  compress: true
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Engine.Socket != "/custom/engine.sock" {
		t.Errorf("engine.socket = %s", cfg.Engine.Socket)
	}
	if cfg.Engine.DialAttempts != 5 {
		t.Errorf("engine.dial_attempts = %d", cfg.Engine.DialAttempts)
	}
	if cfg.Engine.MaxRetryInterval != 2*time.Second {
		t.Errorf("engine.max_retry_interval = %s", cfg.Engine.MaxRetryInterval)
	}
	if cfg.Engine.Compression != "zstd" {
		t.Errorf("engine.compression = %s", cfg.Engine.Compression)
	}
	if cfg.Engine.StaleCallThreshold != 90*time.Second {
		t.Errorf("engine.stale_call_threshold = %s", cfg.Engine.StaleCallThreshold)
	}
	if cfg.Control.Socket != "/custom/control.sock" {
		t.Errorf("control.socket = %s", cfg.Control.Socket)
	}
	if cfg.HTTP.Timeout != 10*time.Second || cfg.HTTP.MaxResponseBytes != 4096 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.HTTP.RatePerHost != 2.5 || cfg.HTTP.Burst != 4 {
		t.Errorf("http rate = %v burst = %d", cfg.HTTP.RatePerHost, cfg.HTTP.Burst)
	}
	if cfg.FollowRedirects() {
		t.Error("expected follow_redirects=false")
	}
	if cfg.HTTP.UserAgent != "explorer-client/1" {
		t.Errorf("http.user_agent = %s", cfg.HTTP.UserAgent)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9464" {
		t.Errorf("metrics.listen = %s", cfg.Metrics.Listen)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %s", cfg.Log.Level)
	}
	if cfg.Log.File != "/var/log/corebridge/daemon.log" || cfg.Log.MaxSizeMB != 20 || !cfg.Log.Compress {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Log.MaxBackups != 5 {
		t.Errorf("log.max_backups = %d, want default 5", cfg.Log.MaxBackups)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile of a missing file succeeded")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
environment: production

engine:
  socket: /default/engine.sock

http:
  follow_redirects: true

production:
  engine:
    socket: /prod/engine.sock
    dial_attempts: 3
  http:
    follow_redirects: false
  log:
    level: error
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Engine.Socket != "/prod/engine.sock" {
		t.Errorf("expected engine.socket=/prod/engine.sock, got %s", cfg.Engine.Socket)
	}
	if cfg.Engine.DialAttempts != 3 {
		t.Errorf("expected dial_attempts=3, got %d", cfg.Engine.DialAttempts)
	}
	if cfg.FollowRedirects() {
		t.Error("expected follow_redirects=false from production override")
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected log.level=error, got %s", cfg.Log.Level)
	}
}

func TestProductionDefaults(t *testing.T) {
	configPath := writeConfig(t, "environment: production\n")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Engine.DialAttempts != 30 {
		t.Errorf("expected bounded dial attempts in production, got %d", cfg.Engine.DialAttempts)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log.level=warn in production, got %s", cfg.Log.Level)
	}
}

func TestDevelopmentOverridesIgnoredInProduction(t *testing.T) {
	configPath := writeConfig(t, `
environment: production
engine:
  socket: /base.sock
development:
  engine:
    socket: /dev.sock
`)
	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Engine.Socket != "/base.sock" {
		t.Errorf("development override applied in production: %s", cfg.Engine.Socket)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("COREBRIDGE_TEST_DIR", "/from/env")

	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{"${HOME}/engine.sock", map[string]string{"HOME": "/home/user"}, "/home/user/engine.sock"},
		{"${COREBRIDGE_TEST_DIR}/control.sock", nil, "/from/env/control.sock"},
		{"${UNSET_VAR:-/fallback}/x.sock", nil, "/fallback/x.sock"},
		{"${UNSET_VAR}/x.sock", nil, "/x.sock"},
		{"/plain/path.sock", nil, "/plain/path.sock"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandVars(tt.input, tt.vars); got != tt.expected {
				t.Errorf("expandVars(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadFileExpandsSocketPaths(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	configPath := writeConfig(t, "environment: development\n")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Engine.Socket != "/run/user/1000/corebridge/engine.sock" {
		t.Errorf("engine.socket = %s", cfg.Engine.Socket)
	}
	if cfg.Control.Socket != "/run/user/1000/corebridge/control.sock" {
		t.Errorf("control.socket = %s", cfg.Control.Socket)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"missing engine socket", func(c *Config) { c.Engine.Socket = "" }, "engine.socket is required"},
		{"negative dial attempts", func(c *Config) { c.Engine.DialAttempts = -1 }, "engine.dial_attempts"},
		{"unknown compression", func(c *Config) { c.Engine.Compression = "gzip" }, "engine.compression"},
		{"bad min version", func(c *Config) { c.Engine.MinVersion = "one.two" }, "engine.min_version"},
		{"missing control socket", func(c *Config) { c.Control.Socket = "" }, "control.socket is required"},
		{"negative timeout", func(c *Config) { c.HTTP.Timeout = -time.Second }, "http.timeout"},
		{"response cap over frame size", func(c *Config) { c.HTTP.MaxResponseBytes = wire.MaxFrameSize }, "http.max_response_bytes"},
		{"response cap at limit", func(c *Config) { c.HTTP.MaxResponseBytes = MaxHTTPResponseBytes }, ""},
		{"rate without burst", func(c *Config) { c.HTTP.RatePerHost = 1 }, "http.burst"},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log file without size", func(c *Config) { c.Log.File = "/tmp/x.log"; c.Log.MaxSizeMB = 0 }, "log.max_size_mb"},
		{"negative log backups", func(c *Config) { c.Log.File = "/tmp/x.log"; c.Log.MaxBackups = -1 }, "log.max_backups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Engine.Socket = ""
	cfg.Control.Socket = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"engine.socket", "control.socket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestEnsureSocketDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Engine.Socket = filepath.Join(root, "engine", "engine.sock")
	cfg.Control.Socket = filepath.Join(root, "control", "control.sock")

	if err := cfg.EnsureSocketDirs(); err != nil {
		t.Fatalf("EnsureSocketDirs: %v", err)
	}
	for _, directory := range []string{"engine", "control"} {
		info, err := os.Stat(filepath.Join(root, directory))
		if err != nil {
			t.Fatalf("Stat(%s): %v", directory, err)
		}
		if mode := info.Mode().Perm(); mode != 0o700 {
			t.Errorf("%s mode = %o, want 700", directory, mode)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(\"verbose\") succeeded")
	}
}
