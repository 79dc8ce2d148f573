// Package config handles TOML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultDownstreamURL is used when neither the config file nor the
// environment names a downstream base URL.
const DefaultDownstreamURL = "http://service-b:8000"

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/service-a/config.toml",
	"configs/config.toml",
}

// reservedRoutes cannot be shadowed by the metrics endpoint.
var reservedRoutes = []string{"/call-b", "/healthz", "/status"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config      string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host        string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port        int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	ServiceBURL string `kong:"name='service-b-url',help='Base URL of service-b (overrides config).',env='SERVICE_B_URL'"`
	LogLevel    string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Downstream DownstreamConfig `toml:"downstream"`
	Log        LogConfig        `toml:"log"`
	Metrics    MetricsConfig    `toml:"metrics"`

	filePath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means default (8000)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// DownstreamConfig describes how service-b is reached.
type DownstreamConfig struct {
	BaseURL          string `toml:"base_url"`
	TimeoutSeconds   int    `toml:"timeout_seconds"` // 0 disables the client timeout
	IdleConnections  int    `toml:"idle_connections"`
	MaxResponseBytes int64  `toml:"max_response_bytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load resolves the configuration once at startup: the TOML file (explicit
// path, or the first of the search paths that exists), then CLI and
// environment overrides, then validation and defaults.
//
// A missing explicit file is an error. When no file is given and none is
// found, the built-in defaults are used.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// FilePath returns the config file that was loaded, or "" when running on defaults.
func (c *Config) FilePath() string {
	return c.filePath
}

func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.ServiceBURL != "" {
		c.Downstream.BaseURL = cli.ServiceBURL
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

// validate checks bounds and enumerations. The downstream base URL is
// deliberately left alone: a bad value surfaces as a request error.
func (c *Config) validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 0-65535; got %d", c.Server.Port))
	}
	if c.Server.BodyMaxBytes < 0 {
		errs = append(errs, fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes))
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond))
	}
	if c.Downstream.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("downstream.timeout_seconds must be non-negative; got %d", c.Downstream.TimeoutSeconds))
	}
	if c.Downstream.IdleConnections < 0 {
		errs = append(errs, fmt.Errorf("downstream.idle_connections must be non-negative; got %d", c.Downstream.IdleConnections))
	}
	if c.Downstream.MaxResponseBytes < 0 {
		errs = append(errs, fmt.Errorf("downstream.max_response_bytes must be non-negative; got %d", c.Downstream.MaxResponseBytes))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format))
	}

	if c.Metrics.Enabled && c.Metrics.Path != "" {
		if err := validateMetricsPath(c.Metrics.Path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateMetricsPath(p string) error {
	if p[0] != '/' {
		return fmt.Errorf("metrics.path must start with '/'; got %q", p)
	}
	for _, reserved := range reservedRoutes {
		if p == reserved || strings.HasPrefix(p, reserved+"/") {
			return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
		}
	}
	return nil
}

// setDefaults fills zero-valued fields. TOML cannot distinguish an explicit 0
// from an omitted key, so zero means "unset" for every numeric field except
// downstream.timeout_seconds, where 0 keeps the call unbounded.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1 << 20
	}
	if c.Downstream.BaseURL == "" {
		c.Downstream.BaseURL = DefaultDownstreamURL
	}
	if c.Downstream.IdleConnections == 0 {
		c.Downstream.IdleConnections = 100
	}
	if c.Downstream.MaxResponseBytes == 0 {
		c.Downstream.MaxResponseBytes = 10 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogWarnings reports settings that load fine but are likely mistakes: a
// config file readable by group/others, and a downstream base URL that will
// not produce a usable request.
func (c *Config) LogWarnings(logger *slog.Logger) {
	if c.filePath != "" {
		if info, err := os.Stat(c.filePath); err == nil {
			if perm := info.Mode().Perm(); perm&0o077 != 0 {
				logger.Warn("config file is readable by group/others; consider chmod 600",
					"path", c.filePath,
					"mode", fmt.Sprintf("%04o", perm),
				)
			}
		}
	}

	u, err := url.Parse(c.Downstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		logger.Warn("downstream.base_url is not an absolute URL; /call-b will fail",
			"base_url", c.Downstream.BaseURL,
		)
	}
}
