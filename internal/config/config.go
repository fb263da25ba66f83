package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MountConfig binds a path prefix to one or more backend servers.
// Requests under Prefix reach the backends with the prefix stripped.
type MountConfig struct {
	Prefix   string   `yaml:"prefix"`
	Name     string   `yaml:"name,omitempty"`
	Backend  string   `yaml:"backend,omitempty"`  // single backend
	Backends []string `yaml:"backends,omitempty"` // multiple backends for load balancing
	Strategy string   `yaml:"strategy,omitempty"` // "round-robin" or "random"
	Auth     bool     `yaml:"auth,omitempty"`     // require an API key or JWT
}

// GetBackends returns the list of backend URLs for this mount.
// Handles both single-backend and multi-backend configs.
func (m MountConfig) GetBackends() []string {
	if len(m.Backends) > 0 {
		return m.Backends
	}
	if m.Backend != "" {
		return []string{m.Backend}
	}
	return nil
}

// DisplayName returns Name, or the prefix when no name is configured.
func (m MountConfig) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Prefix
}

// ServerConfig holds the gateway server settings.
type ServerConfig struct {
	Port            int `yaml:"port"`
	ShutdownTimeout int `yaml:"shutdown_timeout"` // seconds
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	MaxTokens  float64 `yaml:"max_tokens"`
	RefillRate float64 `yaml:"refill_rate"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	APIKeys   []string `yaml:"api_keys"`
	JWTSecret string   `yaml:"jwt_secret"`
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Threshold int `yaml:"threshold"`
	Timeout   int `yaml:"timeout"` // seconds
}

// HealthCheckConfig holds health check settings.
type HealthCheckConfig struct {
	Interval int `yaml:"interval"` // seconds between checks
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Config is the top-level configuration for the gateway.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Mounts         []MountConfig        `yaml:"mounts"`
	RateLimit      RateLimitConfig      `yaml:"ratelimit"`
	Auth           AuthConfig           `yaml:"auth"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitbreaker"`
	HealthCheck    HealthCheckConfig    `yaml:"healthcheck"`
	Telemetry      TelemetryConfig      `yaml:"telemetry,omitempty"`
	Log            LogConfig            `yaml:"log,omitempty"`
}

// LoadConfig reads a YAML config file, applies defaults and validates it.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30
	}
	if c.RateLimit.MaxTokens == 0 {
		c.RateLimit.MaxTokens = 10
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 1
	}
	if c.CircuitBreaker.Threshold == 0 {
		c.CircuitBreaker.Threshold = 5
	}
	if c.CircuitBreaker.Timeout == 0 {
		c.CircuitBreaker.Timeout = 30
	}
	if c.HealthCheck.Interval == 0 {
		c.HealthCheck.Interval = 10
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "mountgate"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the settings that cannot be defaulted. Mount prefixes are
// checked when the mounts are built.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Mounts) == 0 {
		errs = append(errs, errors.New("at least one mount is required"))
	}
	for i, m := range c.Mounts {
		if len(m.GetBackends()) == 0 {
			errs = append(errs, fmt.Errorf("mounts[%d] (%s): no backends", i, m.Prefix))
		}
		switch m.Strategy {
		case "", "round-robin", "random":
		default:
			errs = append(errs, fmt.Errorf("mounts[%d] (%s): unknown strategy %q", i, m.Prefix, m.Strategy))
		}
		if m.Auth && len(c.Auth.APIKeys) == 0 && c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("mounts[%d] (%s): auth required but no api_keys or jwt_secret configured", i, m.Prefix))
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// CircuitBreakerTimeout returns the configured open-state timeout.
func (c *Config) CircuitBreakerTimeout() time.Duration {
	return time.Duration(c.CircuitBreaker.Timeout) * time.Second
}

// HealthCheckInterval returns the configured health check interval.
func (c *Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheck.Interval) * time.Second
}

// ShutdownTimeout returns how long to wait for in-flight requests on shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

// AllBackends returns every backend URL across all mounts, keyed by prefix.
func (c *Config) AllBackends() map[string][]string {
	out := make(map[string][]string, len(c.Mounts))
	for _, m := range c.Mounts {
		out[m.Prefix] = append(out[m.Prefix], m.GetBackends()...)
	}
	return out
}
