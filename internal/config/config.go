package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the lumictl configuration
type Config struct {
	API             APIConfig         `yaml:"api"`
	Stream          StreamConfig      `yaml:"stream"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	Device          DeviceConfig      `yaml:"device"`
	Readings        ReadingsConfig    `yaml:"readings"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// APIConfig contains backend connection settings
type APIConfig struct {
	URL     string   `yaml:"url"`
	Env     string   `yaml:"env"`     // development | production
	Timeout Duration `yaml:"timeout"` // 0 = no timeout
}

// StreamConfig contains live sensor stream settings
type StreamConfig struct {
	Transport string `yaml:"transport"` // sse | websocket

	// Reconnect settings
	MinRetryBackoff Duration `yaml:"min_retry_backoff"` // Delay before the first reconnect (default: 5s)
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"` // Upper bound for the delay (default: 5s)
	RetryMultiplier float64  `yaml:"retry_multiplier"`  // Delay growth per attempt (default: 1.0)
	MaxReconnects   int      `yaml:"max_reconnects"`    // Max reconnect attempts, 0 = infinite (default: 0)
}

// DatabaseConfig contains local preference database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 1, keeps receipt order)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// HealthcheckConfig contains health/metrics server settings used by `watch`
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DeviceConfig contains settings for talking to devices directly
type DeviceConfig struct {
	ConnectTimeout   Duration `yaml:"connect_timeout"`
	CommandTimeout   Duration `yaml:"command_timeout"`
	RateLimitRPS     float64  `yaml:"rate_limit_rps"`
	BreakerFailures  int      `yaml:"breaker_failures"`  // Consecutive failures before an endpoint is blocked
	BreakerOpen      Duration `yaml:"breaker_open"`      // How long an endpoint stays blocked
	HistoryRetention Duration `yaml:"history_retention"` // How long sent commands are kept
}

// ReadingsConfig bounds the in-memory sensor series
type ReadingsConfig struct {
	Capacity int `yaml:"capacity"`
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
// A missing file is not an error: defaults and environment apply.
func Load(path string) (*Config, error) {
	// .env never overrides variables that are already set
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyEnv lets the build/deploy environment override the API location
func applyEnv(cfg *Config) {
	if v := os.Getenv("LUMISYNC_API_URL"); v != "" {
		cfg.API.URL = v
	} else if v := os.Getenv("VITE_API_URL"); v != "" && cfg.API.URL == "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("LUMISYNC_ENV"); v != "" {
		cfg.API.Env = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// API defaults
	if cfg.API.URL == "" {
		cfg.API.URL = "http://localhost:3000"
	}
	cfg.API.URL = strings.TrimRight(cfg.API.URL, "/")
	if cfg.API.Env == "" {
		cfg.API.Env = "development"
	}

	// Stream defaults reproduce the dashboard's fixed 5s reconnect loop
	if cfg.Stream.Transport == "" {
		cfg.Stream.Transport = "sse"
	}
	if cfg.Stream.MinRetryBackoff == 0 {
		cfg.Stream.MinRetryBackoff = Duration(5 * time.Second)
	}
	if cfg.Stream.MaxRetryBackoff == 0 {
		cfg.Stream.MaxRetryBackoff = cfg.Stream.MinRetryBackoff
	}
	if cfg.Stream.RetryMultiplier == 0 {
		cfg.Stream.RetryMultiplier = 1.0
	}
	// MaxReconnects defaults to 0 (infinite), no need to set

	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDatabasePath()
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "127.0.0.1"
	}

	// Device defaults
	if cfg.Device.ConnectTimeout == 0 {
		cfg.Device.ConnectTimeout = Duration(5 * time.Second)
	}
	if cfg.Device.CommandTimeout == 0 {
		cfg.Device.CommandTimeout = Duration(10 * time.Second)
	}
	if cfg.Device.RateLimitRPS == 0 {
		cfg.Device.RateLimitRPS = 5.0
	}
	if cfg.Device.BreakerFailures == 0 {
		cfg.Device.BreakerFailures = 3
	}
	if cfg.Device.BreakerOpen == 0 {
		cfg.Device.BreakerOpen = Duration(30 * time.Second)
	}
	if cfg.Device.HistoryRetention == 0 {
		cfg.Device.HistoryRetention = Duration(30 * 24 * time.Hour)
	}

	if cfg.Readings.Capacity == 0 {
		cfg.Readings.Capacity = 100
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./lumictl.sqlite"
	}
	return filepath.Join(dir, "lumictl", "lumictl.sqlite")
}

// GetShutdownTimeout returns the shutdown timeout as time.Duration
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// IsProduction reports whether the API environment is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.API.Env, "production")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
