package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultServiceName       = "eShopCo Latency Metrics"
	DefaultAllowOrigin       = "*"
	DefaultTelemetryPath     = "data/telemetry.json"
	DefaultThresholdMs       = 180.0
	DefaultStreamInterval    = 5 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultLogFileMaxSizeMB  = 50
	DefaultLogFileMaxBackups = 3
)

// Config holds the server configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket feed listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// ServiceName is reported by the root status endpoint.
	ServiceName string `yaml:"service_name"`

	CORS      CORSConfig      `yaml:"cors"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Stream    StreamConfig    `yaml:"stream"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CORSConfig controls the cross-origin headers added to every response.
type CORSConfig struct {
	// AllowOrigin is sent as Access-Control-Allow-Origin. Default "*".
	AllowOrigin string `yaml:"allow_origin"`
}

// TelemetryConfig locates the telemetry dataset loaded at startup.
type TelemetryConfig struct {
	// Path is the JSON or YAML file holding the telemetry records.
	// An empty path starts the server with an empty dataset.
	Path string `yaml:"path"`

	// Required turns a missing file at Path into a startup error instead of
	// an empty dataset.
	Required bool `yaml:"required"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	// DefaultThresholdMs is the breach threshold used by /metrics when the
	// request does not carry threshold_ms.
	DefaultThresholdMs float64 `yaml:"default_threshold_ms"`
}

// StreamConfig controls the WebSocket feed.
type StreamConfig struct {
	// Interval is how often every client's subscription is re-sent.
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is json or console.
	Format string `yaml:"format"`

	// File, when set, additionally writes logs to a size-rotated file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    DefaultHTTPPort,
			ServiceName: DefaultServiceName,
			CORS: CORSConfig{
				AllowOrigin: DefaultAllowOrigin,
			},
			Telemetry: TelemetryConfig{
				Path: DefaultTelemetryPath,
			},
			Metrics: MetricsConfig{
				DefaultThresholdMs: DefaultThresholdMs,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
			Logging: LoggingConfig{
				Level:      DefaultLogLevel,
				Format:     DefaultLogFormat,
				MaxSizeMB:  DefaultLogFileMaxSizeMB,
				MaxBackups: DefaultLogFileMaxBackups,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.CORS.AllowOrigin == "" {
		return fmt.Errorf("server.cors.allow_origin must not be empty")
	}
	if s.Telemetry.Required && s.Telemetry.Path == "" {
		return fmt.Errorf("server.telemetry.required is set but server.telemetry.path is empty")
	}
	if s.Metrics.DefaultThresholdMs < 0 {
		return fmt.Errorf("server.metrics.default_threshold_ms must not be negative")
	}
	if s.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	switch s.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("server.logging.level %q unknown: want debug|info|warn|error", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("server.logging.format %q unknown: want json|console", s.Logging.Format)
	}
	if s.Logging.MaxSizeMB < 0 || s.Logging.MaxBackups < 0 {
		return fmt.Errorf("server.logging rotation limits must not be negative")
	}
	return nil
}
