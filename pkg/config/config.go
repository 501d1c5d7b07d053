package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/soundprediction/labelkit/pkg/native"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LABELKIT"

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Fetch configures the image fetcher used by the exporters
	Fetch FetchConfig `mapstructure:"fetch"`

	// CircuitBreaker guards the image fetcher
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Export configures COCO and Pascal VOC output
	Export ExportConfig `mapstructure:"export"`

	// Vectorize configures mask vectorization
	Vectorize VectorizeConfig `mapstructure:"vectorize"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// FetchConfig holds image fetch configuration
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	RetryWait time.Duration `mapstructure:"retry_wait"`
	Workers   int           `mapstructure:"workers"`
	UserAgent string        `mapstructure:"user_agent"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// ExportConfig holds exporter configuration
type ExportConfig struct {
	LabelFormat string `mapstructure:"label_format"` // WKT, XY or OBJECTS
	// COCOURL is written to the COCO info block.
	COCOURL string `mapstructure:"coco_url"`
	// VOCImageFormat re-encodes VOC images (jpg, png); empty keeps the source bytes.
	VOCImageFormat string `mapstructure:"voc_image_format"`
}

// VectorizeConfig holds vectorizer defaults
type VectorizeConfig struct {
	MaxPoints int     `mapstructure:"max_points"` // 0 disables the point budget
	Epsilon   float64 `mapstructure:"epsilon"`    // 0 means unset
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"` // empty disables the parquet sink
	// DbURL is a MySQL-compatible DSN; empty disables the SQL sink.
	DbURL    string `mapstructure:"db_url"`
	MinLevel string `mapstructure:"min_level"`
}

// Load loads configuration from the viper registry, defaults and environment
// variables prefixed with LABELKIT_ (e.g. LABELKIT_FETCH_WORKERS).
func Load() (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			Retries:   2,
			RetryWait: 500 * time.Millisecond,
			Workers:   8,
			UserAgent: "labelkit",
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         60,
			Timeout:          30,
			ReadyToTripRatio: 0.6,
		},
		Export:    ExportConfig{LabelFormat: string(native.FormatWKT)},
		Vectorize: VectorizeConfig{MaxPoints: 50},
		Server:    ServerConfig{Host: "localhost", Port: 8080, Mode: "debug"},
		Telemetry: TelemetryConfig{MinLevel: "warn"},
	}
}

// setDefaults registers Default() with viper.
func setDefaults() {
	d := Default()

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)

	viper.SetDefault("fetch.timeout", d.Fetch.Timeout)
	viper.SetDefault("fetch.retries", d.Fetch.Retries)
	viper.SetDefault("fetch.retry_wait", d.Fetch.RetryWait)
	viper.SetDefault("fetch.workers", d.Fetch.Workers)
	viper.SetDefault("fetch.user_agent", d.Fetch.UserAgent)

	viper.SetDefault("circuit_breaker.enabled", d.CircuitBreaker.Enabled)
	viper.SetDefault("circuit_breaker.max_requests", d.CircuitBreaker.MaxRequests)
	viper.SetDefault("circuit_breaker.interval", d.CircuitBreaker.Interval)
	viper.SetDefault("circuit_breaker.timeout", d.CircuitBreaker.Timeout)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", d.CircuitBreaker.ReadyToTripRatio)

	viper.SetDefault("export.label_format", d.Export.LabelFormat)
	viper.SetDefault("export.coco_url", "")
	viper.SetDefault("export.voc_image_format", "")

	viper.SetDefault("vectorize.max_points", d.Vectorize.MaxPoints)
	viper.SetDefault("vectorize.epsilon", d.Vectorize.Epsilon)

	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.mode", d.Server.Mode)

	viper.SetDefault("telemetry.parquet_path", "")
	viper.SetDefault("telemetry.db_url", "")
	viper.SetDefault("telemetry.min_level", d.Telemetry.MinLevel)
}

// overrideWithEnv applies unprefixed variables honoured for compatibility
// with container platforms.
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"_SERVER_PORT") == "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}
	if path := config.Telemetry.ParquetPath; strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			config.Telemetry.ParquetPath = filepath.Join(home, path[2:])
		}
	}
}

// Validate rejects settings no component can honour.
func (c *Config) Validate() error {
	if _, err := native.ParseFormat(c.Export.LabelFormat); err != nil {
		return fmt.Errorf("export.label_format: %w", err)
	}
	if c.Fetch.Workers < 0 {
		return fmt.Errorf("fetch.workers must be non-negative, got %d", c.Fetch.Workers)
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must be non-negative, got %d", c.Fetch.Retries)
	}
	if c.Vectorize.MaxPoints != 0 && c.Vectorize.MaxPoints < 3 {
		return fmt.Errorf("vectorize.max_points must be at least 3, got %d", c.Vectorize.MaxPoints)
	}
	if c.Vectorize.Epsilon < 0 {
		return fmt.Errorf("vectorize.epsilon must be non-negative, got %v", c.Vectorize.Epsilon)
	}
	for field, level := range map[string]string{"log.level": c.Log.Level, "telemetry.min_level": c.Telemetry.MinLevel} {
		if _, err := ParseLevel(level); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Export.VOCImageFormat) {
	case "", "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("export.voc_image_format must be jpg or png, got %q", c.Export.VOCImageFormat)
	}
	return nil
}
