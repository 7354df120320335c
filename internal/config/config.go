package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration. Every field can be set from the
// environment under its key name, or from the YAML file named by CONFIG_FILE.
type Config struct {
	Addr               string        `mapstructure:"ADDR"`
	DBPath             string        `mapstructure:"DB_PATH"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	Timezone           string        `mapstructure:"TIMEZONE"`
	RolloverInterval   time.Duration `mapstructure:"ROLLOVER_INTERVAL"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	OTelExporter       string        `mapstructure:"OTEL_EXPORTER"`
	LegacyImport       bool          `mapstructure:"LEGACY_IMPORT"`

	location *time.Location
}

var defaults = map[string]any{
	"ADDR":                 ":8080",
	"DB_PATH":              "data/daily-tasks.db",
	"LOG_LEVEL":            "info",
	"TIMEZONE":             "Local",
	"ROLLOVER_INTERVAL":    "60s",
	"RATE_LIMIT_RPS":       0,
	"RATE_LIMIT_BURST":     10,
	"CORS_ALLOWED_ORIGINS": []string{"*"},
	"OTEL_EXPORTER":        "none",
	"LEGACY_IMPORT":        true,
}

// Load reads defaults, then the optional CONFIG_FILE, then the environment.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Comma separated lists arrive from the environment as one string.
	cfg.CORSAllowedOrigins = splitList(v.GetStringSlice("CORS_ALLOWED_ORIGINS"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	c.location = loc

	if c.RolloverInterval <= 0 {
		errs = append(errs, errors.New("ROLLOVER_INTERVAL must be positive"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must not be negative"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	switch c.OTelExporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("OTEL_EXPORTER: unknown exporter %q", c.OTelExporter))
	}
	return errors.Join(errs...)
}

// Location is the time zone calendar dates are computed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
