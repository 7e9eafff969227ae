package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLogLevel       = "info"
)

// Config is what `modelcfg serve` runs with: the model settings it publishes
// and the HTTP runtime around them.
// Precedence for the runtime part: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Settings             Settings
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string
}

// serveFile mirrors the YAML file. Pointers distinguish an absent key from a
// zero value. Model settings have no place here.
type serveFile struct {
	Port                 *string `yaml:"port"`
	ShutdownGracePeriod  *string `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    *string `yaml:"read_header_timeout"`
	WriteTimeout         *string `yaml:"write_timeout"`
	IdleTimeout          *string `yaml:"idle_timeout"`
	EnableRequestLogging *bool   `yaml:"enable_request_logging"`
	LogLevel             *string `yaml:"log_level"`
	RateLimit            struct {
		RPS   *float64 `yaml:"rps"`
		Burst *int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// CLIOverrides holds command-line flag overrides. Nil fields were not given.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
}

type runtimeEnvBinding struct {
	envVar string
	apply  func(*Config, string)
}

var runtimeEnvBindings = []runtimeEnvBinding{
	{envVar: "PORT", apply: func(c *Config, v string) { c.Port = v }},
	{envVar: "RATE_LIMIT_RPS", apply: func(c *Config, v string) {
		if rps, err := strconv.ParseFloat(v, 64); err == nil && rps >= 0 {
			c.RateLimitRPS = rps
		}
	}},
	{envVar: "RATE_LIMIT_BURST", apply: func(c *Config, v string) {
		if burst, err := strconv.Atoi(v); err == nil && burst >= 0 {
			c.RateLimitBurst = burst
		}
	}},
	{envVar: "LOG_LEVEL", apply: func(c *Config, v string) { c.LogLevel = v }},
}

// Load builds the serve configuration around already loaded settings.
// Malformed environment values are skipped; a broken YAML file or an
// invalid final value is an error.
func Load(settings Settings, overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()
	cfg.Settings = settings

	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	if overrides.ConfigFile != "" {
		file, err := readServeFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := file.applyTo(&cfg); err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
	}

	for _, b := range runtimeEnvBindings {
		if raw := strings.TrimSpace(os.Getenv(b.envVar)); raw != "" {
			b.apply(&cfg, raw)
		}
	}

	overrides.applyTo(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Settings:             DefaultSettings(),
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             defaultLogLevel,
	}
}

func readServeFile(path string) (*serveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var file serveFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &file, nil
}

func (f *serveFile) applyTo(cfg *Config) error {
	setIfPresent(&cfg.Port, f.Port)
	setIfPresent(&cfg.EnableRequestLogging, f.EnableRequestLogging)
	setIfPresent(&cfg.LogLevel, f.LogLevel)

	durations := []struct {
		key string
		raw *string
		dst *time.Duration
	}{
		{"shutdown_grace_period", f.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", f.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", f.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", f.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	setIfPresent(&cfg.RateLimitRPS, f.RateLimit.RPS)
	setIfPresent(&cfg.RateLimitBurst, f.RateLimit.Burst)
	return nil
}

func (o *CLIOverrides) applyTo(cfg *Config) {
	if o.Port != nil && *o.Port != "" {
		cfg.Port = *o.Port
	}
	if o.RateLimitRPS != nil && *o.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *o.RateLimitRPS
	}
	if o.RateLimitBurst != nil && *o.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *o.RateLimitBurst
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		cfg.LogLevel = *o.LogLevel
	}
}

func (c Config) validate() error {
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit rps must be >= 0, got %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit burst must be >= 0, got %d", c.RateLimitBurst)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
