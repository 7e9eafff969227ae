package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearRuntimeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearRuntimeEnv(t)

	cfg, err := Load(DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.Settings != DefaultSettings() {
		t.Fatalf("expected settings to be attached, got %+v", cfg.Settings)
	}
}

func TestLoadKeepsProvidedSettings(t *testing.T) {
	clearRuntimeEnv(t)
	settings := Settings{ModelPath: "/opt", ModelDetName: "a", ModelPoseName: "b"}

	cfg, err := Load(settings, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Settings != settings {
		t.Fatalf("expected %+v, got %+v", settings, cfg.Settings)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearRuntimeEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("RATE_LIMIT_RPS", "3.5")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.RateLimitRPS != 3.5 {
		t.Fatalf("expected rps 3.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("expected invalid burst to be ignored, got %d", cfg.RateLimitBurst)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug level, got %s", cfg.LogLevel)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearRuntimeEnv(t)
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: \"6000\"\nwrite_timeout: 2s\nenable_request_logging: false\nrate_limit:\n  rps: 0\n  burst: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	port := "5000"
	cfg, err := Load(DefaultSettings(), &CLIOverrides{ConfigFile: path, Port: &port})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "5000" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.WriteTimeout != 2*time.Second {
		t.Fatalf("expected YAML write timeout, got %s", cfg.WriteTimeout)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected request logging disabled by YAML")
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 4 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadYAMLWithoutLoggingKeyKeepsDefault(t *testing.T) {
	clearRuntimeEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"6000\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(DefaultSettings(), &CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.EnableRequestLogging {
		t.Fatalf("expected request logging to stay enabled")
	}
	if cfg.RateLimitRPS != defaultRateLimitRPS {
		t.Fatalf("expected default rps, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadErrors(t *testing.T) {
	clearRuntimeEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(DefaultSettings(), &CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
		if err == nil {
			t.Fatalf("expected error for missing config file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("port: [unterminated\n"), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(DefaultSettings(), &CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected parse error")
		}
	})

	t.Run("invalid yaml duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("idle_timeout: forever\n"), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(DefaultSettings(), &CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected duration error")
		}
	})

	t.Run("negative yaml burst", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("rate_limit:\n  burst: -1\n"), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(DefaultSettings(), &CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected validation error")
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		level := "chatty"
		if _, err := Load(DefaultSettings(), &CLIOverrides{LogLevel: &level}); err == nil {
			t.Fatalf("expected log level error")
		}
	})
}
