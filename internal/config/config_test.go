package config

import (
	"log/slog"
	"os"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/pastlog.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/pastlog.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want %d", cfg.RetentionDays, 30)
	}
	if cfg.CachePrefix != "pastlog:" {
		t.Errorf("CachePrefix = %q, want %q", cfg.CachePrefix, "pastlog:")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "PASTLOG_DB_PATH", "/custom/path.db")
	setEnv(t, "PASTLOG_SERVER_HOST", "0.0.0.0")
	setEnv(t, "PASTLOG_SERVER_PORT", "3000")
	setEnv(t, "PASTLOG_ENV", "production")
	setEnv(t, "PASTLOG_LOG_LEVEL", "debug")
	setEnv(t, "PASTLOG_REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "PASTLOG_RETENTION_DAYS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false, want true")
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want %d", cfg.RetentionDays, 7)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	os.Clearenv()
	setEnv(t, "PASTLOG_SERVER_PORT", "99999")

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil, want port validation error")
	}
}

func TestLoad_NegativeRetention(t *testing.T) {
	os.Clearenv()
	setEnv(t, "PASTLOG_RETENTION_DAYS", "-1")

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil, want retention validation error")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"mixed case", "DEBUG", slog.LevelDebug},
		{"unknown falls back to info", "verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventLogLevel_Fallback(t *testing.T) {
	cfg := Config{EventLogMinLevel: "bogus"}
	if got := cfg.EventLogLevel(); got != slog.LevelWarn {
		t.Errorf("EventLogLevel() = %v, want %v", got, slog.LevelWarn)
	}
}
