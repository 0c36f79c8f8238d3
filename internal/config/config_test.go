package config

import (
	"log/slog"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"
)

// allKeys — все переменные, читаемые Load.
var allKeys = []string{
	"DA_PORT", "DA_SERVICE_ID", "DA_LOG_LEVEL", "DA_LOG_FORMAT",
	"DA_MAX_DOCUMENT_SIZE", "DA_MAX_ARCHIVES", "DA_ACTIVITY_LOG_SIZE",
	"DA_COMPRESS_WORKERS", "DA_COMPRESS_TIMEOUT",
	"DA_SWEEP_INTERVAL", "DA_AUDIT_INTERVAL",
	"DA_BACKUP_DIR", "DA_WAL_DIR",
	"DA_DB_HOST", "DA_DB_PORT", "DA_DB_NAME", "DA_DB_USER", "DA_DB_PASSWORD", "DA_DB_SSL_MODE",
	"DA_JWKS_URL", "DA_JWT_LEEWAY", "DA_JWKS_REFRESH_INTERVAL",
	"DA_HTTP_CLIENT_TIMEOUT", "DA_JWKS_CLIENT_TIMEOUT",
	"DA_TLS_SKIP_VERIFY", "DA_CA_CERT_PATH",
	"DA_HTTP_READ_TIMEOUT", "DA_HTTP_WRITE_TIMEOUT", "DA_HTTP_IDLE_TIMEOUT",
	"DA_SHUTDOWN_TIMEOUT", "DA_DEPHEALTH_CHECK_INTERVAL", "DA_DEPHEALTH_GROUP",
	"DEPHEALTH_NAME",
}

// withEnv очищает все DA_* переменные и устанавливает vars на время теста.
func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	withEnv(t, nil)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "json" {
		t.Errorf("логирование: %v/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.MaxDocumentSize != 100<<20 {
		t.Errorf("MaxDocumentSize: получено %d", cfg.MaxDocumentSize)
	}
	if cfg.MaxArchives != 0 || cfg.ActivityLogSize != 1000 {
		t.Errorf("MaxArchives/ActivityLogSize: %d/%d", cfg.MaxArchives, cfg.ActivityLogSize)
	}
	if cfg.CompressWorkers != runtime.GOMAXPROCS(0) {
		t.Errorf("CompressWorkers: получено %d", cfg.CompressWorkers)
	}
	if cfg.CompressTimeout != 30*time.Second {
		t.Errorf("CompressTimeout: получено %v", cfg.CompressTimeout)
	}
	if cfg.SweepInterval != time.Hour || cfg.AuditInterval != 6*time.Hour {
		t.Errorf("интервалы: %v/%v", cfg.SweepInterval, cfg.AuditInterval)
	}
	if cfg.JWKSClientTimeout != cfg.HTTPClientTimeout {
		t.Errorf("JWKSClientTimeout должен совпадать с HTTPClientTimeout")
	}
	if cfg.AuthEnabled() || cfg.DatabaseEnabled() || cfg.BackupDir != "" {
		t.Error("опциональные подсистемы должны быть выключены по умолчанию")
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: получено %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	withEnv(t, map[string]string{
		"DA_PORT":                "9090",
		"DA_LOG_LEVEL":           "debug",
		"DA_LOG_FORMAT":          "text",
		"DA_MAX_DOCUMENT_SIZE":   "1048576",
		"DA_MAX_ARCHIVES":        "500",
		"DA_ACTIVITY_LOG_SIZE":   "50",
		"DA_COMPRESS_WORKERS":    "3",
		"DA_COMPRESS_TIMEOUT":    "2s",
		"DA_SWEEP_INTERVAL":      "10m",
		"DA_BACKUP_DIR":          "/data/backups",
		"DA_WAL_DIR":             "/data/wal",
		"DA_DB_HOST":             "db.local",
		"DA_DB_PASSWORD":         "p@ss word",
		"DA_JWKS_URL":            "https://auth.example.com/jwks.json",
		"DA_TLS_SKIP_VERIFY":     "true",
		"DA_CA_CERT_PATH":        "/etc/ssl/ca.crt",
		"DA_JWKS_CLIENT_TIMEOUT": "3s",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.Port != 9090 || cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "text" {
		t.Errorf("базовые параметры: %+v", cfg)
	}
	if cfg.MaxDocumentSize != 1048576 || cfg.MaxArchives != 500 || cfg.ActivityLogSize != 50 {
		t.Errorf("лимиты: %d/%d/%d", cfg.MaxDocumentSize, cfg.MaxArchives, cfg.ActivityLogSize)
	}
	if cfg.CompressWorkers != 3 || cfg.CompressTimeout != 2*time.Second || cfg.SweepInterval != 10*time.Minute {
		t.Errorf("кодек/очистка: %d/%v/%v", cfg.CompressWorkers, cfg.CompressTimeout, cfg.SweepInterval)
	}
	if !cfg.AuthEnabled() || !cfg.DatabaseEnabled() || !cfg.TLSSkipVerify {
		t.Error("опциональные подсистемы должны быть включены")
	}
	if cfg.JWKSClientTimeout != 3*time.Second {
		t.Errorf("JWKSClientTimeout: получено %v", cfg.JWKSClientTimeout)
	}
	if cfg.CACertPath != "/etc/ssl/ca.crt" {
		t.Errorf("CACertPath: получено %q", cfg.CACertPath)
	}
}

func TestDatabaseURLs(t *testing.T) {
	cfg := &Config{
		DBHost: "db.local", DBPort: 5433, DBName: "archive",
		DBUser: "svc", DBPassword: "p@ss word", DBSSLMode: "require",
	}

	dsn := cfg.DatabaseDSN()
	if !strings.HasPrefix(dsn, "postgres://svc:") || !strings.Contains(dsn, "@db.local:5433/archive?sslmode=require") {
		t.Errorf("DatabaseDSN: %s", dsn)
	}
	if strings.Contains(dsn, "p@ss word") {
		t.Errorf("пароль должен экранироваться: %s", dsn)
	}
	if !strings.HasPrefix(cfg.MigrationURL(), "pgx5://") {
		t.Errorf("MigrationURL: %s", cfg.MigrationURL())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DA_PORT", "abc"},
		{"DA_PORT", "70000"},
		{"DA_LOG_LEVEL", "verbose"},
		{"DA_LOG_FORMAT", "xml"},
		{"DA_MAX_DOCUMENT_SIZE", "0"},
		{"DA_MAX_ARCHIVES", "-1"},
		{"DA_ACTIVITY_LOG_SIZE", "0"},
		{"DA_COMPRESS_WORKERS", "0"},
		{"DA_COMPRESS_TIMEOUT", "soon"},
		{"DA_SWEEP_INTERVAL", "-1h"},
		{"DA_JWKS_CLIENT_TIMEOUT", "-5s"},
		{"DA_TLS_SKIP_VERIFY", "maybe"},
		{"DA_DB_SSL_MODE", "sometimes"},
		{"DA_JWKS_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			withEnv(t, map[string]string{tt.key: tt.value})

			_, err := Load()
			if err == nil {
				t.Fatalf("ожидалась ошибка для %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("ошибка должна называть переменную %s: %v", tt.key, err)
			}
		})
	}
}

func TestLoad_BackupDirRequiresWAL(t *testing.T) {
	withEnv(t, map[string]string{"DA_BACKUP_DIR": "/data/backups"})

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "DA_WAL_DIR") {
		t.Errorf("ожидалась ошибка про DA_WAL_DIR, получено %v", err)
	}
}

func TestLoad_ValidLogLevels(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			withEnv(t, map[string]string{"DA_LOG_LEVEL": tt.input})
			cfg, err := Load()
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.LogLevel != tt.expected {
				t.Errorf("LogLevel: ожидалось %v, получено %v", tt.expected, cfg.LogLevel)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			logger := SetupLogger(&Config{LogLevel: slog.LevelInfo, LogFormat: format})
			if logger == nil {
				t.Fatal("SetupLogger вернул nil")
			}
		})
	}
}
