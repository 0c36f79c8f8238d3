// Пакет config — загрузка и валидация конфигурации архива документов
// из переменных окружения с префиксом DA_.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Уникальный идентификатор экземпляра (метрики, логи)
	ServiceID string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Максимальный размер документа в байтах
	MaxDocumentSize int64
	// Максимальное число архивов (0 — без ограничения)
	MaxArchives int
	// Ёмкость журнала активности
	ActivityLogSize int
	// Число параллельных операций кодека
	CompressWorkers int
	// Максимальное ожидание свободного слота кодека
	CompressTimeout time.Duration

	SweepInterval time.Duration
	AuditInterval time.Duration

	// Каталог файлового приёмника backup (пусто — приёмник выключен)
	BackupDir string
	// Каталог WAL, обязателен вместе с BackupDir
	WALDir string

	// PostgreSQL-каталог backup (DBHost пусто — каталог выключен)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// URL JWKS endpoint (пусто — аутентификация выключена)
	JWKSUrl             string
	JWTLeeway           time.Duration
	JWKSRefreshInterval time.Duration
	// Глобальный таймаут исходящих HTTP-клиентов
	HTTPClientTimeout time.Duration
	// Таймаут клиента JWKS, по умолчанию равен HTTPClientTimeout
	JWKSClientTimeout time.Duration
	TLSSkipVerify     bool
	// Путь к CA-сертификату для исходящих TLS-соединений (опционально)
	CACertPath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя владельца пода для метки name в topologymetrics (DEPHEALTH_NAME)
	DephealthName string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку с именем переменной.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// DA_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("DA_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DA_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DA_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.ServiceID = getEnvDefault("DA_SERVICE_ID", "archive-engine")

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DA_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DA_LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = getEnvDefault("DA_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DA_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// DA_MAX_DOCUMENT_SIZE — максимальный размер документа (по умолчанию 100 MiB)
	cfg.MaxDocumentSize, err = getEnvInt64("DA_MAX_DOCUMENT_SIZE", 100<<20)
	if err != nil {
		return nil, fmt.Errorf("DA_MAX_DOCUMENT_SIZE: %w", err)
	}
	if cfg.MaxDocumentSize <= 0 {
		return nil, fmt.Errorf("DA_MAX_DOCUMENT_SIZE: значение должно быть положительным")
	}

	cfg.MaxArchives, err = getEnvInt("DA_MAX_ARCHIVES", 0)
	if err != nil {
		return nil, fmt.Errorf("DA_MAX_ARCHIVES: %w", err)
	}
	if cfg.MaxArchives < 0 {
		return nil, fmt.Errorf("DA_MAX_ARCHIVES: значение не может быть отрицательным")
	}

	cfg.ActivityLogSize, err = getEnvInt("DA_ACTIVITY_LOG_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("DA_ACTIVITY_LOG_SIZE: %w", err)
	}
	if cfg.ActivityLogSize <= 0 {
		return nil, fmt.Errorf("DA_ACTIVITY_LOG_SIZE: значение должно быть положительным")
	}

	cfg.CompressWorkers, err = getEnvInt("DA_COMPRESS_WORKERS", runtime.GOMAXPROCS(0))
	if err != nil {
		return nil, fmt.Errorf("DA_COMPRESS_WORKERS: %w", err)
	}
	if cfg.CompressWorkers <= 0 {
		return nil, fmt.Errorf("DA_COMPRESS_WORKERS: значение должно быть положительным")
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"DA_COMPRESS_TIMEOUT", &cfg.CompressTimeout, 30 * time.Second},
		{"DA_SWEEP_INTERVAL", &cfg.SweepInterval, time.Hour},
		{"DA_AUDIT_INTERVAL", &cfg.AuditInterval, 6 * time.Hour},
		{"DA_JWT_LEEWAY", &cfg.JWTLeeway, 5 * time.Second},
		{"DA_JWKS_REFRESH_INTERVAL", &cfg.JWKSRefreshInterval, 15 * time.Minute},
		{"DA_HTTP_CLIENT_TIMEOUT", &cfg.HTTPClientTimeout, 10 * time.Second},
		{"DA_HTTP_READ_TIMEOUT", &cfg.HTTPReadTimeout, 30 * time.Second},
		{"DA_HTTP_WRITE_TIMEOUT", &cfg.HTTPWriteTimeout, 60 * time.Second},
		{"DA_HTTP_IDLE_TIMEOUT", &cfg.HTTPIdleTimeout, 120 * time.Second},
		{"DA_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, 5 * time.Second},
		{"DA_DEPHEALTH_CHECK_INTERVAL", &cfg.DephealthCheckInterval, 15 * time.Second},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvPositiveDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	// DA_JWKS_CLIENT_TIMEOUT — по умолчанию равен DA_HTTP_CLIENT_TIMEOUT
	if cfg.JWKSClientTimeout, err = getEnvPositiveDuration("DA_JWKS_CLIENT_TIMEOUT", cfg.HTTPClientTimeout); err != nil {
		return nil, err
	}

	cfg.BackupDir = getEnvDefault("DA_BACKUP_DIR", "")
	cfg.WALDir = getEnvDefault("DA_WAL_DIR", "")
	if cfg.BackupDir != "" && cfg.WALDir == "" {
		return nil, fmt.Errorf("DA_WAL_DIR: обязательна при заданной DA_BACKUP_DIR")
	}

	cfg.DBHost = getEnvDefault("DA_DB_HOST", "")
	cfg.DBPort, err = getEnvInt("DA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("DA_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("DA_DB_NAME", "docarchive")
	cfg.DBUser = getEnvDefault("DA_DB_USER", "docarchive")
	cfg.DBPassword = getEnvDefault("DA_DB_PASSWORD", "")
	cfg.DBSSLMode = getEnvDefault("DA_DB_SSL_MODE", "disable")
	validSSL := map[string]bool{"disable": true, "allow": true, "prefer": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[cfg.DBSSLMode] {
		return nil, fmt.Errorf("DA_DB_SSL_MODE: недопустимое значение %q", cfg.DBSSLMode)
	}

	cfg.JWKSUrl = getEnvDefault("DA_JWKS_URL", "")
	if cfg.JWKSUrl != "" {
		if u, perr := url.Parse(cfg.JWKSUrl); perr != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("DA_JWKS_URL: некорректный URL %q", cfg.JWKSUrl)
		}
	}

	cfg.TLSSkipVerify, err = getEnvBool("DA_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("DA_TLS_SKIP_VERIFY: %w", err)
	}
	cfg.CACertPath = getEnvDefault("DA_CA_CERT_PATH", "")

	cfg.DephealthGroup = getEnvDefault("DA_DEPHEALTH_GROUP", "docarchive")
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "")

	return cfg, nil
}

// AuthEnabled сообщает, включена ли JWT-аутентификация.
func (c *Config) AuthEnabled() bool { return c.JWKSUrl != "" }

// DatabaseEnabled сообщает, настроен ли PostgreSQL-каталог backup.
func (c *Config) DatabaseEnabled() bool { return c.DBHost != "" }

// DatabaseDSN возвращает DSN для pgxpool.
func (c *Config) DatabaseDSN() string {
	return c.databaseURL("postgres")
}

// MigrationURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrationURL() string {
	return c.databaseURL("pgx5")
}

func (c *Config) databaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvPositiveDuration возвращает положительную длительность из переменной
// окружения или значение по умолчанию. Ошибка уже содержит имя переменной.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", key, val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: длительность должна быть положительной, получено %v", key, d)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
