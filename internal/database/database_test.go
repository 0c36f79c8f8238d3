package database

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers.
// Возвращает DSN для pgxpool.
func setupTestDB(t *testing.T) string {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("docarchive_test"),
		postgres.WithUsername("docarchive"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Не удалось получить строку подключения: %v", err)
	}
	return dsn
}

func migrationURL(dsn string) string {
	return "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
}

func TestConnect(t *testing.T) {
	dsn := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, dsn, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	if status, msg := NewReadinessChecker(pool).CheckReady(); status != "ok" {
		t.Errorf("CheckReady: %s (%s)", status, msg)
	}
	if err := SQLDB(pool).PingContext(ctx); err != nil {
		t.Errorf("SQLDB ping: %v", err)
	}
}

func TestMigrate_CreatesTablesAndIsIdempotent(t *testing.T) {
	dsn := setupTestDB(t)
	ctx := context.Background()

	if err := Migrate(migrationURL(dsn), testLogger()); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	if err := Migrate(migrationURL(dsn), testLogger()); err != nil {
		t.Fatalf("повторный Migrate() должен быть no-op: %v", err)
	}

	pool, err := Connect(ctx, dsn, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	for _, table := range []string{"backups", "backup_entries"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		if err != nil {
			t.Fatalf("проверка таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("таблица %s не создана", table)
		}
	}
}

func TestConnect_InvalidDSN(t *testing.T) {
	_, err := Connect(context.Background(), "://bad", testLogger())
	if err == nil {
		t.Error("ожидалась ошибка для некорректного DSN")
	}
}
