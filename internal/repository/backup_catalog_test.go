package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/docarchive/internal/database"
	"github.com/bigkaa/docarchive/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
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
	if err := database.Migrate("pgx5://"+strings.TrimPrefix(dsn, "postgres://"), testLogger()); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}
	pool, err := database.Connect(ctx, dsn, testLogger())
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func sampleDescriptor(ts time.Time, withMetadata bool) *model.BackupDescriptor {
	accessed := ts.Add(-time.Hour)
	entry := model.BackupEntry{
		ID:             uuid.New().String(),
		Name:           "invoice_jan",
		MediaType:      "application/pdf",
		Digest:         strings.Repeat("a", 64),
		OriginalSize:   100,
		CompressedSize: 40,
		Category:       "FINANCIAL",
		Classification: model.Classification{
			Category: "FINANCIAL", Confidence: 0.5, Priority: model.PriorityHigh, Icon: "💰", RetentionDays: 2555,
		},
		Payload: []byte{0x1f, 0x8b, 0x08, 0x00},
	}
	if withMetadata {
		entry.Metadata = &model.Metadata{
			CreatedAt: ts, UpdatedAt: ts, Owner: "ivan", Tags: []string{"q1"}, LastAccessedAt: &accessed,
		}
		entry.AccessLog = []model.AccessEntry{{Timestamp: accessed, Actor: "anna", Action: "retrieve"}}
	}
	return &model.BackupDescriptor{
		Header: model.BackupHeader{
			BackupID: uuid.New().String(), Timestamp: ts, ArchiveCount: 1, TotalSize: 40,
		},
		Entries: []model.BackupEntry{entry},
	}
}

func TestBackupCatalog_SaveLoad(t *testing.T) {
	pool := setupTestDB(t)
	catalog := NewBackupCatalog(pool, NewTxRunner(pool), testLogger())
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	desc := sampleDescriptor(ts, true)
	if err := catalog.Save(ctx, desc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := catalog.Load(ctx, desc.Header.BackupID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Header.BackupID != desc.Header.BackupID || !got.Header.Timestamp.Equal(ts) {
		t.Errorf("заголовок: %+v", got.Header)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("ожидалась 1 запись, получено %d", len(got.Entries))
	}
	e := got.Entries[0]
	want := desc.Entries[0]
	if e.ID != want.ID || e.Digest != want.Digest || string(e.Payload) != string(want.Payload) {
		t.Errorf("запись не совпадает: %+v", e)
	}
	if e.Classification != want.Classification {
		t.Errorf("classification: %+v", e.Classification)
	}
	if e.Metadata == nil || e.Metadata.Owner != "ivan" || e.Metadata.LastAccessedAt == nil {
		t.Errorf("metadata: %+v", e.Metadata)
	}
	if len(e.AccessLog) != 1 || e.AccessLog[0].Actor != "anna" {
		t.Errorf("access_log: %+v", e.AccessLog)
	}
}

func TestBackupCatalog_OptionalColumnsNull(t *testing.T) {
	pool := setupTestDB(t)
	catalog := NewBackupCatalog(pool, NewTxRunner(pool), testLogger())
	ctx := context.Background()

	desc := sampleDescriptor(time.Now().UTC(), false)
	if err := catalog.Save(ctx, desc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := catalog.Load(ctx, desc.Header.BackupID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Entries[0].Metadata != nil || got.Entries[0].AccessLog != nil {
		t.Errorf("опциональные поля должны быть пустыми: %+v", got.Entries[0])
	}
}

func TestBackupCatalog_ConflictAndNotFound(t *testing.T) {
	pool := setupTestDB(t)
	catalog := NewBackupCatalog(pool, NewTxRunner(pool), testLogger())
	ctx := context.Background()

	desc := sampleDescriptor(time.Now().UTC(), false)
	if err := catalog.Save(ctx, desc); err != nil {
		t.Fatal(err)
	}
	if err := catalog.Save(ctx, desc); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Save: ожидалась ErrConflict, получено %v", err)
	}

	if _, err := catalog.Load(ctx, uuid.New().String()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Load: ожидалась ErrNotFound, получено %v", err)
	}
	if err := catalog.Delete(ctx, desc.Header.BackupID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := catalog.Delete(ctx, desc.Header.BackupID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("повторный Delete: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestBackupCatalog_ListNewestFirst(t *testing.T) {
	pool := setupTestDB(t)
	catalog := NewBackupCatalog(pool, NewTxRunner(pool), testLogger())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	older := sampleDescriptor(base, false)
	newer := sampleDescriptor(base.Add(time.Hour), false)
	for _, d := range []*model.BackupDescriptor{older, newer} {
		if err := catalog.Save(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	headers, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(headers) != 2 || headers[0].BackupID != newer.Header.BackupID {
		t.Errorf("List: %+v", headers)
	}
}

func TestBackupCatalog_InvalidID(t *testing.T) {
	catalog := NewBackupCatalog(nil, nil, testLogger())
	desc := sampleDescriptor(time.Now(), false)
	desc.Header.BackupID = "not-a-uuid"
	if err := catalog.Save(context.Background(), desc); err == nil {
		t.Error("ожидалась ошибка для некорректного UUID")
	}
}
