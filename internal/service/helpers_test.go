package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/storage/activity"
	"github.com/bigkaa/docarchive/internal/storage/archive"
	"github.com/bigkaa/docarchive/internal/storage/codec"
	"github.com/bigkaa/docarchive/internal/storage/index"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testClock — управляемые часы хранилища.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// setupStore создаёт хранилище с управляемыми часами.
func setupStore(t *testing.T) (*archive.Store, *testClock) {
	t.Helper()

	logger := testLogger()
	events, err := activity.New(200)
	if err != nil {
		t.Fatalf("Ошибка создания журнала активности: %v", err)
	}
	clock := newTestClock()
	store := archive.New(index.New(logger), events, codec.NewPool(4, time.Second), logger,
		archive.WithClock(clock.Now))
	return store, clock
}

// ingest архивирует документ или прерывает тест.
func ingest(t *testing.T, store *archive.Store, doc model.Document) *model.Archive {
	t.Helper()
	res, err := store.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("Ingest(%q): %v", doc.Name, err)
	}
	return res.Archive
}
