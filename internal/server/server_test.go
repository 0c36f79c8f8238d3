package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"

	"github.com/bigkaa/docarchive/internal/api/handlers"
	"github.com/bigkaa/docarchive/internal/api/middleware"
	"github.com/bigkaa/docarchive/internal/config"
	"github.com/bigkaa/docarchive/internal/service"
	"github.com/bigkaa/docarchive/internal/storage/activity"
	"github.com/bigkaa/docarchive/internal/storage/archive"
	"github.com/bigkaa/docarchive/internal/storage/codec"
	"github.com/bigkaa/docarchive/internal/storage/index"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testHandlers(t *testing.T) Handlers {
	t.Helper()
	logger := testLogger()
	events, err := activity.New(50)
	if err != nil {
		t.Fatal(err)
	}
	pool := codec.NewPool(2, time.Second)
	store := archive.New(index.New(logger), events, pool, logger)
	audit := service.NewAuditService(store, time.Hour, logger)
	return Handlers{
		Archives:    handlers.NewArchivesHandler(store, service.NewSearchService(store, logger), 0, logger),
		Maintenance: handlers.NewMaintenanceHandler(service.NewRetentionService(store, time.Hour, logger), audit),
		Backups:     handlers.NewBackupsHandler(service.NewBackupService(store, pool, logger)),
		System:      handlers.NewSystemHandler(store),
		Health:      handlers.NewHealthHandler("archive-engine"),
	}
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestRouter_WithoutAuth(t *testing.T) {
	router := NewRouter(testLogger(), testHandlers(t), nil)

	rec := serve(router, http.MethodPost, "/api/v1/archives", `{"name":"nda","content":"contract"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest: хотели 201, получили %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Archive struct {
			ID string `json:"id"`
		} `json:"archive"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		method, target string
		code           int
	}{
		{http.MethodGet, "/api/v1/archives/" + resp.Archive.ID, http.StatusOK},
		{http.MethodGet, "/api/v1/archives/search?q=nda", http.StatusOK},
		{http.MethodGet, "/api/v1/stats", http.StatusOK},
		{http.MethodPost, "/api/v1/maintenance/audit", http.StatusOK},
		{http.MethodPost, "/api/v1/backups", http.StatusCreated},
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}
	for _, c := range checks {
		if rec := serve(router, c.method, c.target, ""); rec.Code != c.code {
			t.Errorf("%s %s: хотели %d, получили %d", c.method, c.target, c.code, rec.Code)
		}
	}

	rec = serve(router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "da_http_requests_total") {
		t.Error("/metrics не содержит da_http_requests_total")
	}
}

func TestRouter_WithAuthRequiresToken(t *testing.T) {
	kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(`{"keys":[]}`))
	if err != nil {
		t.Fatalf("keyfunc: %v", err)
	}
	auth := middleware.NewJWTAuthWithKeyfunc(kf, time.Second, testLogger())
	router := NewRouter(testLogger(), testHandlers(t), auth)

	if rec := serve(router, http.MethodGet, "/api/v1/stats", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("без токена: хотели 401, получили %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/health/live", ""); rec.Code != http.StatusOK {
		t.Errorf("health должен быть публичным, получили %d", rec.Code)
	}
}

func TestServer_RunStopsOnContextCancel(t *testing.T) {
	cfg := &config.Config{
		Port:             0,
		HTTPReadTimeout:  time.Second,
		HTTPWriteTimeout: time.Second,
		HTTPIdleTimeout:  time.Second,
		ShutdownTimeout:  time.Second,
	}
	srv := New(cfg, testLogger(), testHandlers(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("сервер не остановился после отмены контекста")
	}
}
