package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				recordActor(r.Context(), "anna")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			if !strings.Contains(out, "level="+tt.level) {
				t.Errorf("ожидался уровень %s: %s", tt.level, out)
			}
			if !strings.Contains(out, "bytes=4") || !strings.Contains(out, "actor=anna") {
				t.Errorf("неполная запись лога: %s", out)
			}
		})
	}
}

func TestRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = routePattern(req)
		})
	})
	r.Get("/api/v1/archives/{id}", func(w http.ResponseWriter, req *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/archives/123", nil))
	if got != "/api/v1/archives/{id}" {
		t.Errorf("ожидался шаблон маршрута, получено %q", got)
	}

	if p := routePattern(httptest.NewRequest(http.MethodGet, "/x", nil)); p != unmatchedPath {
		t.Errorf("без chi ожидалось %q, получено %q", unmatchedPath, p)
	}
}
