// Пакет server — HTTP-сервер архива документов с graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/docarchive/internal/api/handlers"
	"github.com/bigkaa/docarchive/internal/api/middleware"
	"github.com/bigkaa/docarchive/internal/config"
)

// Handlers — набор обработчиков, монтируемых в роутер.
type Handlers struct {
	Archives    *handlers.ArchivesHandler
	Maintenance *handlers.MaintenanceHandler
	Backups     *handlers.BackupsHandler
	System      *handlers.SystemHandler
	Health      *handlers.HealthHandler
}

// Server — HTTP-сервер архива.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
// auth == nil — API работает без аутентификации.
func New(cfg *config.Config, logger *slog.Logger, h Handlers, auth *middleware.JWTAuth) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, h, auth),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты. Health и /metrics всегда публичны;
// /api/v1 при включённой аутентификации требует JWT и scope:
// archive:read для чтения, archive:write для изменений архивов,
// archive:admin для обслуживания и backup.
func NewRouter(logger *slog.Logger, h Handlers, auth *middleware.JWTAuth) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Handle("/metrics", promhttp.Handler())

	scope := func(string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler { return next }
	}
	if auth != nil {
		scope = middleware.RequireScope
	}

	router.Route("/api/v1", func(r chi.Router) {
		if auth != nil {
			r.Use(auth.Middleware())
		}

		r.Group(func(r chi.Router) {
			r.Use(scope(middleware.ScopeRead))
			r.Post("/classify", h.Archives.Classify)
			r.Get("/archives/search", h.Archives.Search)
			r.Get("/archives/{id}", h.Archives.GetInfo)
			r.Get("/archives/{id}/content", h.Archives.GetContent)
			r.Get("/categories", h.System.Categories)
			r.Get("/stats", h.System.Stats)
			r.Get("/activity", h.System.Activity)
			r.Get("/backups", h.Backups.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(scope(middleware.ScopeWrite))
			r.Post("/archives", h.Archives.Ingest)
			r.Delete("/archives/{id}", h.Archives.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(scope(middleware.ScopeAdmin))
			r.Post("/maintenance/sweep", h.Maintenance.Sweep)
			r.Post("/maintenance/audit", h.Maintenance.Audit)
			r.Post("/backups", h.Backups.Create)
			r.Post("/backups/{id}/restore", h.Backups.Restore)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown с таймаутом
// cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
