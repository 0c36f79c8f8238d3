// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/docarchive/internal/config"
)

const (
	statusOK       = "ok"
	statusFail     = "fail"
	statusDegraded = "degraded"
)

// ReadinessChecker — проверка готовности зависимости.
// CheckReady возвращает статус ("ok", "fail") и сообщение.
type ReadinessChecker interface {
	Name() string
	CheckReady() (status string, message string)
}

// WritableCheck — проверка каталога на запись (backup, WAL).
type WritableCheck struct {
	name  string
	check func() error
}

// NewWritableCheck создаёт проверку с именем name.
func NewWritableCheck(name string, check func() error) *WritableCheck {
	return &WritableCheck{name: name, check: check}
}

// Name возвращает имя проверки.
func (c *WritableCheck) Name() string { return c.name }

// CheckReady выполняет проверку записи.
func (c *WritableCheck) CheckReady() (string, string) {
	if err := c.check(); err != nil {
		return statusFail, err.Error()
	}
	return statusOK, "доступна на запись"
}

type registeredCheck struct {
	checker  ReadinessChecker
	critical bool
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	service string
	checks  []registeredCheck
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(serviceID string) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		service: serviceID,
	}
}

// AddCheck регистрирует проверку. Отказ критической проверки даёт 503,
// некритической — статус degraded с кодом 200.
func (h *HealthHandler) AddCheck(c ReadinessChecker, critical bool) {
	h.checks = append(h.checks, registeredCheck{checker: c, critical: critical})
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    statusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   h.service,
	})
}

// HealthReady обрабатывает GET /health/ready.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overall := statusOK
	httpStatus := http.StatusOK
	checks := make(map[string]any, len(h.checks))

	for _, c := range h.checks {
		status, message := c.checker.CheckReady()
		checks[c.checker.Name()] = map[string]any{
			"status":  status,
			"message": message,
		}
		if status == statusOK {
			continue
		}
		if c.critical {
			overall = statusFail
			httpStatus = http.StatusServiceUnavailable
		} else if overall != statusFail {
			overall = statusDegraded
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   h.service,
		"checks":    checks,
	})
}
