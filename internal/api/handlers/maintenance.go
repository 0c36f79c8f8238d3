// maintenance.go — обработчики POST /api/v1/maintenance/sweep и
// POST /api/v1/maintenance/audit.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/docarchive/internal/api/errors"
	"github.com/bigkaa/docarchive/internal/service"
)

// Sweeper — запуск очистки по сроку хранения.
type Sweeper interface {
	Sweep() *service.SweepResult
}

// AuditRunner — интерфейс для запуска аудита целостности.
// Позволяет тестировать handler без полного AuditService.
type AuditRunner interface {
	// RunOnce выполняет один цикл аудита.
	// Возвращает результат и флаг "уже выполняется".
	RunOnce() (*service.AuditResult, bool)
}

// sweepResponse — ответ POST /maintenance/sweep.
type sweepResponse struct {
	*service.SweepResult
	DurationMs float64 `json:"duration_ms"`
}

// MaintenanceHandler — обработчик endpoints обслуживания.
type MaintenanceHandler struct {
	sweeper Sweeper
	auditor AuditRunner
}

// NewMaintenanceHandler создаёт обработчик maintenance endpoints.
func NewMaintenanceHandler(sweeper Sweeper, auditor AuditRunner) *MaintenanceHandler {
	return &MaintenanceHandler{sweeper: sweeper, auditor: auditor}
}

// Sweep обрабатывает POST /api/v1/maintenance/sweep.
// Синхронно удаляет истёкшие архивы и возвращает их список.
func (h *MaintenanceHandler) Sweep(w http.ResponseWriter, _ *http.Request) {
	result := h.sweeper.Sweep()
	writeJSON(w, http.StatusOK, sweepResponse{
		SweepResult: result,
		DurationMs:  float64(result.Duration.Microseconds()) / 1000,
	})
}

// Audit обрабатывает POST /api/v1/maintenance/audit.
// Если аудит уже выполняется (фоновый цикл) — 409 OPERATION_IN_PROGRESS.
func (h *MaintenanceHandler) Audit(w http.ResponseWriter, _ *http.Request) {
	result, inProgress := h.auditor.RunOnce()
	if inProgress {
		apierrors.OperationInProgress(w, "аудит целостности уже выполняется")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
