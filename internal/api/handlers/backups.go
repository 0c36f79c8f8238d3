// backups.go — endpoints backup: создание снимка, список, восстановление.
package handlers

import (
	"context"
	"net/http"

	apierrors "github.com/bigkaa/docarchive/internal/api/errors"
	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/service"
)

// BackupCoordinator — операции backup, нужные HTTP-слою.
type BackupCoordinator interface {
	Snapshot(ctx context.Context, opts model.BackupOptions) (*service.SnapshotResult, error)
	List(ctx context.Context) ([]model.BackupSummary, error)
	Restore(ctx context.Context, backupID string) (*service.RestoreResult, error)
}

// backupRequest — тело POST /backups. Тело необязательно.
type backupRequest struct {
	IncludeMetadata  bool `json:"includeMetadata"`
	IncludeAccessLog bool `json:"includeAccessLog"`
}

type backupListResponse struct {
	Count   int                   `json:"count"`
	Backups []model.BackupSummary `json:"backups"`
}

// BackupsHandler — обработчик endpoints backup.
type BackupsHandler struct {
	backups BackupCoordinator
}

// NewBackupsHandler создаёт обработчик backup endpoints.
func NewBackupsHandler(backups BackupCoordinator) *BackupsHandler {
	return &BackupsHandler{backups: backups}
}

// Create обрабатывает POST /api/v1/backups.
// Опции принимаются из тела или query-параметров с теми же именами.
func (h *BackupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if !queryParam(w, r, "includeMetadata", &req.IncludeMetadata) ||
		!queryParam(w, r, "includeAccessLog", &req.IncludeAccessLog) {
		return
	}
	if !decodeJSON(w, r, defaultBodyLimit, &req) {
		return
	}

	res, err := h.backups.Snapshot(r.Context(), model.BackupOptions{
		IncludeMetadata:  req.IncludeMetadata,
		IncludeAccessLog: req.IncludeAccessLog,
	})
	if err != nil {
		apierrors.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// List обрабатывает GET /api/v1/backups.
func (h *BackupsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.backups.List(r.Context())
	if err != nil {
		apierrors.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backupListResponse{Count: len(list), Backups: list})
}

// Restore обрабатывает POST /api/v1/backups/{id}/restore.
// Пропущенные записи перечисляются в failed; статус остаётся 200.
func (h *BackupsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.backups.Restore(r.Context(), id)
	if err != nil {
		apierrors.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
