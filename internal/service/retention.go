// retention.go — фоновая очистка архивов с истёкшим сроком хранения.
//
// Удаляются записи, у которых expiration_date строго раньше текущего
// времени хранилища. Удаление идёт через archive.Store, поэтому индекс
// очищается в той же операции, а извлечение того же id во время
// удаления невозможно.
//
// Запускается как горутина с периодическим тикером (DA_SWEEP_INTERVAL)
// и вручную через POST /api/v1/maintenance/sweep.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/storage/archive"
)

// Prometheus метрики очистки
var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "da_sweep_runs_total",
		Help: "Общее количество запусков очистки по сроку хранения",
	})

	sweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "da_sweep_deleted_total",
		Help: "Общее количество архивов, удалённых по сроку хранения",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "da_sweep_duration_seconds",
		Help:    "Длительность очистки в секундах",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)

// retentionActor — актор, от имени которого удаляются истёкшие записи.
const retentionActor = "retention"

// SweepDetail — сведения об удалённой записи.
type SweepDetail struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// SweepResult — результат одного прохода очистки.
type SweepResult struct {
	DeletedCount int           `json:"deleted_count"`
	DeletedIDs   []string      `json:"deleted_ids"`
	Details      []SweepDetail `json:"details"`
	Duration     time.Duration `json:"-"`
}

// RetentionService — сервис очистки по сроку хранения.
type RetentionService struct {
	store    *archive.Store
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска Sweep
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRetentionService создаёт сервис очистки.
func NewRetentionService(store *archive.Store, interval time.Duration, logger *slog.Logger) *RetentionService {
	return &RetentionService{
		store:    store,
		interval: interval,
		logger:   logger.With(slog.String("component", "retention")),
	}
}

// Start запускает фоновую горутину очистки.
func (r *RetentionService) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(sweepCtx)

	r.logger.Info("Очистка по сроку хранения запущена",
		slog.String("interval", r.interval.String()),
	)
}

// Stop останавливает фоновую горутину и ждёт её завершения.
func (r *RetentionService) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.logger.Info("Очистка по сроку хранения остановлена")
}

func (r *RetentionService) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// RunOnce — синоним Sweep для фонового цикла и тестов.
func (r *RetentionService) RunOnce() *SweepResult {
	return r.Sweep()
}

// Sweep удаляет все записи с истёкшим сроком хранения.
// Повторный вызов без новых истёкших записей ничего не удаляет.
func (r *RetentionService) Sweep() *SweepResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	now := r.store.Now()

	deleted := r.store.DeleteWhere(retentionActor, func(rec *model.Archive) bool {
		return rec.IsExpired(now)
	})

	result := &SweepResult{
		DeletedCount: len(deleted),
		DeletedIDs:   make([]string, 0, len(deleted)),
		Details:      make([]SweepDetail, 0, len(deleted)),
	}
	for _, rec := range deleted {
		result.DeletedIDs = append(result.DeletedIDs, rec.ID)
		result.Details = append(result.Details, SweepDetail{
			ID:             rec.ID,
			Name:           rec.Name,
			Category:       rec.Classification.Category,
			ExpirationDate: rec.ExpirationDate,
		})
		r.logger.Debug("Архив удалён по сроку хранения",
			slog.String("archive_id", rec.ID),
			slog.String("name", rec.Name),
			slog.Time("expiration_date", rec.ExpirationDate),
		)
	}
	result.Duration = time.Since(start)

	r.store.RecordCleanup(retentionActor, result.DeletedCount)

	sweepRunsTotal.Inc()
	sweepDeletedTotal.Add(float64(result.DeletedCount))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	r.logger.Info("Очистка завершена",
		slog.Int("deleted", result.DeletedCount),
		slog.Duration("duration", result.Duration),
	)
	return result
}
