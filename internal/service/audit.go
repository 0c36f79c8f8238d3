// audit.go — сервис фоновой проверки целостности архивов.
//
// Аудит сверяет:
//   - digest каждой записи с её сжатым содержимым
//   - наличие каждой записи в инвертированном индексе
//
// Обнаруживает проблемы:
//   - integrity_violation: digest не совпадает с содержимым
//   - missing_index_entry: запись есть в хранилище, но не в индексе
//
// Проблемы только фиксируются, исправление не выполняется.
// Запускается как горутина с периодическим тикером (DA_AUDIT_INTERVAL).
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/storage/archive"
)

// Prometheus метрики аудита
var (
	auditRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "da_audit_runs_total",
		Help: "Общее количество запусков аудита целостности",
	})

	auditViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "da_audit_violations_total",
		Help: "Общее количество проблем, обнаруженных аудитом",
	}, []string{"type"})

	auditDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "da_audit_duration_seconds",
		Help:    "Длительность аудита целостности в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// Типы проблем аудита.
const (
	IssueIntegrityViolation = "integrity_violation"
	IssueMissingIndexEntry  = "missing_index_entry"
)

// auditActor — актор проверок аудита.
const auditActor = "audit"

// AuditIssue — обнаруженная проблема.
type AuditIssue struct {
	Type        string `json:"type"`
	ArchiveID   string `json:"archive_id"`
	Description string `json:"description"`
}

// AuditSummary — сводка аудита.
type AuditSummary struct {
	OK                  int `json:"ok"`
	IntegrityViolations int `json:"integrity_violations"`
	MissingIndexEntries int `json:"missing_index_entries"`
}

// AuditResult — результат одного прохода аудита.
type AuditResult struct {
	StartedAt       time.Time    `json:"started_at"`
	CompletedAt     time.Time    `json:"completed_at"`
	ArchivesChecked int          `json:"archives_checked"`
	Issues          []AuditIssue `json:"issues"`
	Summary         AuditSummary `json:"summary"`
}

// AuditService — сервис аудита целостности.
type AuditService struct {
	store    *archive.Store
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewAuditService создаёт сервис аудита.
func NewAuditService(store *archive.Store, interval time.Duration, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:    store,
		interval: interval,
		logger:   logger.With(slog.String("component", "audit")),
	}
}

// Start запускает фоновую горутину аудита.
func (a *AuditService) Start(ctx context.Context) {
	auditCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.run(auditCtx)

	a.logger.Info("Аудит целостности запущен",
		slog.String("interval", a.interval.String()),
	)
}

// Stop останавливает фоновую горутину и ждёт её завершения.
func (a *AuditService) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
	a.cancel = nil
	a.logger.Info("Аудит целостности остановлен")
}

// IsInProgress возвращает true, если аудит выполняется.
func (a *AuditService) IsInProgress() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inProcess
}

func (a *AuditService) run(ctx context.Context) {
	defer close(a.done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.RunOnce()
		}
	}
}

// RunOnce выполняет один проход аудита.
// Если аудит уже выполняется, возвращает nil, true.
func (a *AuditService) RunOnce() (*AuditResult, bool) {
	a.mu.Lock()
	if a.inProcess {
		a.mu.Unlock()
		a.logger.Warn("Аудит уже выполняется, пропуск")
		return nil, true
	}
	a.inProcess = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inProcess = false
		a.mu.Unlock()
	}()

	result := &AuditResult{
		StartedAt: a.store.Now(),
		Issues:    []AuditIssue{},
	}
	start := time.Now()

	idx := a.store.Index()
	for _, id := range a.store.IDs() {
		err := a.store.VerifyIntegrity(id, auditActor)
		switch {
		case errors.Is(err, model.ErrNotFound):
			// удалена во время аудита
			continue
		case errors.Is(err, model.ErrIntegrityViolation):
			result.Issues = append(result.Issues, AuditIssue{
				Type:        IssueIntegrityViolation,
				ArchiveID:   id,
				Description: "Digest не совпадает с содержимым архива",
			})
			result.Summary.IntegrityViolations++
			a.logger.Error("Нарушение целостности архива",
				slog.String("archive_id", id),
			)
		case err != nil:
			a.logger.Warn("Ошибка проверки архива",
				slog.String("archive_id", id),
				slog.String("error", err.Error()),
			)
			continue
		default:
			result.Summary.OK++
		}
		result.ArchivesChecked++

		if !idx.Contains(id) && a.store.Info(id) != nil {
			result.Issues = append(result.Issues, AuditIssue{
				Type:        IssueMissingIndexEntry,
				ArchiveID:   id,
				Description: "Архив отсутствует в индексе",
			})
			result.Summary.MissingIndexEntries++
		}
	}

	result.CompletedAt = a.store.Now()
	duration := time.Since(start)

	auditRunsTotal.Inc()
	auditDurationSeconds.Observe(duration.Seconds())
	for _, issue := range result.Issues {
		auditViolationsTotal.WithLabelValues(issue.Type).Inc()
	}

	a.logger.Info("Аудит целостности завершён",
		slog.Int("archives_checked", result.ArchivesChecked),
		slog.Int("issues", len(result.Issues)),
		slog.Int("ok", result.Summary.OK),
		slog.Duration("duration", duration),
	)
	return result, false
}
