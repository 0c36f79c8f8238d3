// backup.go — координатор backup: снимок хранилища на момент времени,
// раздача снимка приёмникам и восстановление из снимка.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/storage/archive"
	"github.com/bigkaa/docarchive/internal/storage/codec"
	"github.com/bigkaa/docarchive/internal/storage/integrity"
)

// MemorySinkName — имя встроенного in-memory приёмника.
const MemorySinkName = "memory"

// defaultRetainedSnapshots — сколько последних снимков держать в памяти.
const defaultRetainedSnapshots = 8

var (
	backupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "da_backups_total",
		Help: "Количество сохранений backup по приёмникам.",
	}, []string{"sink", "result"})
	restoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "da_restores_total",
		Help: "Количество восстановленных записей из backup.",
	}, []string{"result"})
)

// BackupSink — приёмник снимков (файловый каталог, PostgreSQL).
type BackupSink interface {
	Name() string
	Save(ctx context.Context, desc *model.BackupDescriptor) error
}

// BackupSource — приёмник, из которого снимок можно прочитать обратно.
type BackupSource interface {
	Load(ctx context.Context, backupID string) (*model.BackupDescriptor, error)
	List(ctx context.Context) ([]model.BackupHeader, error)
}

// SnapshotResult — результат создания снимка.
type SnapshotResult struct {
	Header model.BackupHeader `json:"header"`
	// Sinks — приёмники, успешно сохранившие снимок (memory всегда первый)
	Sinks []string `json:"sinks"`
	// FailedSinks — приёмники, вернувшие ошибку
	FailedSinks map[string]string `json:"failed_sinks,omitempty"`
}

// RestoreFailure — запись, которую не удалось восстановить.
type RestoreFailure struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RestoreResult — результат восстановления.
type RestoreResult struct {
	BackupID string `json:"backup_id"`
	Restored int    `json:"restored"`
	// Mapping — старый id → новый id
	Mapping map[string]string `json:"mapping"`
	Failed  []RestoreFailure  `json:"failed,omitempty"`
}

// BackupService — координатор backup.
type BackupService struct {
	store  *archive.Store
	pool   *codec.Pool
	sinks  []BackupSink
	recent *lru.Cache[string, *model.BackupDescriptor]
	mu     sync.Mutex
	logger *slog.Logger
}

// NewBackupService создаёт координатор. Снимки всегда сохраняются
// в памяти (последние defaultRetainedSnapshots); sinks — дополнительные
// приёмники, в которые снимок раздаётся параллельно.
func NewBackupService(store *archive.Store, pool *codec.Pool, logger *slog.Logger, sinks ...BackupSink) *BackupService {
	recent, _ := lru.New[string, *model.BackupDescriptor](defaultRetainedSnapshots)
	return &BackupService{
		store:  store,
		pool:   pool,
		sinks:  sinks,
		recent: recent,
		logger: logger.With(slog.String("component", "backup_service")),
	}
}

// Snapshot создаёт снимок всех текущих записей и передаёт его приёмникам.
// Ошибка приёмника не отменяет снимок: она логируется и попадает в FailedSinks.
func (s *BackupService) Snapshot(ctx context.Context, opts model.BackupOptions) (*SnapshotResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desc := s.buildDescriptor(opts)
	s.recent.Add(desc.Header.BackupID, desc)

	result := &SnapshotResult{
		Header: desc.Header,
		Sinks:  []string{MemorySinkName},
	}
	backupsTotal.WithLabelValues(MemorySinkName, "success").Inc()

	var (
		g      errgroup.Group
		mu     sync.Mutex
		stored []string
		failed = make(map[string]string)
	)
	for _, sink := range s.sinks {
		g.Go(func() error {
			err := sink.Save(ctx, desc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[sink.Name()] = err.Error()
				backupsTotal.WithLabelValues(sink.Name(), "error").Inc()
				s.logger.Error("Приёмник не сохранил backup",
					slog.String("sink", sink.Name()),
					slog.String("backup_id", desc.Header.BackupID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			stored = append(stored, sink.Name())
			backupsTotal.WithLabelValues(sink.Name(), "success").Inc()
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(stored)
	result.Sinks = append(result.Sinks, stored...)
	if len(failed) > 0 {
		result.FailedSinks = failed
	}

	s.logger.Info("Backup создан",
		slog.String("backup_id", desc.Header.BackupID),
		slog.Int("archive_count", desc.Header.ArchiveCount),
		slog.Int64("total_size", desc.Header.TotalSize),
		slog.Any("sinks", result.Sinks),
	)
	return result, nil
}

// buildDescriptor формирует снимок из глубоких копий записей хранилища.
func (s *BackupService) buildDescriptor(opts model.BackupOptions) *model.BackupDescriptor {
	records := s.store.Snapshot()

	desc := &model.BackupDescriptor{
		Header: model.BackupHeader{
			BackupID:  uuid.New().String(),
			Timestamp: s.store.Now().UTC(),
		},
		Entries: make([]model.BackupEntry, 0, len(records)),
	}
	for _, rec := range records {
		desc.Entries = append(desc.Entries, model.NewBackupEntry(rec, opts))
		desc.Header.TotalSize += rec.CompressedSize
	}
	desc.Header.ArchiveCount = len(desc.Entries)
	return desc
}

// List возвращает заголовки известных снимков (память и приёмники-источники)
// без дубликатов, новые первыми.
func (s *BackupService) List(ctx context.Context) ([]model.BackupSummary, error) {
	byID := make(map[string]*model.BackupSummary)
	add := func(h model.BackupHeader, sink string) {
		sum, ok := byID[h.BackupID]
		if !ok {
			sum = &model.BackupSummary{BackupHeader: h}
			byID[h.BackupID] = sum
		}
		sum.Sinks = append(sum.Sinks, sink)
	}

	for _, id := range s.recent.Keys() {
		if desc, ok := s.recent.Peek(id); ok {
			add(desc.Header, MemorySinkName)
		}
	}

	for _, sink := range s.sinks {
		src, ok := sink.(BackupSource)
		if !ok {
			continue
		}
		headers, err := src.List(ctx)
		if err != nil {
			s.logger.Warn("Не удалось получить список backup",
				slog.String("sink", sink.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, h := range headers {
			add(h, sink.Name())
		}
	}

	out := make([]model.BackupSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].BackupID < out[j].BackupID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Load возвращает снимок по id: сначала из памяти, затем из приёмников
// в порядке регистрации.
func (s *BackupService) Load(ctx context.Context, backupID string) (*model.BackupDescriptor, error) {
	if desc, ok := s.recent.Get(backupID); ok {
		return desc, nil
	}
	for _, sink := range s.sinks {
		src, ok := sink.(BackupSource)
		if !ok {
			continue
		}
		desc, err := src.Load(ctx, backupID)
		if err == nil {
			return desc, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("Ошибка чтения backup из приёмника",
				slog.String("sink", sink.Name()),
				slog.String("backup_id", backupID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil, fmt.Errorf("%w: %s", model.ErrBackupNotFound, backupID)
}

// Restore повторно архивирует каждую запись снимка. Новые записи получают
// свежие id и время создания. Записи с несовпадающим digest или
// нераспаковываемым содержимым пропускаются и попадают в Failed.
func (s *BackupService) Restore(ctx context.Context, backupID string) (*RestoreResult, error) {
	desc, err := s.Load(ctx, backupID)
	if err != nil {
		return nil, err
	}
	return s.RestoreDescriptor(ctx, desc)
}

// RestoreDescriptor восстанавливает записи из переданного снимка.
func (s *BackupService) RestoreDescriptor(ctx context.Context, desc *model.BackupDescriptor) (*RestoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &RestoreResult{
		BackupID: desc.Header.BackupID,
		Mapping:  make(map[string]string, len(desc.Entries)),
	}

	for _, e := range desc.Entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		newID, err := s.restoreEntry(ctx, e)
		if err != nil {
			restoresTotal.WithLabelValues("error").Inc()
			result.Failed = append(result.Failed, RestoreFailure{
				ID:    e.ID,
				Name:  e.Name,
				Error: err.Error(),
				Code:  model.ErrorCode(err),
			})
			s.logger.Warn("Запись backup не восстановлена",
				slog.String("backup_id", desc.Header.BackupID),
				slog.String("archive_id", e.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		restoresTotal.WithLabelValues("success").Inc()
		result.Mapping[e.ID] = newID
		result.Restored++
	}

	s.logger.Info("Восстановление из backup завершено",
		slog.String("backup_id", desc.Header.BackupID),
		slog.Int("restored", result.Restored),
		slog.Int("failed", len(result.Failed)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *BackupService) restoreEntry(ctx context.Context, e model.BackupEntry) (string, error) {
	if !integrity.Verify(e.Payload, e.Digest) {
		return "", fmt.Errorf("%w: digest записи %s не совпадает", model.ErrIntegrityViolation, e.ID)
	}
	content, err := s.pool.Decompress(ctx, e.Payload)
	if err != nil {
		return "", err
	}

	doc := model.Document{
		Name:      e.Name,
		Content:   content,
		MediaType: e.MediaType,
	}
	if e.Metadata != nil {
		doc.Tags = append([]string(nil), e.Metadata.Tags...)
		doc.Owner = e.Metadata.Owner
		doc.Description = e.Metadata.Description
	}

	res, err := s.store.Ingest(ctx, doc)
	if err != nil {
		return "", err
	}
	return res.Archive.ID, nil
}
