package wal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/docarchive/internal/storage/atomicfile"
)

// WAL — файловый журнал транзакций. Порядок работы: Begin (pending),
// операция над целевым файлом, затем Commit или Rollback.
type WAL struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

// New открывает журнал в dir, создавая директорию и проверяя
// её доступность на запись.
func New(dir string, logger *slog.Logger) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию WAL %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".wal_write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o640); err != nil {
		return nil, fmt.Errorf("директория WAL %s недоступна для записи: %w", dir, err)
	}
	os.Remove(probe)

	return &WAL{
		dir:    dir,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "wal")),
	}, nil
}

// Begin создаёт pending-транзакцию для операции op над backupID.
func (w *WAL) Begin(op OperationType, backupID, path string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := &Entry{
		TransactionID: uuid.New().String(),
		Operation:     op,
		Status:        StatusPending,
		BackupID:      backupID,
		Path:          path,
		StartedAt:     w.now(),
	}
	if err := w.write(entry); err != nil {
		return nil, fmt.Errorf("не удалось создать WAL-запись: %w", err)
	}

	w.logger.Debug("WAL транзакция начата",
		slog.String("tx_id", entry.TransactionID),
		slog.String("operation", string(op)),
		slog.String("backup_id", backupID),
	)
	return entry, nil
}

// Commit завершает транзакцию успешно.
func (w *WAL) Commit(txID string) error {
	entry, err := w.finish(txID, StatusCommitted, "")
	if err != nil {
		return err
	}
	w.logger.Debug("WAL транзакция завершена",
		slog.String("tx_id", txID),
		slog.String("backup_id", entry.BackupID),
		slog.Duration("duration", entry.CompletedAt.Sub(entry.StartedAt)),
	)
	return nil
}

// Rollback отменяет транзакцию с указанием причины.
func (w *WAL) Rollback(txID, reason string) error {
	entry, err := w.finish(txID, StatusRolledBack, reason)
	if err != nil {
		return err
	}
	w.logger.Debug("WAL транзакция отменена",
		slog.String("tx_id", txID),
		slog.String("backup_id", entry.BackupID),
		slog.String("reason", reason),
	)
	return nil
}

func (w *WAL) finish(txID string, status TransactionStatus, reason string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, err := w.read(txID)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать WAL-запись %s: %w", txID, err)
	}
	if entry.Status != StatusPending {
		return nil, fmt.Errorf("WAL-запись %s имеет статус %s, ожидается %s", txID, entry.Status, StatusPending)
	}

	now := w.now()
	entry.Status = status
	entry.CompletedAt = &now
	entry.Reason = reason

	if err := w.write(entry); err != nil {
		return nil, fmt.Errorf("не удалось обновить WAL-запись %s: %w", txID, err)
	}
	return entry, nil
}

// Pending возвращает незавершённые транзакции, упорядоченные по времени начала.
// Нечитаемые записи пропускаются с предупреждением.
func (w *WAL) Pending() ([]*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	all, err := w.scan()
	if err != nil {
		return nil, err
	}

	var pending []*Entry
	for _, e := range all {
		if e.Status != StatusPending {
			continue
		}
		pending = append(pending, e)
		w.logger.Warn("Обнаружена незавершённая WAL-транзакция",
			slog.String("tx_id", e.TransactionID),
			slog.String("operation", string(e.Operation)),
			slog.String("backup_id", e.BackupID),
			slog.Time("started_at", e.StartedAt),
		)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].StartedAt.Before(pending[j].StartedAt)
	})
	return pending, nil
}

// Get читает запись по идентификатору транзакции.
func (w *WAL) Get(txID string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.read(txID)
}

// Clean удаляет завершённые записи и возвращает их количество.
func (w *WAL) Clean() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	all, err := w.scan()
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, e := range all {
		if !e.Finished() {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, fileName(e.TransactionID))); err != nil {
			w.logger.Warn("Не удалось удалить завершённую WAL-запись",
				slog.String("tx_id", e.TransactionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		w.logger.Info("Очистка WAL завершена", slog.Int("cleaned", cleaned))
	}
	return cleaned, nil
}

// Dir возвращает путь к директории журнала.
func (w *WAL) Dir() string {
	return w.dir
}

func (w *WAL) scan() ([]*Entry, error) {
	paths, err := filepath.Glob(filepath.Join(w.dir, "*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("не удалось сканировать директорию WAL: %w", err)
	}

	entries := make([]*Entry, 0, len(paths))
	for _, path := range paths {
		txID := strings.TrimSuffix(filepath.Base(path), fileSuffix)
		e, err := w.read(txID)
		if err != nil {
			w.logger.Warn("Не удалось прочитать WAL-запись",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (w *WAL) write(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}
	return atomicfile.Write(filepath.Join(w.dir, fileName(entry.TransactionID)), data)
}

func (w *WAL) read(txID string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, fileName(txID)))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("ошибка десериализации: %w", err)
	}
	return &entry, nil
}
