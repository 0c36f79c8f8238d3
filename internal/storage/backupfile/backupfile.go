// Пакет backupfile — файловый приёмник backup.
// Каждый снимок хранится как {backup_id}.backup.json в DA_BACKUP_DIR.
// Запись идёт внутри WAL-транзакции: при рестарте pending-транзакции
// откатываются, а недописанные файлы удаляются.
package backupfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/storage/atomicfile"
	"github.com/bigkaa/docarchive/internal/storage/wal"
)

// Suffix — суффикс файла backup.
const Suffix = ".backup.json"

// SinkName — имя приёмника в метриках и ответах API.
const SinkName = "file"

// Store — каталог backup-файлов.
type Store struct {
	dir    string
	wal    *wal.WAL
	logger *slog.Logger
}

// New открывает каталог dir, создавая его при необходимости.
func New(dir string, w *wal.WAL, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию backup %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		wal:    w,
		logger: logger.With(slog.String("component", "backup_file")),
	}, nil
}

// Name возвращает имя приёмника.
func (s *Store) Name() string { return SinkName }

// Dir возвращает путь к каталогу backup.
func (s *Store) Dir() string { return s.dir }

// Path возвращает путь к файлу backup.
func (s *Store) Path(backupID string) string {
	return filepath.Join(s.dir, backupID+Suffix)
}

// Recover откатывает незавершённые транзакции журнала. Для прерванной
// записи недописанный файл удаляется, для прерванного удаления файл
// удаляется повторно. Возвращает число откатанных транзакций.
func (s *Store) Recover() (int, error) {
	pending, err := s.wal.Pending()
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения WAL: %w", err)
	}

	recovered := 0
	for _, e := range pending {
		if err := atomicfile.Remove(e.Path); err != nil {
			s.logger.Error("Не удалось удалить файл прерванной транзакции",
				slog.String("tx_id", e.TransactionID),
				slog.String("path", e.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.wal.Rollback(e.TransactionID, "прервано при рестарте"); err != nil {
			s.logger.Error("Не удалось откатить транзакцию",
				slog.String("tx_id", e.TransactionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		recovered++
		s.logger.Warn("Незавершённая транзакция backup откачена",
			slog.String("tx_id", e.TransactionID),
			slog.String("operation", string(e.Operation)),
			slog.String("backup_id", e.BackupID),
		)
	}

	if _, err := s.wal.Clean(); err != nil {
		s.logger.Warn("Очистка WAL не выполнена", slog.String("error", err.Error()))
	}
	return recovered, nil
}

// Save атомарно записывает backup в каталог.
func (s *Store) Save(ctx context.Context, desc *model.BackupDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := desc.Header.BackupID
	if err := validateID(id); err != nil {
		return err
	}

	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("ошибка сериализации backup: %w", err)
	}

	path := s.Path(id)
	tx, err := s.wal.Begin(wal.OpBackupWrite, id, path)
	if err != nil {
		return err
	}

	if err := atomicfile.Write(path, data); err != nil {
		_ = atomicfile.Remove(path)
		if rbErr := s.wal.Rollback(tx.TransactionID, err.Error()); rbErr != nil {
			s.logger.Error("Ошибка отката WAL", slog.String("error", rbErr.Error()))
		}
		return fmt.Errorf("ошибка записи backup %s: %w", id, err)
	}

	if err := s.wal.Commit(tx.TransactionID); err != nil {
		return err
	}

	s.logger.Info("Backup сохранён",
		slog.String("backup_id", id),
		slog.Int("archive_count", desc.Header.ArchiveCount),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// Load читает backup по идентификатору.
func (s *Store) Load(ctx context.Context, backupID string) (*model.BackupDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(backupID); err != nil {
		return nil, err
	}
	desc, err := readFile(s.Path(backupID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", model.ErrBackupNotFound, backupID)
	}
	return desc, err
}

// List возвращает заголовки всех backup, новые первыми.
// Нечитаемые файлы пропускаются с предупреждением.
func (s *Store) List(ctx context.Context) ([]model.BackupHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+Suffix))
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования директории %s: %w", s.dir, err)
	}

	headers := make([]model.BackupHeader, 0, len(paths))
	for _, path := range paths {
		desc, err := readFile(path)
		if err != nil {
			s.logger.Warn("Пропущен нечитаемый backup",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		headers = append(headers, desc.Header)
	}
	sort.Slice(headers, func(i, j int) bool {
		return headers[i].Timestamp.After(headers[j].Timestamp)
	})
	return headers, nil
}

// Delete удаляет backup-файл внутри WAL-транзакции.
func (s *Store) Delete(ctx context.Context, backupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(backupID); err != nil {
		return err
	}
	path := s.Path(backupID)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", model.ErrBackupNotFound, backupID)
	}

	tx, err := s.wal.Begin(wal.OpBackupDelete, backupID, path)
	if err != nil {
		return err
	}
	if err := atomicfile.Remove(path); err != nil {
		_ = s.wal.Rollback(tx.TransactionID, err.Error())
		return err
	}
	return s.wal.Commit(tx.TransactionID)
}

// CheckWritable проверяет, что каталог доступен на запись.
func (s *Store) CheckWritable() error {
	probe := filepath.Join(s.dir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o640); err != nil {
		return fmt.Errorf("директория backup %s недоступна для записи: %w", s.dir, err)
	}
	return os.Remove(probe)
}

func readFile(path string) (*model.BackupDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	var desc model.BackupDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("ошибка десериализации %s: %w", path, err)
	}
	return &desc, nil
}

// validateID не допускает в имени файла ничего, кроме UUID.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: некорректный id backup %q", model.ErrBackupNotFound, id)
	}
	return nil
}
