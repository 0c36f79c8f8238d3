package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

// CatalogSinkName — имя приёмника в метриках и ответах API.
const CatalogSinkName = "postgresql"

// BackupCatalog — PostgreSQL-приёмник backup (таблицы backups, backup_entries).
type BackupCatalog struct {
	db     DBTX
	tx     *TxRunner
	logger *slog.Logger
}

// NewBackupCatalog создаёт каталог. db используется для чтения,
// tx — для атомарной записи снимка.
func NewBackupCatalog(db DBTX, tx *TxRunner, logger *slog.Logger) *BackupCatalog {
	return &BackupCatalog{
		db:     db,
		tx:     tx,
		logger: logger.With(slog.String("component", "backup_catalog")),
	}
}

// Name возвращает имя приёмника.
func (c *BackupCatalog) Name() string { return CatalogSinkName }

// Save сохраняет заголовок и все записи снимка одной транзакцией.
func (c *BackupCatalog) Save(ctx context.Context, desc *model.BackupDescriptor) error {
	backupID, err := parseUUID(desc.Header.BackupID)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(desc.Entries))
	for i, e := range desc.Entries {
		archiveID, err := parseUUID(e.ID)
		if err != nil {
			return err
		}
		classification, err := json.Marshal(e.Classification)
		if err != nil {
			return fmt.Errorf("ошибка сериализации classification: %w", err)
		}
		metadata, err := marshalOptional(e.Metadata)
		if err != nil {
			return fmt.Errorf("ошибка сериализации metadata: %w", err)
		}
		var accessLog []byte
		if e.AccessLog != nil {
			if accessLog, err = json.Marshal(e.AccessLog); err != nil {
				return fmt.Errorf("ошибка сериализации access_log: %w", err)
			}
		}
		rows = append(rows, []any{
			backupID, int32(i), archiveID, e.Name, e.MediaType, e.Digest,
			e.OriginalSize, e.CompressedSize, e.Category,
			classification, e.Payload, metadata, accessLog,
		})
	}

	err = c.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO backups (backup_id, created_at, archive_count, total_size)
			VALUES ($1, $2, $3, $4)`,
			backupID, desc.Header.Timestamp, desc.Header.ArchiveCount, desc.Header.TotalSize,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: backup %s", ErrConflict, desc.Header.BackupID)
			}
			return fmt.Errorf("ошибка вставки backup: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"backup_entries"},
			[]string{
				"backup_id", "position", "archive_id", "name", "media_type", "digest",
				"original_size", "compressed_size", "category",
				"classification", "payload", "metadata", "access_log",
			},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("ошибка вставки записей backup: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("Backup сохранён в каталог",
		slog.String("backup_id", desc.Header.BackupID),
		slog.Int("archive_count", len(desc.Entries)),
	)
	return nil
}

// Load читает снимок целиком.
func (c *BackupCatalog) Load(ctx context.Context, backupID string) (*model.BackupDescriptor, error) {
	desc := &model.BackupDescriptor{}
	h := &desc.Header
	err := c.db.QueryRow(ctx, `
		SELECT backup_id::text, created_at, archive_count, total_size
		FROM backups
		WHERE backup_id::text = $1`, backupID,
	).Scan(&h.BackupID, &h.Timestamp, &h.ArchiveCount, &h.TotalSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrBackupNotFound, backupID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения backup %s: %w", backupID, err)
	}
	h.Timestamp = h.Timestamp.UTC()

	rows, err := c.db.Query(ctx, `
		SELECT archive_id::text, name, media_type, digest, original_size, compressed_size,
		       category, classification, payload, metadata, access_log
		FROM backup_entries
		WHERE backup_id::text = $1
		ORDER BY position`, h.BackupID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей backup %s: %w", backupID, err)
	}
	defer rows.Close()

	desc.Entries = make([]model.BackupEntry, 0, h.ArchiveCount)
	for rows.Next() {
		var (
			e                                   model.BackupEntry
			classification, metadata, accessLog []byte
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.MediaType, &e.Digest, &e.OriginalSize, &e.CompressedSize,
			&e.Category, &classification, &e.Payload, &metadata, &accessLog); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи backup: %w", err)
		}
		if err := json.Unmarshal(classification, &e.Classification); err != nil {
			return nil, fmt.Errorf("ошибка десериализации classification: %w", err)
		}
		if metadata != nil {
			e.Metadata = &model.Metadata{}
			if err := json.Unmarshal(metadata, e.Metadata); err != nil {
				return nil, fmt.Errorf("ошибка десериализации metadata: %w", err)
			}
		}
		if accessLog != nil {
			if err := json.Unmarshal(accessLog, &e.AccessLog); err != nil {
				return nil, fmt.Errorf("ошибка десериализации access_log: %w", err)
			}
		}
		desc.Entries = append(desc.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации записей backup: %w", err)
	}
	return desc, nil
}

// List возвращает заголовки снимков, новые первыми.
func (c *BackupCatalog) List(ctx context.Context) ([]model.BackupHeader, error) {
	rows, err := c.db.Query(ctx, `
		SELECT backup_id::text, created_at, archive_count, total_size
		FROM backups
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка backup: %w", err)
	}
	defer rows.Close()

	var headers []model.BackupHeader
	for rows.Next() {
		var h model.BackupHeader
		if err := rows.Scan(&h.BackupID, &h.Timestamp, &h.ArchiveCount, &h.TotalSize); err != nil {
			return nil, fmt.Errorf("ошибка чтения backup: %w", err)
		}
		h.Timestamp = h.Timestamp.UTC()
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// Delete удаляет снимок вместе с записями.
func (c *BackupCatalog) Delete(ctx context.Context, backupID string) error {
	tag, err := c.db.Exec(ctx, `DELETE FROM backups WHERE backup_id::text = $1`, backupID)
	if err != nil {
		return fmt.Errorf("ошибка удаления backup %s: %w", backupID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrBackupNotFound, backupID)
	}
	return nil
}

func parseUUID(s string) (pgtype.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("некорректный UUID %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func marshalOptional(md *model.Metadata) ([]byte, error) {
	if md == nil {
		return nil, nil
	}
	return json.Marshal(md)
}
