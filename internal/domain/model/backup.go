package model

import "time"

// BackupEntry — экспортированная запись архива в составе backup.
// Metadata и AccessLog заполняются только при соответствующих опциях снимка.
type BackupEntry struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	MediaType      string         `json:"media_type,omitempty"`
	Digest         string         `json:"digest"`
	OriginalSize   int64          `json:"original_size"`
	CompressedSize int64          `json:"compressed_size"`
	Category       string         `json:"category"`
	Classification Classification `json:"classification"`
	// Payload — сжатое содержимое (в JSON кодируется base64)
	Payload   []byte        `json:"payload"`
	Metadata  *Metadata     `json:"metadata,omitempty"`
	AccessLog []AccessEntry `json:"access_log,omitempty"`
}

// BackupHeader — заголовок backup.
type BackupHeader struct {
	BackupID     string    `json:"backup_id"`
	Timestamp    time.Time `json:"timestamp"`
	ArchiveCount int       `json:"archive_count"`
	// TotalSize — сумма compressed_size всех записей
	TotalSize int64 `json:"total_size"`
}

// BackupDescriptor — самодостаточный снимок хранилища на момент времени.
type BackupDescriptor struct {
	Header  BackupHeader  `json:"header"`
	Entries []BackupEntry `json:"entries"`
}

// BackupOptions — что включать в снимок помимо обязательных полей.
type BackupOptions struct {
	IncludeMetadata  bool `json:"include_metadata"`
	IncludeAccessLog bool `json:"include_access_log"`
}

// NewBackupEntry формирует запись backup из записи архива.
// Срезы копируются: последующие изменения rec не влияют на результат.
func NewBackupEntry(rec *Archive, opts BackupOptions) BackupEntry {
	e := BackupEntry{
		ID:             rec.ID,
		Name:           rec.Name,
		MediaType:      rec.MediaType,
		Digest:         rec.Digest,
		OriginalSize:   rec.OriginalSize,
		CompressedSize: rec.CompressedSize,
		Category:       rec.Classification.Category,
		Classification: rec.Classification,
		Payload:        append([]byte(nil), rec.Payload...),
	}
	if opts.IncludeMetadata {
		md := rec.Metadata
		md.Tags = append([]string(nil), rec.Metadata.Tags...)
		if rec.Metadata.LastAccessedAt != nil {
			t := *rec.Metadata.LastAccessedAt
			md.LastAccessedAt = &t
		}
		e.Metadata = &md
	}
	if opts.IncludeAccessLog {
		e.AccessLog = append([]AccessEntry{}, rec.AccessLog...)
	}
	return e
}

// BackupSummary — краткая сводка о backup для списков.
type BackupSummary struct {
	BackupHeader
	// Sinks — приёмники, успешно сохранившие backup
	Sinks []string `json:"sinks,omitempty"`
}
