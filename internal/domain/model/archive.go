// Пакет model — доменные модели архива документов.
// Archive — единая структура записи архива: in-memory представление
// в хранилище и источник для проекций API и экспорта в backup.
package model

import (
	"math"
	"time"
)

// Priority — приоритет категории таксономии.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Методы сжатия.
const (
	// MethodStore — минимальное усилие для уже сжатого содержимого
	MethodStore = "store"
	// MethodGzip — универсальный кодек
	MethodGzip = "gzip"
)

// Document — входной документ для архивации.
// Обязательно только Name; Content не должен быть пустым для Ingest.
type Document struct {
	Name        string
	Content     []byte
	MediaType   string
	Tags        []string
	Owner       string
	Description string
}

// Classification — результат классификации документа.
// Присваивается один раз при ingest, далее не меняется.
type Classification struct {
	Category      string   `json:"category"`
	Confidence    float64  `json:"confidence"`
	Priority      Priority `json:"priority"`
	Icon          string   `json:"icon"`
	RetentionDays int      `json:"retention_days"`
}

// Version — запись о версии содержимого. Список версий только дополняется.
type Version struct {
	VersionID string    `json:"version_id"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
	Digest    string    `json:"digest"`
}

// AccessEntry — запись журнала доступа к архиву.
type AccessEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
}

// Metadata — пользовательские и служебные метаданные записи.
type Metadata struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Owner       string    `json:"owner,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Description string    `json:"description,omitempty"`
	// LastAccessedAt — время последнего успешного retrieve.
	// nil, если запись ещё не читалась.
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// Archive — запись архива.
type Archive struct {
	// ID — уникальный идентификатор (UUID v4), неизменяемый
	ID string `json:"id"`

	Name      string `json:"name"`
	MediaType string `json:"media_type,omitempty"`

	OriginalSize   int64 `json:"original_size"`
	CompressedSize int64 `json:"compressed_size"`
	// CompressionRatio — процент экономии, может быть отрицательным
	CompressionRatio  float64 `json:"compression_ratio"`
	CompressionMethod string  `json:"compression_method"`
	CompressionLevel  int     `json:"compression_level"`

	// Payload — сжатое содержимое. Принадлежит хранилищу, в API не отдаётся.
	Payload []byte `json:"-"`
	// Digest — SHA-256 (hex) от Payload
	Digest string `json:"digest"`

	Classification Classification `json:"classification"`
	Metadata       Metadata       `json:"metadata"`
	Versions       []Version      `json:"versions"`
	AccessLog      []AccessEntry  `json:"access_log"`

	RetentionPolicy string    `json:"retention_policy"`
	ExpirationDate  time.Time `json:"expiration_date"`

	IntegrityCheckCount int `json:"integrity_check_count"`
}

// Clone возвращает глубокую копию записи: срезы и указатели не разделяются
// с оригиналом.
func (a *Archive) Clone() *Archive {
	c := *a
	c.Payload = append([]byte(nil), a.Payload...)
	c.Metadata.Tags = append([]string(nil), a.Metadata.Tags...)
	if a.Metadata.LastAccessedAt != nil {
		t := *a.Metadata.LastAccessedAt
		c.Metadata.LastAccessedAt = &t
	}
	c.Versions = append([]Version(nil), a.Versions...)
	c.AccessLog = append([]AccessEntry(nil), a.AccessLog...)
	return &c
}

// IsExpired проверяет, что срок хранения истёк строго до now.
func (a *Archive) IsExpired(now time.Time) bool {
	return a.ExpirationDate.Before(now)
}

// RemainingDays возвращает количество полных дней до истечения срока хранения.
// Для истёкших записей — 0.
func (a *Archive) RemainingDays(now time.Time) int {
	left := a.ExpirationDate.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left.Hours() / 24)
}

// Info формирует read-only проекцию записи.
func (a *Archive) Info(now time.Time) *ArchiveInfo {
	return &ArchiveInfo{
		ID:                  a.ID,
		Name:                a.Name,
		MediaType:           a.MediaType,
		OriginalSize:        a.OriginalSize,
		CompressedSize:      a.CompressedSize,
		CompressionRatio:    a.CompressionRatio,
		CompressionMethod:   a.CompressionMethod,
		Digest:              a.Digest,
		Classification:      a.Classification,
		CreatedAt:           a.Metadata.CreatedAt,
		LastAccessedAt:      a.Metadata.LastAccessedAt,
		Owner:               a.Metadata.Owner,
		Tags:                append([]string(nil), a.Metadata.Tags...),
		Description:         a.Metadata.Description,
		RetentionPolicy:     a.RetentionPolicy,
		ExpirationDate:      a.ExpirationDate,
		RemainingDays:       a.RemainingDays(now),
		AccessCount:         len(a.AccessLog),
		VersionCount:        len(a.Versions),
		IntegrityCheckCount: a.IntegrityCheckCount,
	}
}

// ArchiveInfo — проекция записи архива для Info.
type ArchiveInfo struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	MediaType           string         `json:"media_type,omitempty"`
	OriginalSize        int64          `json:"original_size"`
	CompressedSize      int64          `json:"compressed_size"`
	CompressionRatio    float64        `json:"compression_ratio"`
	CompressionMethod   string         `json:"compression_method"`
	Digest              string         `json:"digest"`
	Classification      Classification `json:"classification"`
	CreatedAt           time.Time      `json:"created_at"`
	LastAccessedAt      *time.Time     `json:"last_accessed_at,omitempty"`
	Owner               string         `json:"owner,omitempty"`
	Tags                []string       `json:"tags,omitempty"`
	Description         string         `json:"description,omitempty"`
	RetentionPolicy     string         `json:"retention_policy"`
	ExpirationDate      time.Time      `json:"expiration_date"`
	RemainingDays       int            `json:"remaining_days"`
	AccessCount         int            `json:"access_count"`
	VersionCount        int            `json:"version_count"`
	IntegrityCheckCount int            `json:"integrity_check_count"`
}

// CompressionRatio вычисляет процент экономии с точностью до 2 знаков.
// Для пустого оригинала возвращает 0.
func CompressionRatio(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	ratio := (1 - float64(compressed)/float64(original)) * 100
	return math.Round(ratio*100) / 100
}
