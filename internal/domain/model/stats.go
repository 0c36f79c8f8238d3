package model

import "time"

// CompressionInfo — сведения о сжатии, возвращаемые при архивации.
type CompressionInfo struct {
	OriginalSize   int64   `json:"original_size"`
	CompressedSize int64   `json:"compressed_size"`
	Ratio          float64 `json:"ratio"`
	// Saved — сэкономленные байты, может быть отрицательным
	Saved  int64  `json:"saved"`
	Level  int    `json:"level"`
	Method string `json:"method"`
}

// CategoryStats — агрегаты по категории.
type CategoryStats struct {
	Count          int   `json:"count"`
	OriginalSize   int64 `json:"original_size"`
	CompressedSize int64 `json:"compressed_size"`
}

// Stats — агрегированная статистика хранилища.
type Stats struct {
	TotalArchives           int                      `json:"total_archives"`
	TotalOriginalSize       int64                    `json:"total_original_size"`
	TotalCompressedSize     int64                    `json:"total_compressed_size"`
	SpaceSaved              int64                    `json:"space_saved"`
	AverageCompressionRatio float64                  `json:"average_compression_ratio"`
	TotalAccesses           int                      `json:"total_accesses"`
	TotalIntegrityChecks    int                      `json:"total_integrity_checks"`
	ByCategory              map[string]CategoryStats `json:"by_category"`
	ByPriority              map[Priority]int         `json:"by_priority"`
	RecentActivity          []Activity               `json:"recent_activity"`
	GeneratedAt             time.Time                `json:"generated_at"`
}
