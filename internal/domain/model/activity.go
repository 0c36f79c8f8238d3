package model

import "time"

// ActivityType — тип записи в журнале активности.
type ActivityType string

const (
	ActivityArchiveCreated   ActivityType = "ARCHIVE_CREATED"
	ActivityArchiveAccessed  ActivityType = "ARCHIVE_ACCESSED"
	ActivityArchiveDeleted   ActivityType = "ARCHIVE_DELETED"
	ActivityArchiveVerified  ActivityType = "ARCHIVE_VERIFIED"
	ActivityCleanupCompleted ActivityType = "CLEANUP_COMPLETED"
	ActivityArchiveError     ActivityType = "ARCHIVE_ERROR"
)

// Activity — запись журнала активности (append-only, ограниченного размера).
type Activity struct {
	// Seq — монотонный порядковый номер записи
	Seq       uint64       `json:"seq"`
	Type      ActivityType `json:"type"`
	ArchiveID string       `json:"archive_id,omitempty"`
	Actor     string       `json:"actor,omitempty"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}
