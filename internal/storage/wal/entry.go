// Пакет wal — файловый журнал транзакций записи backup-файлов.
// Каждая транзакция — отдельный файл {tx_id}.wal.json в DA_WAL_DIR.
// Запись со статусом pending после рестарта означает, что целевой
// файл мог остаться недописанным.
package wal

import (
	"time"
)

// OperationType — тип операции, записываемой в журнал.
type OperationType string

const (
	// OpBackupWrite — запись нового backup-файла
	OpBackupWrite OperationType = "backup_write"
	// OpBackupDelete — удаление backup-файла
	OpBackupDelete OperationType = "backup_delete"
)

// TransactionStatus — статус транзакции.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusCommitted  TransactionStatus = "committed"
	StatusRolledBack TransactionStatus = "rolled_back"
)

// Entry — запись журнала.
type Entry struct {
	TransactionID string            `json:"transaction_id"`
	Operation     OperationType     `json:"operation"`
	Status        TransactionStatus `json:"status"`

	// BackupID — идентификатор backup, над которым выполняется операция
	BackupID string `json:"backup_id"`
	// Path — целевой файл операции
	Path string `json:"path"`

	StartedAt time.Time `json:"started_at"`
	// CompletedAt — nil для pending транзакций
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Reason — причина отката
	Reason string `json:"reason,omitempty"`
}

// Finished сообщает, завершена ли транзакция (commit или rollback).
func (e *Entry) Finished() bool {
	return e.Status == StatusCommitted || e.Status == StatusRolledBack
}

const fileSuffix = ".wal.json"

func fileName(txID string) string {
	return txID + fileSuffix
}
