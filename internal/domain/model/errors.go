// errors.go — типизированные ошибки архива.
// Все ошибки возвращаются вызывающему коду как есть, без повторов:
// политика retry (если нужна) — на стороне клиента.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDocument — отсутствует имя или пустое содержимое.
	ErrInvalidDocument = errors.New("некорректный документ")
	// ErrNotFound — архив с указанным id не найден.
	ErrNotFound = errors.New("архив не найден")
	// ErrCorruptPayload — сохранённые байты не удаётся распаковать.
	ErrCorruptPayload = errors.New("повреждённое содержимое")
	// ErrIntegrityViolation — содержимое не совпадает с сохранённым digest.
	ErrIntegrityViolation = errors.New("нарушение целостности")
	// ErrStorageExhausted — достигнут лимит хранилища.
	ErrStorageExhausted = errors.New("хранилище заполнено")
	// ErrBackupNotFound — backup с указанным id не найден ни в одном приёмнике.
	ErrBackupNotFound = fmt.Errorf("backup: %w", ErrNotFound)
)

// Машиночитаемые коды ошибок.
const (
	CodeInvalidDocument    = "INVALID_DOCUMENT"
	CodeNotFound           = "NOT_FOUND"
	CodeCorruptPayload     = "CORRUPT_PAYLOAD"
	CodeIntegrityViolation = "INTEGRITY_VIOLATION"
	CodeStorageExhausted   = "STORAGE_EXHAUSTED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ErrorCode возвращает машиночитаемый код для ошибки архива.
// Неизвестные ошибки — INTERNAL_ERROR.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDocument):
		return CodeInvalidDocument
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrIntegrityViolation):
		return CodeIntegrityViolation
	case errors.Is(err, ErrCorruptPayload):
		return CodeCorruptPayload
	case errors.Is(err, ErrStorageExhausted):
		return CodeStorageExhausted
	default:
		return CodeInternalError
	}
}
