// Пакет errors — ответы с ошибками в едином формате API архива:
// {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError или FromDomain.
package errors //nolint:revive // имя пакета совпадает со stdlib

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

// Коды ошибок транспортного уровня. Доменные коды — в model.Code*.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeBodyTooLarge      = "BODY_TOO_LARGE"
	CodeServiceBusy       = "SERVICE_BUSY"
	CodeOperationConflict = "OPERATION_IN_PROGRESS"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки.
// statusCode: HTTP статус-код, code: машиночитаемый код, message: описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// StatusFor возвращает HTTP-статус для доменной ошибки.
func StatusFor(err error) int {
	switch model.ErrorCode(err) {
	case model.CodeInvalidDocument:
		return http.StatusBadRequest
	case model.CodeNotFound:
		return http.StatusNotFound
	case model.CodeCorruptPayload:
		return http.StatusUnprocessableEntity
	case model.CodeIntegrityViolation:
		return http.StatusConflict
	case model.CodeStorageExhausted:
		return http.StatusInsufficientStorage
	}
	if isTimeout(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// FromDomain записывает ответ для доменной ошибки с кодом model.ErrorCode.
// Детали внутренних ошибок клиенту не раскрываются.
func FromDomain(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusServiceUnavailable:
		WriteError(w, status, CodeServiceBusy, "сервис перегружен, повторите запрос позже")
	case http.StatusInternalServerError:
		InternalError(w, "внутренняя ошибка сервера")
	default:
		WriteError(w, status, model.ErrorCode(err), err.Error())
	}
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, model.CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// BodyTooLarge — 413 тело запроса превышает лимит.
func BodyTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, message)
}

// OperationInProgress — 409 фоновая операция уже выполняется.
func OperationInProgress(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeOperationConflict, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, model.CodeInternalError, message)
}

func isTimeout(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded)
}
