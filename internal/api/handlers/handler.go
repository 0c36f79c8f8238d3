// Пакет handlers — HTTP-обработчики API архива документов.
// Каждый обработчик отвечает за свою группу endpoints; маршруты
// и требования к scope задаются в пакете server.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/docarchive/internal/api/errors"
	"github.com/bigkaa/docarchive/internal/api/middleware"
)

// defaultBodyLimit — ограничение тела для запросов без документа.
const defaultBodyLimit = 1 << 20

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON читает тело запроса не больше limit байт.
// Пустое тело допустимо: dst остаётся нулевым. При ошибке ответ уже записан.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			apierrors.BodyTooLarge(w, fmt.Sprintf("тело запроса больше %d байт", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return true
		default:
			apierrors.ValidationError(w, "некорректный JSON: "+err.Error())
		}
		return false
	}
	return true
}

// actorFrom возвращает инициатора операции: субъект JWT, а без
// аутентификации — параметр запроса actor (может быть пустым).
func actorFrom(r *http.Request) string {
	if sub := middleware.SubjectFromContext(r.Context()); sub != "" {
		return sub
	}
	return r.URL.Query().Get("actor")
}

// pathID извлекает и валидирует {id} из пути. При ошибке ответ уже записан.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("некорректный параметр id: %s", err))
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		apierrors.ValidationError(w, "id должен быть UUID")
		return "", false
	}
	return id, true
}

// queryParam привязывает необязательный query-параметр. При ошибке ответ уже записан.
func queryParam(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("некорректный параметр %s: %s", name, err))
		return false
	}
	return true
}
