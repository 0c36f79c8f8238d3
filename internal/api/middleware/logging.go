// logging.go — middleware логирования входящих HTTP-запросов через slog.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseWriter перехватывает статус-код и размер ответа.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

type actorSlotKey struct{}

// actorSlot заполняется внутренними middleware (JWT) и читается
// RequestLogger после обработки запроса.
type actorSlot struct {
	subject string
}

func recordActor(ctx context.Context, subject string) {
	if slot, ok := ctx.Value(actorSlotKey{}).(*actorSlot); ok {
		slot.subject = subject
	}
}

// RequestLogger логирует каждый запрос: метод, путь, статус, длительность,
// размер ответа, remote_addr и actor (если есть). Уровень зависит от
// статуса: INFO (1xx-3xx), WARN (4xx), ERROR (5xx).
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)
			slot := &actorSlot{}

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), actorSlotKey{}, slot)))

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if slot.subject != "" {
				attrs = append(attrs, slog.String("actor", slot.subject))
			}
			logger.LogAttrs(r.Context(), level, "HTTP запрос", attrs...)
		})
	}
}
