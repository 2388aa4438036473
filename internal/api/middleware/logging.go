package middleware

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
)

// RequestLogger пишет по одной записи slog на запрос после его завершения.
// В запись попадают шаблон маршрута chi и тег запроса, чтобы записи
// группировались по ручке, а не по конкретному пути.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", routePattern(r)),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.status),
				slog.Int64("bytes", rw.size),
				slog.Duration("duration", time.Since(start)),
			}
			if tag, ok := apierrors.TagFromContext(r.Context()); ok {
				attrs = append(attrs, slog.String("tag", tag))
			}
			logger.LogAttrs(r.Context(), levelForStatus(rw.status), "Запрос обработан", attrs...)
		})
	}
}

// levelForStatus: 5xx — ошибка сервера, 4xx — предупреждение.
func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
