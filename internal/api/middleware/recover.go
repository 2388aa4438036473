package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
)

// Recover перехватывает панику обработчика и передаёт её значение в sink.
// Если ответ уже начат (например, идёт отдача архива), паника только
// логируется: второй статус и JSON в середине тела недопустимы.
// http.ErrAbortHandler пробрасывается дальше.
func Recover(sink *apierrors.Sink, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "recover"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := newResponseWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if wrapped.started {
					logger.Error("Паника после начала ответа",
						slog.String("path", r.URL.Path),
						slog.Int("status", wrapped.status),
						slog.String("panic", fmt.Sprint(rec)),
					)
					return
				}
				sink.Handle(wrapped, r, rec)
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}
