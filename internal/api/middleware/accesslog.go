// accesslog.go — middleware журнала доступа. Самый внешний слой:
// видит итоговый статус любого запроса, включая ответы sink'а.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// Recorder принимает записи журнала доступа. Реализуется accesslog.Recorder.
type Recorder interface {
	Record(e *model.AccessLogEntry)
}

// requestInfo — изменяемые сведения о запросе, заполняемые внутренними
// middleware (контекст передаётся только внутрь).
type requestInfo struct {
	mu     sync.Mutex
	userID string
}

type requestInfoKey struct{}

// setRequestUser запоминает пользователя запроса для журнала доступа.
func setRequestUser(ctx context.Context, userID string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.mu.Lock()
		info.userID = userID
		info.mu.Unlock()
	}
}

// AccessLog возвращает middleware, записывающий каждый завершённый запрос.
// Запросы к путям с префиксами excludePrefixes не журналируются.
func AccessLog(rec Recorder, excludePrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := time.Now()
			info := &requestInfo{}
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

			end := time.Now()
			entry := &model.AccessLogEntry{
				IP:             clientIP(r.RemoteAddr),
				Timestamp:      end,
				Method:         r.Method,
				Route:          r.URL.RequestURI(),
				StatusCode:     wrapped.status,
				UserAgent:      r.UserAgent(),
				ResponseTimeMs: float64(end.Sub(start).Microseconds()) / 1000,
				Tag:            model.TagForStatus(wrapped.status),
			}

			info.mu.Lock()
			if info.userID != "" {
				id := info.userID
				entry.UserID = &id
			}
			info.mu.Unlock()

			rec.Record(entry)
		})
	}
}

// clientIP отбрасывает порт из RemoteAddr.
// За доверенным прокси RemoteAddr заранее заменяется chi RealIP.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
