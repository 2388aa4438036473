package middleware

import (
	"net/http"

	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
)

// Tag сохраняет в контексте тег запроса — последний сегмент пути.
// Тег попадает в логи ошибок.
func Tag() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := apierrors.WithTag(r.Context(), apierrors.RequestTag(r.URL.Path))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
