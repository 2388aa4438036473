// auth.go — middleware аутентификации по токену сессии и проверки роли.
// Токен передаётся в заголовке Authorization: Bearer <token>.
package middleware

import (
	"context"
	"net/http"

	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/rbac"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyPrincipal — аутентифицированный субъект в контексте запроса.
	ContextKeyPrincipal contextKey = "principal"
)

// Authenticator разрешает токен в Principal. Реализуется auth.Gate.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// Authenticate возвращает middleware, пропускающий только запросы
// с действующей сессией. Principal сохраняется в контексте и передаётся
// журналу доступа.
func Authenticate(gate Authenticator, sink *apierrors.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractBearer(r.Header.Get("Authorization"))
			if token == "" {
				sink.Handle(w, r, apperror.Unauthorized.New())
				return
			}

			p, err := gate.Authenticate(r.Context(), token)
			if err != nil {
				sink.Handle(w, r, err)
				return
			}

			setRequestUser(r.Context(), p.User.ID)
			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole возвращает middleware, требующий роль не ниже minRole.
// Должен применяться после Authenticate.
func RequireRole(minRole string, sink *apierrors.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				sink.Handle(w, r, apperror.Unauthorized.New())
				return
			}
			if err := rbac.Authorize(p.User.Role, minRole); err != nil {
				sink.Handle(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext извлекает Principal из контекста запроса.
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(*auth.Principal)
	return p, ok && p != nil
}

// WithPrincipal возвращает контекст с Principal. Используется в тестах обработчиков.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}
