// Пакет auth — аутентификация по сессионным токенам:
// выпуск и проверка HS256 JWT, хэширование паролей, кэш сессий
// и шлюз, разрешающий токен в пару {сессия, пользователь}.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
)

// sessionClaims — claims токена. id — идентификатор сессии.
type sessionClaims struct {
	jwt.RegisteredClaims
	ID string `json:"id"`
}

// TokenIssuer выпускает и проверяет токены сессий.
// Секрет и срок жизни выбираются уровнем развёртывания при старте.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer создаёт TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL возвращает срок жизни токена. Сессии создаются с тем же сроком.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue подписывает токен для сессии.
func (t *TokenIssuer) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		ID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия токена и возвращает ID сессии.
// Любая ошибка проверки — UNAUTHORIZED.
func (t *TokenIssuer) Parse(token string) (string, error) {
	if token == "" {
		return "", apperror.Unauthorized.New()
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", apperror.Unauthorized.Wrap(err)
	}
	if !parsed.Valid || claims.ID == "" {
		return "", apperror.Unauthorized.Wrap(errors.New("в токене отсутствует id сессии"))
	}
	return claims.ID, nil
}

// ExtractBearer извлекает токен из заголовка Authorization.
// Возвращает пустую строку, если заголовок отсутствует или имеет другую схему.
func ExtractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
