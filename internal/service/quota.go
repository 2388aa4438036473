// quota.go — учёт использования: счётчик успешных загрузок пользователя.
package service

import (
	"context"
	"log/slog"

	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// QuotaAccountant увеличивает счётчик загрузок пользователя.
type QuotaAccountant struct {
	users  repository.UserStore
	cache  auth.SessionCache
	logger *slog.Logger
}

// NewQuotaAccountant создаёт QuotaAccountant. cache может быть nil.
func NewQuotaAccountant(users repository.UserStore, cache auth.SessionCache, logger *slog.Logger) *QuotaAccountant {
	return &QuotaAccountant{
		users:  users,
		cache:  cache,
		logger: logger.With(slog.String("component", "quota")),
	}
}

// Increment учитывает одну загрузку. Любая ошибка хранилища — DATABASE_ERROR.
func (q *QuotaAccountant) Increment(ctx context.Context, userID string) error {
	if err := q.users.IncrementUsage(ctx, userID); err != nil {
		q.logger.Error("Ошибка учёта загрузки",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return apperror.DatabaseError.Wrap(err)
	}

	// Профиль в кэше содержит устаревший счётчик.
	if q.cache != nil {
		q.cache.DeleteUser(ctx, userID)
	}
	return nil
}
