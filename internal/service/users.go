// users.go — модерация: списки пользователей и администраторов,
// назначение и снятие роли администратора.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/domain/rbac"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// UserService — сервис модерации учётных записей.
type UserService struct {
	users  repository.UserStore
	cache  auth.SessionCache
	logger *slog.Logger
}

// NewUserService создаёт сервис модерации. cache может быть nil.
func NewUserService(users repository.UserStore, cache auth.SessionCache, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		cache:  cache,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// ListConsumers возвращает пользователей с ролью USER.
func (s *UserService) ListConsumers(ctx context.Context, filter model.UserFilter) ([]model.Profile, error) {
	filter.Role = rbac.RoleUser
	return s.list(ctx, filter)
}

// ListAdmins возвращает пользователей с ролью ADMIN.
func (s *UserService) ListAdmins(ctx context.Context, filter model.UserFilter) ([]model.Profile, error) {
	filter.Role = rbac.RoleAdmin
	return s.list(ctx, filter)
}

func (s *UserService) list(ctx context.Context, filter model.UserFilter) ([]model.Profile, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperror.DatabaseError.Wrap(err)
	}
	if len(users) == 0 {
		return nil, apperror.UserNotFound.New()
	}

	profiles := make([]model.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// Verify назначает пользователю роль ADMIN и отмечает его подтверждённым.
func (s *UserService) Verify(ctx context.Context, id string) error {
	return s.setRole(ctx, id, rbac.RoleAdmin, true)
}

// Remove возвращает пользователю роль USER и снимает подтверждение.
func (s *UserService) Remove(ctx context.Context, id string) error {
	return s.setRole(ctx, id, rbac.RoleUser, false)
}

// setRole меняет роль. Роль владельца этим путём не меняется.
func (s *UserService) setRole(ctx context.Context, id, role string, verified bool) error {
	if id == "" {
		return apperror.BadRequest.New()
	}

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.UserNotFound.Wrap(err)
		}
		return apperror.DatabaseError.Wrap(err)
	}
	if target.Role == rbac.RoleOwner {
		return apperror.ForbiddenUpdate.New()
	}

	if err := s.users.SetRole(ctx, id, role, verified); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.UserNotFound.Wrap(err)
		}
		return apperror.DatabaseError.Wrap(err)
	}

	if s.cache != nil {
		s.cache.DeleteUser(ctx, id)
	}

	s.logger.Info("Роль пользователя изменена",
		slog.String("user_id", id),
		slog.String("role", role),
		slog.Bool("verified", verified),
	)
	return nil
}
