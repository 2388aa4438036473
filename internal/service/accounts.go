// Пакет service — бизнес-логика SIR: учётные записи и сессии,
// модерация пользователей, конвейер загрузки, журнал аудита
// и фоновые задачи.
//
// accounts.go — регистрация, вход, смена пароля и выход.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/domain/rbac"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// bearerPrefix — префикс токена в ответах регистрации и входа.
const bearerPrefix = "Bearer "

// SignupInput — данные регистрации.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult — токен новой сессии и профиль пользователя.
type AuthResult struct {
	Token   string        `json:"token"`
	Profile model.Profile `json:"profile"`
}

// AccountService — сервис учётных записей и сессий.
type AccountService struct {
	users    repository.UserStore
	sessions repository.SessionStore
	tokens   *auth.TokenIssuer
	hasher   auth.PasswordHasher
	cache    auth.SessionCache
	now      func() time.Time
	logger   *slog.Logger
}

// NewAccountService создаёт сервис учётных записей. cache может быть nil.
func NewAccountService(
	users repository.UserStore,
	sessions repository.SessionStore,
	tokens *auth.TokenIssuer,
	hasher auth.PasswordHasher,
	cache auth.SessionCache,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		cache:    cache,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "account_service")),
	}
}

// Signup создаёт пользователя с ролью USER и его первую сессию.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperror.BadRequest.New()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.InternalServerError.Wrap(err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		Role:         rbac.RoleUser,
		PasswordHash: hash,
	}
	session := s.newSession()

	if err := s.users.CreateWithSession(ctx, user, session); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperror.UserAlreadyExists.Wrap(err)
		}
		return nil, apperror.CanNotActivateUser.Wrap(err)
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return s.result(user, session)
}

// Signin проверяет пароль пользователя, найденного по email или username,
// и открывает новую сессию.
func (s *AccountService) Signin(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.BadRequest.New()
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.UserNotFound.Wrap(err)
		}
		return nil, apperror.DatabaseError.Wrap(err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, apperror.CredentialIncorrect.New()
	}

	session := s.newSession()
	session.UserID = user.ID
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperror.CanNotActivateSession.Wrap(err)
	}

	s.logger.Info("Вход выполнен",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)

	return s.result(user, session)
}

// ChangePassword заменяет пароль текущего пользователя после проверки старого.
func (s *AccountService) ChangePassword(ctx context.Context, p *auth.Principal, current, next string) error {
	if next == "" {
		return apperror.BadRequest.New()
	}
	// Хэш читается из хранилища: принципал и кэш его не содержат.
	user, err := s.users.GetByID(ctx, p.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.UserNotFound.Wrap(err)
		}
		return apperror.DatabaseError.Wrap(err)
	}
	if !s.hasher.Compare(user.PasswordHash, current) {
		return apperror.CredentialIncorrect.New()
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperror.InternalServerError.Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, p.User.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.UserNotFound.Wrap(err)
		}
		return apperror.DatabaseError.Wrap(err)
	}

	if s.cache != nil {
		s.cache.DeleteUser(ctx, p.User.ID)
	}

	s.logger.Info("Пароль изменён", slog.String("user_id", p.User.ID))
	return nil
}

// Signout удаляет текущую сессию.
func (s *AccountService) Signout(ctx context.Context, p *auth.Principal) error {
	if err := s.sessions.Delete(ctx, p.Session.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.SessionIsNotActive.Wrap(err)
		}
		return apperror.DatabaseError.Wrap(err)
	}

	if s.cache != nil {
		s.cache.DeleteSession(ctx, p.Session.ID)
	}

	s.logger.Info("Выход выполнен",
		slog.String("user_id", p.User.ID),
		slog.String("session_id", p.Session.ID),
	)
	return nil
}

func (s *AccountService) newSession() *model.Session {
	return &model.Session{
		Active:    true,
		ExpiresAt: s.now().Add(s.tokens.TTL()),
	}
}

func (s *AccountService) result(user *model.User, session *model.Session) (*AuthResult, error) {
	token, err := s.tokens.Issue(session.ID)
	if err != nil {
		return nil, apperror.CanNotActivateSession.Wrap(err)
	}
	return &AuthResult{
		Token:   bearerPrefix + token,
		Profile: user.Profile(),
	}, nil
}
