package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// Principal — аутентифицированный субъект запроса. User не содержит хэша пароля.
type Principal struct {
	Session *model.Session
	User    *model.User
}

// Gate разрешает токен в Principal.
// Подпись и срок токена проверяются до любого обращения к хранилищу.
type Gate struct {
	tokens   *TokenIssuer
	sessions repository.SessionStore
	users    repository.UserStore
	cache    SessionCache
	now      func() time.Time
	logger   *slog.Logger
}

// NewGate создаёт шлюз аутентификации. cache может быть nil.
func NewGate(
	tokens *TokenIssuer,
	sessions repository.SessionStore,
	users repository.UserStore,
	cache SessionCache,
	logger *slog.Logger,
) *Gate {
	return &Gate{
		tokens:   tokens,
		sessions: sessions,
		users:    users,
		cache:    cache,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_gate")),
	}
}

// Authenticate проверяет токен и возвращает Principal.
//
//   - пустой, повреждённый, чужой или просроченный токен → UNAUTHORIZED;
//   - сессия или пользователь не найдены → USER_NOT_FOUND;
//   - сессия неактивна или истекла → SESSION_IS_NOT_ACTIVE;
//   - ошибка хранилища → DATABASE_ERROR.
func (g *Gate) Authenticate(ctx context.Context, token string) (*Principal, error) {
	sessionID, err := g.tokens.Parse(token)
	if err != nil {
		g.logger.Debug("Токен отклонён", slog.String("error", err.Error()))
		return nil, err
	}

	session, err := g.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Valid(g.now()) {
		return nil, apperror.SessionIsNotActive.New()
	}

	user, err := g.loadUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return &Principal{Session: session, User: user}, nil
}

func (g *Gate) loadSession(ctx context.Context, id string) (*model.Session, error) {
	if g.cache != nil {
		if s, ok := g.cache.GetSession(ctx, id); ok {
			return s, nil
		}
	}

	s, err := g.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.UserNotFound.Wrap(err)
		}
		return nil, apperror.DatabaseError.Wrap(err)
	}

	if g.cache != nil {
		g.cache.SetSession(ctx, s)
	}
	return s, nil
}

func (g *Gate) loadUser(ctx context.Context, id string) (*model.User, error) {
	if g.cache != nil {
		if u, ok := g.cache.GetUser(ctx, id); ok {
			return u, nil
		}
	}

	u, err := g.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.UserNotFound.Wrap(err)
		}
		return nil, apperror.DatabaseError.Wrap(err)
	}
	// Хэш пароля не выходит за пределы хранилища: смена пароля читает его заново.
	u.PasswordHash = ""

	if g.cache != nil {
		g.cache.SetUser(ctx, u)
	}
	return u, nil
}
