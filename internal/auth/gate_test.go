package auth

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// --- Моки хранилищ ---

type mockSessionStore struct {
	getByIDFn func(ctx context.Context, id string) (*model.Session, error)
	calls     int
}

func (m *mockSessionStore) Create(context.Context, *model.Session) error { return nil }

func (m *mockSessionStore) GetByID(ctx context.Context, id string) (*model.Session, error) {
	m.calls++
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockSessionStore) Delete(context.Context, string) error { return nil }

func (m *mockSessionStore) DeleteStale(context.Context, time.Time) (int64, error) { return 0, nil }

type mockUserStore struct {
	repository.UserStore
	getByIDFn func(ctx context.Context, id string) (*model.User, error)
	calls     int
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.calls++
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func activeSession(id string) *model.Session {
	return &model.Session{ID: id, UserID: "u1", Active: true, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestGate_Authenticate_Success(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)
	sessions := &mockSessionStore{getByIDFn: func(_ context.Context, id string) (*model.Session, error) {
		return activeSession(id), nil
	}}
	users := &mockUserStore{getByIDFn: func(_ context.Context, id string) (*model.User, error) {
		return &model.User{ID: id, Role: "USER", PasswordHash: "$2a$04$hash"}, nil
	}}
	gate := NewGate(tokens, sessions, users, nil, testLogger())

	token, _ := tokens.Issue("s1")
	p, err := gate.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate() ошибка: %v", err)
	}
	if p.Session.ID != "s1" || p.User.ID != "u1" {
		t.Errorf("Principal = %+v / %+v", p.Session, p.User)
	}
	if p.User.PasswordHash != "" {
		t.Error("принципал содержит хэш пароля")
	}
}

// Отклонённый токен не должен приводить к обращению в хранилище.
func TestGate_Authenticate_BadTokenSkipsStore(t *testing.T) {
	sessions := &mockSessionStore{}
	users := &mockUserStore{}
	gate := NewGate(NewTokenIssuer("secret", time.Hour), sessions, users, nil, testLogger())

	foreign, _ := NewTokenIssuer("other", time.Hour).Issue("s1")
	for _, tok := range []string{"", "garbage", foreign} {
		_, err := gate.Authenticate(context.Background(), tok)
		if !apperror.Unauthorized.Is(err) {
			t.Errorf("Authenticate(%q) = %v, ожидалась UNAUTHORIZED", tok, err)
		}
	}
	if sessions.calls != 0 || users.calls != 0 {
		t.Errorf("обращений к хранилищу: sessions=%d users=%d, ожидается 0", sessions.calls, users.calls)
	}
}

func TestGate_Authenticate_Failures(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)
	token, _ := tokens.Issue("s1")
	dbErr := errors.New("connection reset")

	tests := []struct {
		name     string
		session  func(context.Context, string) (*model.Session, error)
		user     func(context.Context, string) (*model.User, error)
		expected apperror.Definition
	}{
		{
			name:     "сессия не найдена",
			session:  func(context.Context, string) (*model.Session, error) { return nil, repository.ErrNotFound },
			expected: apperror.UserNotFound,
		},
		{
			name: "сессия неактивна",
			session: func(_ context.Context, id string) (*model.Session, error) {
				s := activeSession(id)
				s.Active = false
				return s, nil
			},
			expected: apperror.SessionIsNotActive,
		},
		{
			name: "сессия истекла",
			session: func(_ context.Context, id string) (*model.Session, error) {
				s := activeSession(id)
				s.ExpiresAt = time.Now().Add(-time.Minute)
				return s, nil
			},
			expected: apperror.SessionIsNotActive,
		},
		{
			name: "пользователь удалён",
			session: func(_ context.Context, id string) (*model.Session, error) {
				return activeSession(id), nil
			},
			user:     func(context.Context, string) (*model.User, error) { return nil, repository.ErrNotFound },
			expected: apperror.UserNotFound,
		},
		{
			name:     "ошибка хранилища",
			session:  func(context.Context, string) (*model.Session, error) { return nil, dbErr },
			expected: apperror.DatabaseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tokens,
				&mockSessionStore{getByIDFn: tt.session},
				&mockUserStore{getByIDFn: tt.user},
				nil, testLogger())

			_, err := gate.Authenticate(context.Background(), token)
			if !tt.expected.Is(err) {
				t.Errorf("Authenticate() = %v, ожидалась %s", err, tt.expected.Name)
			}
		})
	}
}

// Кэш не продлевает сессию: истёкшая запись в кэше отклоняется.
func TestGate_Authenticate_CachedSessionRechecked(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)
	cache := NewLRUCache(10, time.Minute)
	sessions := &mockSessionStore{}
	users := &mockUserStore{getByIDFn: func(_ context.Context, id string) (*model.User, error) {
		return &model.User{ID: id}, nil
	}}
	gate := NewGate(tokens, sessions, users, cache, testLogger())

	ctx := context.Background()
	cache.SetSession(ctx, &model.Session{ID: "s1", UserID: "u1", Active: true, ExpiresAt: time.Now().Add(time.Hour)})

	token, _ := tokens.Issue("s1")
	if _, err := gate.Authenticate(ctx, token); err != nil {
		t.Fatalf("Authenticate() ошибка: %v", err)
	}
	if sessions.calls != 0 {
		t.Errorf("при попадании в кэш хранилище сессий вызвано %d раз", sessions.calls)
	}

	// Повторный запрос пользователя берётся из кэша
	if _, err := gate.Authenticate(ctx, token); err != nil {
		t.Fatalf("повторный Authenticate() ошибка: %v", err)
	}
	if users.calls != 1 {
		t.Errorf("хранилище пользователей вызвано %d раз, ожидается 1", users.calls)
	}

	gate.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := gate.Authenticate(ctx, token); !apperror.SessionIsNotActive.Is(err) {
		t.Errorf("истёкшая кэшированная сессия: %v, ожидалась SESSION_IS_NOT_ACTIVE", err)
	}
}
