package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/repository"
)

// --- Моки хранилищ ---

// mockUserStore — мок UserStore для unit-тестов.
type mockUserStore struct {
	createWithSessionFn func(ctx context.Context, u *model.User, s *model.Session) error
	getByIDFn           func(ctx context.Context, id string) (*model.User, error)
	getByIdentifierFn   func(ctx context.Context, identifier string) (*model.User, error)
	updatePasswordFn    func(ctx context.Context, id, hash string) error
	setRoleFn           func(ctx context.Context, id, role string, verified bool) error
	incrementUsageFn    func(ctx context.Context, id string) error
	listFn              func(ctx context.Context, filter model.UserFilter) ([]*model.User, error)
}

func (m *mockUserStore) CreateWithSession(ctx context.Context, u *model.User, s *model.Session) error {
	if m.createWithSessionFn != nil {
		return m.createWithSessionFn(ctx, u, s)
	}
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserStore) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	if m.getByIdentifierFn != nil {
		return m.getByIdentifierFn(ctx, identifier)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id, hash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserStore) SetRole(ctx context.Context, id, role string, verified bool) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, id, role, verified)
	}
	return nil
}

func (m *mockUserStore) IncrementUsage(ctx context.Context, id string) error {
	if m.incrementUsageFn != nil {
		return m.incrementUsageFn(ctx, id)
	}
	return nil
}

func (m *mockUserStore) List(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

// mockSessionStore — мок SessionStore для unit-тестов.
type mockSessionStore struct {
	createFn      func(ctx context.Context, s *model.Session) error
	deleteFn      func(ctx context.Context, id string) error
	deleteStaleFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockSessionStore) Create(ctx context.Context, s *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	s.ID = "session-new"
	return nil
}

func (m *mockSessionStore) GetByID(context.Context, string) (*model.Session, error) {
	return nil, repository.ErrNotFound
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockSessionStore) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteStaleFn != nil {
		return m.deleteStaleFn(ctx, now)
	}
	return 0, nil
}

// mockLogStore — мок LogStore для unit-тестов.
type mockLogStore struct {
	listFn func(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error)
}

func (m *mockLogStore) Create(context.Context, *model.AccessLogEntry) error {
	return nil
}

func (m *mockLogStore) List(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

// recordingCache — кэш, запоминающий инвалидации.
type recordingCache struct {
	deletedUsers    []string
	deletedSessions []string
}

func (c *recordingCache) GetSession(context.Context, string) (*model.Session, bool) {
	return nil, false
}

func (c *recordingCache) SetSession(context.Context, *model.Session) {}

func (c *recordingCache) DeleteSession(_ context.Context, id string) {
	c.deletedSessions = append(c.deletedSessions, id)
}

func (c *recordingCache) GetUser(context.Context, string) (*model.User, bool) {
	return nil, false
}

func (c *recordingCache) SetUser(context.Context, *model.User) {}

func (c *recordingCache) DeleteUser(_ context.Context, id string) {
	c.deletedUsers = append(c.deletedUsers, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
