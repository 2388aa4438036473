package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/domain/rbac"
	"github.com/bigkaa/sirfiles/internal/repository"
)

const testSecret = "test-secret-0123456789"

// newAccountService создаёт сервис с bcrypt минимальной стоимости.
func newAccountService(users *mockUserStore, sessions *mockSessionStore, cache auth.SessionCache) (*AccountService, *auth.TokenIssuer) {
	tokens := auth.NewTokenIssuer(testSecret, 7*24*time.Hour)
	return NewAccountService(users, sessions, tokens, auth.NewBcryptHasher(4), cache, testLogger()), tokens
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.NewBcryptHasher(4).Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return h
}

func TestAccountService_Signup(t *testing.T) {
	var created *model.User
	users := &mockUserStore{
		createWithSessionFn: func(_ context.Context, u *model.User, s *model.Session) error {
			if !s.Active {
				t.Error("сессия должна быть активной")
			}
			if time.Until(s.ExpiresAt) < 6*24*time.Hour {
				t.Errorf("ExpiresAt = %v, ожидается через 7 дней", s.ExpiresAt)
			}
			u.ID = "user-1"
			s.ID = "session-1"
			s.UserID = u.ID
			created = u
			return nil
		},
	}
	svc, tokens := newAccountService(users, &mockSessionStore{}, nil)

	res, err := svc.Signup(context.Background(), SignupInput{Username: " alice ", Email: "a@x.io", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup() ошибка: %v", err)
	}

	if created.Role != rbac.RoleUser {
		t.Errorf("Role = %q, ожидается USER", created.Role)
	}
	if created.Username != "alice" {
		t.Errorf("Username = %q, пробелы должны обрезаться", created.Username)
	}
	if created.PasswordHash == "pw" || created.PasswordHash == "" {
		t.Error("пароль должен храниться только в виде хэша")
	}
	if !strings.HasPrefix(res.Token, "Bearer ") {
		t.Fatalf("Token = %q, ожидается префикс Bearer", res.Token)
	}
	sessionID, err := tokens.Parse(strings.TrimPrefix(res.Token, "Bearer "))
	if err != nil || sessionID != "session-1" {
		t.Errorf("токен ссылается на %q (%v), ожидается session-1", sessionID, err)
	}
	if res.Profile.ID != "user-1" || res.Profile.Username != "alice" {
		t.Errorf("Profile = %+v", res.Profile)
	}
}

func TestAccountService_Signup_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     SignupInput
		createErr error
		expected  apperror.Definition
	}{
		{"нет пароля", SignupInput{Username: "a", Email: "a@x"}, nil, apperror.BadRequest},
		{"нет email", SignupInput{Username: "a", Password: "p"}, nil, apperror.BadRequest},
		{"занятое имя", SignupInput{Username: "a", Email: "a@x", Password: "p"}, repository.ErrConflict, apperror.UserAlreadyExists},
		{"сбой БД", SignupInput{Username: "a", Email: "a@x", Password: "p"}, errors.New("db down"), apperror.CanNotActivateUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserStore{
				createWithSessionFn: func(context.Context, *model.User, *model.Session) error {
					return tt.createErr
				},
			}
			svc, _ := newAccountService(users, &mockSessionStore{}, nil)

			_, err := svc.Signup(context.Background(), tt.input)
			if !tt.expected.Is(err) {
				t.Errorf("Signup() = %v, ожидалась %s", err, tt.expected.Name)
			}
		})
	}
}

func TestAccountService_Signin(t *testing.T) {
	user := &model.User{ID: "user-1", Username: "alice", Email: "a@x.io", Role: rbac.RoleAdmin, PasswordHash: hashed(t, "secret")}
	users := &mockUserStore{
		getByIdentifierFn: func(_ context.Context, identifier string) (*model.User, error) {
			if identifier == "alice" || identifier == "a@x.io" {
				return user, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	var createdSession *model.Session
	sessions := &mockSessionStore{
		createFn: func(_ context.Context, s *model.Session) error {
			s.ID = "session-9"
			createdSession = s
			return nil
		},
	}
	svc, _ := newAccountService(users, sessions, nil)

	res, err := svc.Signin(context.Background(), "a@x.io", "secret")
	if err != nil {
		t.Fatalf("Signin() ошибка: %v", err)
	}
	if createdSession.UserID != "user-1" || !createdSession.Active {
		t.Errorf("созданная сессия: %+v", createdSession)
	}
	if res.Profile.Role != rbac.RoleAdmin {
		t.Errorf("Profile.Role = %q", res.Profile.Role)
	}

	if _, err := svc.Signin(context.Background(), "alice", "wrong"); !apperror.CredentialIncorrect.Is(err) {
		t.Errorf("неверный пароль: %v, ожидалась CREDENTIAL_INCORRECT", err)
	}
	if _, err := svc.Signin(context.Background(), "bob", "secret"); !apperror.UserNotFound.Is(err) {
		t.Errorf("неизвестный пользователь: %v, ожидалась USER_NOT_FOUND", err)
	}
	if _, err := svc.Signin(context.Background(), "", "secret"); !apperror.BadRequest.Is(err) {
		t.Errorf("пустой идентификатор: %v, ожидалась BAD_REQUEST", err)
	}
}

func TestAccountService_Signin_SessionFailure(t *testing.T) {
	users := &mockUserStore{
		getByIdentifierFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: "u", PasswordHash: hashed(t, "p")}, nil
		},
	}
	sessions := &mockSessionStore{
		createFn: func(context.Context, *model.Session) error { return errors.New("db down") },
	}
	svc, _ := newAccountService(users, sessions, nil)

	if _, err := svc.Signin(context.Background(), "u", "p"); !apperror.CanNotActivateSession.Is(err) {
		t.Errorf("Signin() = %v, ожидалась CAN_NOT_ACTIVATE_SESSION", err)
	}
}

func TestAccountService_ChangePassword(t *testing.T) {
	var storedHash string
	oldHash := hashed(t, "old")
	users := &mockUserStore{
		getByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, PasswordHash: oldHash}, nil
		},
		updatePasswordFn: func(_ context.Context, id, hash string) error {
			if id != "user-1" {
				t.Errorf("id = %q", id)
			}
			storedHash = hash
			return nil
		},
	}
	cache := &recordingCache{}
	svc, _ := newAccountService(users, &mockSessionStore{}, cache)

	p := &auth.Principal{
		Session: &model.Session{ID: "s-1"},
		User:    &model.User{ID: "user-1"},
	}

	if err := svc.ChangePassword(context.Background(), p, "bad", "new"); !apperror.CredentialIncorrect.Is(err) {
		t.Fatalf("ChangePassword() = %v, ожидалась CREDENTIAL_INCORRECT", err)
	}
	if storedHash != "" {
		t.Fatal("при неверном пароле хэш не должен меняться")
	}

	if err := svc.ChangePassword(context.Background(), p, "old", "new"); err != nil {
		t.Fatalf("ChangePassword() ошибка: %v", err)
	}
	if !auth.NewBcryptHasher(4).Compare(storedHash, "new") {
		t.Error("сохранённый хэш не соответствует новому паролю")
	}
	if len(cache.deletedUsers) != 1 || cache.deletedUsers[0] != "user-1" {
		t.Errorf("кэш пользователя не инвалидирован: %v", cache.deletedUsers)
	}
}

func TestAccountService_ChangePassword_UserMissing(t *testing.T) {
	svc, _ := newAccountService(&mockUserStore{}, &mockSessionStore{}, nil)
	p := &auth.Principal{Session: &model.Session{ID: "s-1"}, User: &model.User{ID: "gone"}}

	if err := svc.ChangePassword(context.Background(), p, "old", "new"); !apperror.UserNotFound.Is(err) {
		t.Errorf("ChangePassword() = %v, ожидалась USER_NOT_FOUND", err)
	}
}

func TestAccountService_Signout(t *testing.T) {
	var deleted string
	sessions := &mockSessionStore{
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	cache := &recordingCache{}
	svc, _ := newAccountService(&mockUserStore{}, sessions, cache)

	p := &auth.Principal{Session: &model.Session{ID: "s-1"}, User: &model.User{ID: "u-1"}}
	if err := svc.Signout(context.Background(), p); err != nil {
		t.Fatalf("Signout() ошибка: %v", err)
	}
	if deleted != "s-1" {
		t.Errorf("удалена сессия %q, ожидается s-1", deleted)
	}
	if len(cache.deletedSessions) != 1 {
		t.Errorf("кэш сессии не инвалидирован")
	}

	sessions.deleteFn = func(context.Context, string) error { return errors.New("db down") }
	if err := svc.Signout(context.Background(), p); !apperror.DatabaseError.Is(err) {
		t.Errorf("Signout() = %v, ожидалась DATABASE_ERROR", err)
	}
}
