package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	apierrors "github.com/bigkaa/sirfiles/internal/api/errors"
	"github.com/bigkaa/sirfiles/internal/api/middleware"
	"github.com/bigkaa/sirfiles/internal/auth"
	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/domain/rbac"
	"github.com/bigkaa/sirfiles/internal/service"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

// --- Моки сервисов ---

type mockAccountService struct {
	signupFn         func(ctx context.Context, in service.SignupInput) (*service.AuthResult, error)
	signinFn         func(ctx context.Context, identifier, password string) (*service.AuthResult, error)
	changePasswordFn func(ctx context.Context, p *auth.Principal, current, next string) error
	signoutFn        func(ctx context.Context, p *auth.Principal) error
}

func (m *mockAccountService) Signup(ctx context.Context, in service.SignupInput) (*service.AuthResult, error) {
	return m.signupFn(ctx, in)
}

func (m *mockAccountService) Signin(ctx context.Context, identifier, password string) (*service.AuthResult, error) {
	return m.signinFn(ctx, identifier, password)
}

func (m *mockAccountService) ChangePassword(ctx context.Context, p *auth.Principal, current, next string) error {
	return m.changePasswordFn(ctx, p, current, next)
}

func (m *mockAccountService) Signout(ctx context.Context, p *auth.Principal) error {
	return m.signoutFn(ctx, p)
}

type mockUserService struct {
	listConsumersFn func(ctx context.Context, filter model.UserFilter) ([]model.Profile, error)
	listAdminsFn    func(ctx context.Context, filter model.UserFilter) ([]model.Profile, error)
	verifyFn        func(ctx context.Context, id string) error
	removeFn        func(ctx context.Context, id string) error
}

func (m *mockUserService) ListConsumers(ctx context.Context, filter model.UserFilter) ([]model.Profile, error) {
	return m.listConsumersFn(ctx, filter)
}

func (m *mockUserService) ListAdmins(ctx context.Context, filter model.UserFilter) ([]model.Profile, error) {
	return m.listAdminsFn(ctx, filter)
}

func (m *mockUserService) Verify(ctx context.Context, id string) error {
	return m.verifyFn(ctx, id)
}

func (m *mockUserService) Remove(ctx context.Context, id string) error {
	return m.removeFn(ctx, id)
}

type mockUploadService struct {
	uploadFn func(ctx context.Context, p *auth.Principal, mr *multipart.Reader) (*service.UploadResult, error)
}

func (m *mockUploadService) Upload(ctx context.Context, p *auth.Principal, mr *multipart.Reader) (*service.UploadResult, error) {
	return m.uploadFn(ctx, p, mr)
}

type mockLogService struct {
	listFn func(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error)
}

func (m *mockLogService) List(ctx context.Context, filter model.AccessLogFilter) ([]*model.AccessLogRecord, error) {
	return m.listFn(ctx, filter)
}

// --- Хелперы ---

func newTestHandler(accounts AccountService, users UserService, uploads UploadService, logs LogService) *APIHandler {
	logger := testLogger()
	return NewAPIHandler(accounts, users, uploads, logs, NewHealthHandler(), apierrors.NewSink(logger), logger)
}

func testPrincipal() *auth.Principal {
	return &auth.Principal{
		Session: &model.Session{ID: "s-1", UserID: "u-1", Active: true, ExpiresAt: time.Now().Add(time.Hour)},
		User:    &model.User{ID: "u-1", Username: "alice", Email: "a@x.io", Role: rbac.RoleUser},
	}
}

func withPrincipal(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), testPrincipal()))
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperror.Code {
	t.Helper()
	var body struct {
		Error struct {
			Code apperror.Code `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("тело ответа не JSON: %v", err)
	}
	return body.Error.Code
}

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		expectedLimit int
		expectedAfter string
		wantErr       bool
	}{
		{"пусто", "", 0, "", false},
		{"лимит", "limit=5", 5, "", false},
		{"лимит не число", "limit=abc", 0, "", false},
		{"отрицательный лимит", "limit=-3", 0, "", false},
		{"дата RFC3339", "createdAt=2024-03-01T10:00:00Z", 0, "2024-03-01T10:00:00Z", false},
		{"только дата", "createdAt=2024-03-01", 0, "2024-03-01T00:00:00Z", false},
		{"некорректная дата", "createdAt=вчера", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/log?"+tt.query, nil)
			p, err := parseListParams(r)
			if tt.wantErr {
				if !apperror.BadRequest.Is(err) {
					t.Fatalf("ошибка = %v, ожидается BAD_REQUEST", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if p.limit != tt.expectedLimit {
				t.Errorf("limit = %d, ожидается %d", p.limit, tt.expectedLimit)
			}
			if tt.expectedAfter == "" {
				if p.createdAfter != nil {
					t.Errorf("createdAfter = %v, ожидается nil", p.createdAfter)
				}
				return
			}
			if p.createdAfter == nil || p.createdAfter.UTC().Format(time.RFC3339) != tt.expectedAfter {
				t.Errorf("createdAfter = %v, ожидается %s", p.createdAfter, tt.expectedAfter)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst signinRequest

	rec := httptest.NewRecorder()
	if err := decodeJSON(rec, jsonRequest(http.MethodPost, "/signin", ""), &dst); !apperror.BadRequest.Is(err) {
		t.Errorf("пустое тело: ошибка = %v, ожидается BAD_REQUEST", err)
	}
	if err := decodeJSON(rec, jsonRequest(http.MethodPost, "/signin", "{"), &dst); !apperror.BadRequest.Is(err) {
		t.Errorf("повреждённое тело: ошибка = %v, ожидается BAD_REQUEST", err)
	}
	big := `{"identifier":"` + strings.Repeat("a", maxJSONBodyBytes) + `"}`
	if err := decodeJSON(rec, jsonRequest(http.MethodPost, "/signin", big), &dst); !apperror.BadRequest.Is(err) {
		t.Errorf("слишком большое тело: ошибка = %v, ожидается BAD_REQUEST", err)
	}
	if err := decodeJSON(rec, jsonRequest(http.MethodPost, "/signin", `{"identifier":"bob","password":"p"}`), &dst); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if dst.Identifier != "bob" || dst.Password != "p" {
		t.Errorf("разобрано %+v", dst)
	}
}

// readAll читает тело ответа целиком.
func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("чтение тела: %v", err)
	}
	return b
}
