package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/domain/rbac"
	"github.com/bigkaa/sirfiles/internal/repository"
)

func TestUserService_ListByRole(t *testing.T) {
	var gotFilter model.UserFilter
	users := &mockUserStore{
		listFn: func(_ context.Context, f model.UserFilter) ([]*model.User, error) {
			gotFilter = f
			return []*model.User{{ID: "u1", Username: "a", PasswordHash: "h"}}, nil
		},
	}
	svc := NewUserService(users, nil, testLogger())

	profiles, err := svc.ListConsumers(context.Background(), model.UserFilter{SearchString: "a", Role: rbac.RoleOwner})
	if err != nil {
		t.Fatalf("ListConsumers() ошибка: %v", err)
	}
	if gotFilter.Role != rbac.RoleUser || gotFilter.SearchString != "a" {
		t.Errorf("фильтр = %+v, ожидается роль USER", gotFilter)
	}
	if len(profiles) != 1 || profiles[0].ID != "u1" {
		t.Errorf("profiles = %+v", profiles)
	}

	if _, err := svc.ListAdmins(context.Background(), model.UserFilter{}); err != nil {
		t.Fatalf("ListAdmins() ошибка: %v", err)
	}
	if gotFilter.Role != rbac.RoleAdmin {
		t.Errorf("Role = %q, ожидается ADMIN", gotFilter.Role)
	}
}

func TestUserService_List_Errors(t *testing.T) {
	svc := NewUserService(&mockUserStore{}, nil, testLogger())
	if _, err := svc.ListConsumers(context.Background(), model.UserFilter{}); !apperror.UserNotFound.Is(err) {
		t.Errorf("пустой список: %v, ожидалась USER_NOT_FOUND", err)
	}

	failing := &mockUserStore{
		listFn: func(context.Context, model.UserFilter) ([]*model.User, error) { return nil, errors.New("db down") },
	}
	svc = NewUserService(failing, nil, testLogger())
	if _, err := svc.ListAdmins(context.Background(), model.UserFilter{}); !apperror.DatabaseError.Is(err) {
		t.Errorf("сбой БД: %v, ожидалась DATABASE_ERROR", err)
	}
}

func TestUserService_VerifyAndRemove(t *testing.T) {
	type call struct {
		role     string
		verified bool
	}
	var calls []call
	users := &mockUserStore{
		getByIDFn: func(_ context.Context, id string) (*model.User, error) {
			switch id {
			case "u1":
				return &model.User{ID: "u1", Role: rbac.RoleUser}, nil
			case "owner":
				return &model.User{ID: "owner", Role: rbac.RoleOwner}, nil
			}
			return nil, repository.ErrNotFound
		},
		setRoleFn: func(_ context.Context, _ string, role string, verified bool) error {
			calls = append(calls, call{role, verified})
			return nil
		},
	}
	cache := &recordingCache{}
	svc := NewUserService(users, cache, testLogger())

	if err := svc.Verify(context.Background(), "u1"); err != nil {
		t.Fatalf("Verify() ошибка: %v", err)
	}
	if err := svc.Remove(context.Background(), "u1"); err != nil {
		t.Fatalf("Remove() ошибка: %v", err)
	}
	expected := []call{{rbac.RoleAdmin, true}, {rbac.RoleUser, false}}
	if len(calls) != 2 || calls[0] != expected[0] || calls[1] != expected[1] {
		t.Errorf("вызовы SetRole = %+v, ожидается %+v", calls, expected)
	}
	if len(cache.deletedUsers) != 2 {
		t.Errorf("инвалидаций кэша: %d, ожидается 2", len(cache.deletedUsers))
	}

	tests := []struct {
		name     string
		id       string
		expected apperror.Definition
	}{
		{"пустой id", "", apperror.BadRequest},
		{"неизвестный пользователь", "ghost", apperror.UserNotFound},
		{"владелец", "owner", apperror.ForbiddenUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Remove(context.Background(), tt.id); !tt.expected.Is(err) {
				t.Errorf("Remove(%q) = %v, ожидалась %s", tt.id, err, tt.expected.Name)
			}
		})
	}
}
