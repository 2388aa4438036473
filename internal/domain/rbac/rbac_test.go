package rbac

import (
	"testing"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		actor    string
		required string
		allowed  bool
	}{
		{"user → user", RoleUser, RoleUser, true},
		{"user → admin", RoleUser, RoleAdmin, false},
		{"user → owner", RoleUser, RoleOwner, false},
		{"admin → user", RoleAdmin, RoleUser, true},
		{"admin → admin", RoleAdmin, RoleAdmin, true},
		{"admin → owner", RoleAdmin, RoleOwner, false},
		{"owner → admin", RoleOwner, RoleAdmin, true},
		{"owner → owner", RoleOwner, RoleOwner, true},
		{"неизвестная роль", "GUEST", RoleUser, false},
		{"пустая роль", "", RoleUser, false},
		{"owner → неизвестная требуемая", RoleOwner, "SUPERUSER", false},
		{"user → пустая требуемая", RoleUser, "", false},
		{"требуемая в нижнем регистре", RoleOwner, "admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.required)
			if tt.allowed {
				if err != nil {
					t.Errorf("Authorize(%q, %q) = %v, ожидался доступ", tt.actor, tt.required, err)
				}
				return
			}
			if !apperror.UnauthorizedResourceAccess.Is(err) {
				t.Errorf("Authorize(%q, %q) = %v, ожидалась UNAUTHORIZED_RESOURCE_ACCESS", tt.actor, tt.required, err)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range []string{RoleUser, RoleAdmin, RoleOwner} {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("user") {
		t.Error("роли чувствительны к регистру")
	}
}
