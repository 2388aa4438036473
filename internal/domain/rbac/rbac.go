// Пакет rbac — единая политика авторизации по ролям.
// Роли упорядочены: OWNER > ADMIN > USER. Доступ к маршруту разрешён,
// если вес роли пользователя не меньше требуемого минимума.
package rbac

import "github.com/bigkaa/sirfiles/internal/domain/apperror"

// Роли в порядке возрастания привилегий.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
	RoleOwner = "OWNER"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleUser:  1,
	RoleAdmin: 2,
	RoleOwner: 3,
}

// Authorize проверяет, что роль actor не ниже required.
// Неизвестная роль пользователя или неизвестная требуемая роль — отказ.
func Authorize(actor, required string) error {
	wa, okActor := roleWeight[actor]
	wr, okRequired := roleWeight[required]
	if !okActor || !okRequired || wa < wr {
		return apperror.UnauthorizedResourceAccess.New()
	}
	return nil
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}
