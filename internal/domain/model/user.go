// Пакет model — доменные модели SIR.
package model

import "time"

// User — учётная запись. Хранится в таблице users.
type User struct {
	// ID — UUID пользователя
	ID string
	// Username — уникальное имя пользователя
	Username string
	// Email — уникальный адрес электронной почты
	Email string
	// Role — USER, ADMIN или OWNER
	Role string
	// PasswordHash — bcrypt-хэш пароля
	PasswordHash string
	// UsageCount — количество успешных загрузок (квота)
	UsageCount int
	// Verified — подтверждён ли администратор владельцем
	Verified bool
	// CreatedAt — время создания
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// Profile — публичная проекция пользователя для ответов API.
// Хэш пароля, флаг верификации и отметки времени не публикуются.
type Profile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	UsageCount int    `json:"usageCount"`
}

// Profile возвращает публичную проекцию пользователя.
func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		UsageCount: u.UsageCount,
	}
}

// UserFilter — фильтры списков пользователей.
type UserFilter struct {
	// Role — точная роль
	Role string
	// ID — точный идентификатор; при наличии ID SearchString не учитывается
	ID string
	// CreatedAfter — только созданные строго позже
	CreatedAfter *time.Time
	// SearchString — подстрока в username или email
	SearchString string
	// Limit — максимальное количество записей
	Limit int
}
