package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher — примитив хэширования паролей.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare возвращает true, если пароль соответствует хэшу.
	Compare(hash, password string) bool
}

// BcryptHasher — реализация PasswordHasher на bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создаёт BcryptHasher. cost <= 0 — bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash возвращает bcrypt-хэш пароля.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return string(b), nil
}

// Compare сравнивает пароль с хэшем.
func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
