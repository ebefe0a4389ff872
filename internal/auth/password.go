package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength минимальная длина пароля при регистрации.
const MinPasswordLength = 4

// HashPassword возвращает bcrypt-хэш пароля.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword сравнивает bcrypt-хэш с паролем.
func CheckPassword(hash string, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidateCredentials проверяет пару имя/пароль. Отсутствующий пользователь
// и неверный пароль неразличимы для вызывающего.
func ValidateCredentials(ctx context.Context, repo UserRepository, username, password string) (*User, error) {
	user, err := repo.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
