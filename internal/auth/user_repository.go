package auth

import (
	"context"
	"errors"
	"time"
)

// UserRepository хранит учётные записи. Гости сюда не попадают.
type UserRepository interface {
	// GetUserByUsername ищет пользователя без учёта регистра.
	// Если пользователь не найден, возвращается ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByID ищет пользователя по идентификатору.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// CreateUser сохраняет нового пользователя с уже захэшированным паролем.
	// При конфликте имён возвращает ErrUserExists.
	CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error)

	// TouchLogin обновляет время последнего входа.
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// Ошибки уровня домена.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidToken       = errors.New("invalid token")
)
