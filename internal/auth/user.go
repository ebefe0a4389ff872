package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	accountPrefix = "user-"
	guestPrefix   = "guest-"

	// MaxUsernameLength ограничивает длину имени аккаунта.
	MaxUsernameLength = 32
)

// User описывает учётную запись игрока или гостя.
// ID совпадает с ключом профиля в storage.ProfileRepo.
type User struct {
	ID           string    // "user-<uuid>" или "guest-<uuid>"
	Username     string    // уникальное имя (без учёта регистра)
	PasswordHash string    // bcrypt, пусто у гостей
	CreatedAt    time.Time // время создания
	LastLogin    time.Time // последний успешный вход
	IsAdmin      bool      // административные права
	Guest        bool      // гостевая сессия без пароля
}

// NewAccountID выдаёт идентификатор для зарегистрированного аккаунта.
func NewAccountID() string {
	return accountPrefix + uuid.NewString()
}

// NewGuest создаёт гостевого пользователя. Гости нигде не сохраняются,
// их прогресс живёт под ключом ID в хранилище профилей.
func NewGuest() *User {
	id := uuid.NewString()
	now := time.Now()
	return &User{
		ID:        guestPrefix + id,
		Username:  "Гость-" + id[:8],
		CreatedAt: now,
		LastLogin: now,
		Guest:     true,
	}
}

// IsGuestID сообщает, принадлежит ли идентификатор гостю.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, guestPrefix)
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	name := strings.TrimSpace(username)
	if name == "" || len(name) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if strings.HasPrefix(normalize(name), guestPrefix) {
		return ErrInvalidUsername
	}
	return nil
}
