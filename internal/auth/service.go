package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
)

// Grant результат успешного входа: токен и личность владельца.
type Grant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Guest     bool      `json:"guest"`
}

// Service объединяет хранилище пользователей и выпуск токенов.
type Service struct {
	users  UserRepository
	issuer *Issuer
	log    *logging.Logger
}

// NewService создаёт сервис аутентификации. log может быть nil.
func NewService(users UserRepository, issuer *Issuer, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{users: users, issuer: issuer, log: log}
}

// Register создаёт аккаунт и сразу выдаёт токен.
func (s *Service) Register(ctx context.Context, username, password string) (*Grant, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: пароль короче %d символов", ErrInvalidCredentials, MinPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, strings.TrimSpace(username), hash, false)
	if err != nil {
		return nil, err
	}
	s.log.Info("🆕 Зарегистрирован пользователь %s (%s)", user.Username, user.ID)
	return s.grant(user)
}

// Login проверяет имя и пароль.
func (s *Service) Login(ctx context.Context, username, password string) (*Grant, error) {
	user, err := ValidateCredentials(ctx, s.users, username, password)
	if err != nil {
		s.log.Warn("🔐 Неудачный вход для %q: %v", username, err)
		return nil, err
	}
	now := time.Now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("⚠️ Не удалось обновить время входа %s: %v", user.ID, err)
	}
	user.LastLogin = now
	s.log.Info("🔓 Вход пользователя %s", user.Username)
	return s.grant(user)
}

// Guest выдаёт токен новой гостевой личности.
func (s *Service) Guest() (*Grant, error) {
	user := NewGuest()
	s.log.Debug("👤 Новый гость %s", user.ID)
	return s.grant(user)
}

// Authenticate проверяет токен и возвращает его claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.issuer.Validate(strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")))
}

func (s *Service) grant(user *User) (*Grant, error) {
	token, expires, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Grant{
		Token:     token,
		ExpiresAt: expires,
		UserID:    user.ID,
		Username:  user.Username,
		Guest:     user.Guest,
	}, nil
}
