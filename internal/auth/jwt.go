package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL срок жизни токена.
	DefaultTokenTTL = 24 * time.Hour

	tokenIssuer    = "tdscorchedearth"
	minSecretBytes = 32
)

// Claims содержимое JWT токена.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Guest    bool   `json:"guest"`
	jwt.RegisteredClaims
}

// Issuer подписывает и проверяет токены одним секретом.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer создаёт Issuer. Секрет принимается в base64 или как есть,
// но не короче 32 байт. Пустой секрет заменяется случайным: токены
// тогда не переживают рестарт сервера.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: key, ttl: ttl, now: time.Now}, nil
}

func decodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		key := make([]byte, minSecretBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		return key, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) >= minSecretBytes {
		return decoded, nil
	}
	if len(secret) >= minSecretBytes {
		return []byte(secret), nil
	}
	return nil, errors.New("secret key must be at least 32 bytes")
}

// TTL срок жизни выдаваемых токенов.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue выпускает токен для пользователя и возвращает время его истечения.
func (i *Issuer) Issue(user *User) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		Guest:    user.Guest,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Validate проверяет подпись и срок действия токена.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSecureSecret выдаёт случайный секрет в base64 для конфигурации.
func GenerateSecureSecret() (string, error) {
	b := make([]byte, minSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
