package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryUserRepo потокобезопасное хранилище в памяти для тестов и
// одиночного сервера без внешних баз.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	byName map[string]*User // ключ: normalize(username)
	byID   map[string]*User
}

// NewMemoryUserRepo создаёт пустой репозиторий.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byName: make(map[string]*User),
		byID:   make(map[string]*User),
	}
}

// GetUserByUsername implements UserRepository.
func (r *MemoryUserRepo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byName[normalize(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// GetUserByID implements UserRepository.
func (r *MemoryUserRepo) GetUserByID(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// CreateUser implements UserRepository.
func (r *MemoryUserRepo) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	key := normalize(username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[key]; exists {
		return nil, ErrUserExists
	}
	now := time.Now()
	user := &User{
		ID:           NewAccountID(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		LastLogin:    now,
		IsAdmin:      isAdmin,
	}
	r.byName[key] = user
	r.byID[user.ID] = user
	cp := *user
	return &cp, nil
}

// TouchLogin implements UserRepository.
func (r *MemoryUserRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.LastLogin = at
	return nil
}

// Count количество зарегистрированных пользователей.
func (r *MemoryUserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
