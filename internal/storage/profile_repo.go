// Package storage хранит прогресс игроков между матчами.
// Запись плоская и привязана к идентификатору пользователя
// (guest-<uuid> для гостей).
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
)

var (
	// ErrProfileNotFound профиль пользователя отсутствует
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidUserID пустой или слишком длинный идентификатор
	ErrInvalidUserID = errors.New("invalid user id")
)

// maxUserIDLength ограничение ключа в SQL-хранилищах
const maxUserIDLength = 64

// ProfileRepo определяет интерфейс для сохранения и загрузки прогресса игроков.
type ProfileRepo interface {
	// Save сохраняет прогресс игрока, перезаписывая прежний.
	Save(ctx context.Context, userID string, p combat.Progression) error

	// Load загружает прогресс игрока.
	// Возвращает found=false без ошибки, если игрок еще не сохранялся.
	Load(ctx context.Context, userID string) (combat.Progression, bool, error)

	// Delete удаляет прогресс игрока; ErrProfileNotFound, если записи нет.
	Delete(ctx context.Context, userID string) error

	// BatchSave сохраняет прогресс нескольких игроков одновременно.
	BatchSave(ctx context.Context, profiles map[string]combat.Progression) error
}

// LoadOrCreate загружает прогресс или возвращает стартовый для нового игрока
func LoadOrCreate(ctx context.Context, repo ProfileRepo, userID string) (combat.Progression, error) {
	p, found, err := repo.Load(ctx, userID)
	if err != nil {
		return combat.Progression{}, err
	}
	if !found {
		return combat.NewProgression(), nil
	}
	p.Normalize()
	return p, nil
}

// Close закрывает репозиторий, если у него есть ресурсы
func Close(repo ProfileRepo) error {
	if c, ok := repo.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func validateUserID(userID string) error {
	if userID == "" || len(userID) > maxUserIDLength {
		return fmt.Errorf("%q: %w", userID, ErrInvalidUserID)
	}
	return nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
