package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
)

// MemoryProfileRepo реализует ProfileRepo в памяти.
// Используется как fallback, когда внешние хранилища недоступны,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryProfileRepo struct {
	mu   sync.RWMutex
	data map[string]combat.Progression // userID -> прогресс
}

// NewMemoryProfileRepo создает новый репозиторий прогресса в памяти.
func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{
		data: make(map[string]combat.Progression),
	}
}

// Save сохраняет прогресс игрока в памяти.
func (r *MemoryProfileRepo) Save(ctx context.Context, userID string, p combat.Progression) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[userID] = p
	return nil
}

// Load загружает прогресс игрока из памяти.
func (r *MemoryProfileRepo) Load(ctx context.Context, userID string) (combat.Progression, bool, error) {
	if err := validateUserID(userID); err != nil {
		return combat.Progression{}, false, err
	}
	if err := checkContext(ctx); err != nil {
		return combat.Progression{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.data[userID]
	return p, exists, nil
}

// Delete удаляет прогресс игрока из памяти.
func (r *MemoryProfileRepo) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[userID]; !exists {
		return fmt.Errorf("%s: %w", userID, ErrProfileNotFound)
	}

	delete(r.data, userID)
	return nil
}

// BatchSave сохраняет прогресс нескольких игроков; при неверном ключе ничего не пишет.
func (r *MemoryProfileRepo) BatchSave(ctx context.Context, profiles map[string]combat.Progression) error {
	if len(profiles) == 0 {
		return nil
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	for userID := range profiles {
		if err := validateUserID(userID); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, p := range profiles {
		r.data[userID] = p
	}
	return nil
}

// Count возвращает количество сохраненных профилей (для отладки).
func (r *MemoryProfileRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
