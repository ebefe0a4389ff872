package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
)

// CachedProfileRepo двухуровневое хранилище: горячий кеш (обычно Redis)
// поверх постоянного хранилища. Чтение идет через кеш, запись - в оба уровня.
// Ошибки кеша не роняют операцию: постоянное хранилище главнее.
type CachedProfileRepo struct {
	hot  ProfileRepo
	cold ProfileRepo
	log  *logging.Logger

	hits   int64
	misses int64
}

// CacheMetrics счетчики попаданий в кеш
type CacheMetrics struct {
	Hits     int64   `json:"cache_hits"`
	Misses   int64   `json:"cache_misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// NewCachedProfileRepo создает кеширующее хранилище
func NewCachedProfileRepo(hot, cold ProfileRepo) *CachedProfileRepo {
	return &CachedProfileRepo{
		hot:  hot,
		cold: cold,
		log:  logging.GetStorageLogger(),
	}
}

// Save пишет в постоянное хранилище, затем обновляет кеш
func (r *CachedProfileRepo) Save(ctx context.Context, userID string, p combat.Progression) error {
	if err := r.cold.Save(ctx, userID, p); err != nil {
		return err
	}
	if err := r.hot.Save(ctx, userID, p); err != nil {
		r.log.Warn("⚠️ Не удалось обновить кеш профиля %s: %v", userID, err)
	}
	return nil
}

// Load читает из кеша, при промахе - из постоянного хранилища с прогревом кеша
func (r *CachedProfileRepo) Load(ctx context.Context, userID string) (combat.Progression, bool, error) {
	p, found, err := r.hot.Load(ctx, userID)
	if err == nil && found {
		atomic.AddInt64(&r.hits, 1)
		return p, true, nil
	}
	if err != nil {
		r.log.Warn("⚠️ Ошибка чтения кеша профиля %s: %v", userID, err)
	}
	atomic.AddInt64(&r.misses, 1)

	p, found, err = r.cold.Load(ctx, userID)
	if err != nil || !found {
		return p, found, err
	}
	if err := r.hot.Save(ctx, userID, p); err != nil {
		r.log.Warn("⚠️ Не удалось прогреть кеш профиля %s: %v", userID, err)
	}
	return p, true, nil
}

// Delete удаляет профиль с обоих уровней
func (r *CachedProfileRepo) Delete(ctx context.Context, userID string) error {
	if err := r.hot.Delete(ctx, userID); err != nil && !errors.Is(err, ErrProfileNotFound) {
		r.log.Warn("⚠️ Не удалось удалить профиль %s из кеша: %v", userID, err)
	}
	return r.cold.Delete(ctx, userID)
}

// BatchSave пишет пачку в постоянное хранилище и в кеш
func (r *CachedProfileRepo) BatchSave(ctx context.Context, profiles map[string]combat.Progression) error {
	if err := r.cold.BatchSave(ctx, profiles); err != nil {
		return err
	}
	if err := r.hot.BatchSave(ctx, profiles); err != nil {
		r.log.Warn("⚠️ Не удалось обновить кеш для %d профилей: %v", len(profiles), err)
	}
	return nil
}

// Metrics возвращает счетчики кеша
func (r *CachedProfileRepo) Metrics() CacheMetrics {
	hits := atomic.LoadInt64(&r.hits)
	misses := atomic.LoadInt64(&r.misses)
	m := CacheMetrics{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		m.HitRatio = float64(hits) / float64(total)
	}
	return m
}

// Close закрывает оба уровня
func (r *CachedProfileRepo) Close() error {
	hotErr := Close(r.hot)
	if err := Close(r.cold); err != nil {
		return err
	}
	if hotErr != nil {
		return fmt.Errorf("cache close: %w", hotErr)
	}
	return nil
}
