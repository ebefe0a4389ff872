package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisProfileRepo хранит прогресс игроков в Redis.
// С ненулевым TTL работает как горячий кеш поверх постоянного хранилища.
type RedisProfileRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 - без истечения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "scorched:profile:",
	}
}

// NewRedisProfileRepo подключается к Redis и проверяет соединение
func NewRedisProfileRepo(ctx context.Context, config *RedisConfig) (*RedisProfileRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Connected to Redis at %s", config.Addr)
	return newRedisProfileRepo(client, config), nil
}

func newRedisProfileRepo(client *redis.Client, config *RedisConfig) *RedisProfileRepo {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisConfig().KeyPrefix
	}
	return &RedisProfileRepo{
		client:    client,
		keyPrefix: prefix,
		ttl:       config.TTL,
	}
}

func (r *RedisProfileRepo) key(userID string) string {
	return r.keyPrefix + userID
}

// Save сохраняет прогресс игрока
func (r *RedisProfileRepo) Save(ctx context.Context, userID string, p combat.Progression) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save profile %s: %w", userID, err)
	}
	return nil
}

// Load загружает прогресс игрока
func (r *RedisProfileRepo) Load(ctx context.Context, userID string) (combat.Progression, bool, error) {
	if err := validateUserID(userID); err != nil {
		return combat.Progression{}, false, err
	}

	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return combat.Progression{}, false, nil
	}
	if err != nil {
		return combat.Progression{}, false, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}

	var p combat.Progression
	if err := json.Unmarshal(data, &p); err != nil {
		return combat.Progression{}, false, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return p, true, nil
}

// Delete удаляет прогресс игрока
func (r *RedisProfileRepo) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	n, err := r.client.Del(ctx, r.key(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", userID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", userID, ErrProfileNotFound)
	}
	return nil
}

// BatchSave сохраняет несколько профилей одним pipeline
func (r *RedisProfileRepo) BatchSave(ctx context.Context, profiles map[string]combat.Progression) error {
	if len(profiles) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for userID, p := range profiles {
			if err := validateUserID(userID); err != nil {
				return err
			}
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to marshal profile: %w", err)
			}
			pipe.Set(ctx, r.key(userID), data, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to batch save profiles: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisProfileRepo) Close() error {
	return r.client.Close()
}
