package storage

import (
	"context"
	"fmt"

	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
)

// Названия бэкендов в конфигурации
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
)

// Options выбор и настройки хранилища профилей
type Options struct {
	Backend    string
	DataPath   string
	SQLitePath string
	MySQLDSN   string
	Redis      *RedisConfig
	// RedisCache включает Redis как горячий кеш поверх Backend
	RedisCache bool
}

// Open создает хранилище профилей по конфигурации
func Open(ctx context.Context, opts Options) (ProfileRepo, error) {
	var (
		repo ProfileRepo
		err  error
	)

	switch opts.Backend {
	case "", BackendMemory:
		repo = NewMemoryProfileRepo()
	case BackendBadger:
		repo, err = NewBadgerProfileRepo(opts.DataPath)
	case BackendSQLite:
		repo, err = NewSQLiteProfileRepo(opts.SQLitePath)
	case BackendMySQL:
		repo, err = NewMariaProfileRepo(ctx, opts.MySQLDSN)
	case BackendRedis:
		repo, err = NewRedisProfileRepo(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("неизвестное хранилище профилей %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if opts.RedisCache && opts.Backend != BackendRedis && opts.Backend != BackendMemory && opts.Backend != "" {
		hot, err := NewRedisProfileRepo(ctx, opts.Redis)
		if err != nil {
			logging.GetStorageLogger().Warn("⚠️ Redis-кеш недоступен, работаем без него: %v", err)
			return repo, nil
		}
		return NewCachedProfileRepo(hot, repo), nil
	}
	return repo, nil
}

// OpenWithFallback как Open, но при ошибке возвращает хранилище в памяти,
// чтобы гостевая игра работала без внешних сервисов
func OpenWithFallback(ctx context.Context, opts Options) ProfileRepo {
	repo, err := Open(ctx, opts)
	if err != nil {
		logging.GetStorageLogger().Warn("⚠️ Хранилище %s недоступно, используется память: %v", opts.Backend, err)
		return NewMemoryProfileRepo()
	}
	logging.GetStorageLogger().Info("💾 Хранилище профилей: %s", opts.Backend)
	return repo
}
