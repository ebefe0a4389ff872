package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

const badgerKeyPrefix = "profile:"

// BadgerProfileRepo хранит прогресс во встроенной BadgerDB.
// Значения - JSON, сжатый zstd.
type BadgerProfileRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewBadgerProfileRepo открывает хранилище в dataPath/profiles
func NewBadgerProfileRepo(dataPath string) (*BadgerProfileRepo, error) {
	dbPath := filepath.Join(dataPath, "profiles")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &BadgerProfileRepo{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Close закрывает хранилище данных
func (r *BadgerProfileRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	r.decoder.Close()
	return r.db.Close()
}

func (r *BadgerProfileRepo) encode(p combat.Progression) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации профиля: %w", err)
	}
	return r.encoder.EncodeAll(data, nil), nil
}

func (r *BadgerProfileRepo) decode(raw []byte) (combat.Progression, error) {
	var p combat.Progression
	data, err := r.decoder.DecodeAll(raw, nil)
	if err != nil {
		return p, fmt.Errorf("ошибка распаковки профиля: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("ошибка десериализации профиля: %w", err)
	}
	return p, nil
}

func (r *BadgerProfileRepo) ready() error {
	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return nil
}

// Save сохраняет прогресс игрока
func (r *BadgerProfileRepo) Save(ctx context.Context, userID string, p combat.Progression) error {
	return r.BatchSave(ctx, map[string]combat.Progression{userID: p})
}

// Load загружает прогресс игрока
func (r *BadgerProfileRepo) Load(ctx context.Context, userID string) (combat.Progression, bool, error) {
	if err := validateUserID(userID); err != nil {
		return combat.Progression{}, false, err
	}
	if err := checkContext(ctx); err != nil {
		return combat.Progression{}, false, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return combat.Progression{}, false, err
	}

	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return combat.Progression{}, false, nil
	}
	if err != nil {
		return combat.Progression{}, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	p, err := r.decode(raw)
	if err != nil {
		return combat.Progression{}, false, err
	}
	return p, true, nil
}

// Delete удаляет прогресс игрока
func (r *BadgerProfileRepo) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	key := []byte(badgerKeyPrefix + userID)
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", userID, ErrProfileNotFound)
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// BatchSave сохраняет несколько профилей в одной транзакции
func (r *BadgerProfileRepo) BatchSave(ctx context.Context, profiles map[string]combat.Progression) error {
	if len(profiles) == 0 {
		return nil
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	encoded := make(map[string][]byte, len(profiles))
	for userID, p := range profiles {
		if err := validateUserID(userID); err != nil {
			return err
		}
		data, err := r.encode(p)
		if err != nil {
			return err
		}
		encoded[badgerKeyPrefix+userID] = data
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		for key, data := range encoded {
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}
