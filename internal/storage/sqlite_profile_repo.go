package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ProfileModel строка таблицы player_profiles для gorm
type ProfileModel struct {
	UserID         string `gorm:"primaryKey;size:64"`
	Credits        int
	Experience     int
	Level          int
	Victories      int
	Defeats        int
	ShotsFired     int
	TanksDestroyed int
	GamesPlayed    int
	Upgrades       string `gorm:"type:text"`
	UpdatedAt      time.Time
}

// TableName имя таблицы, общее с MariaDB-схемой
func (ProfileModel) TableName() string { return "player_profiles" }

func toModel(userID string, p combat.Progression) (ProfileModel, error) {
	upgrades, err := json.Marshal(p.Upgrades)
	if err != nil {
		return ProfileModel{}, fmt.Errorf("ошибка сериализации улучшений: %w", err)
	}
	return ProfileModel{
		UserID:         userID,
		Credits:        p.Credits,
		Experience:     p.Experience,
		Level:          p.Level,
		Victories:      p.Victories,
		Defeats:        p.Defeats,
		ShotsFired:     p.ShotsFired,
		TanksDestroyed: p.TanksDestroyed,
		GamesPlayed:    p.GamesPlayed,
		Upgrades:       string(upgrades),
	}, nil
}

func (m ProfileModel) progression() (combat.Progression, error) {
	p := combat.Progression{
		Credits:        m.Credits,
		Experience:     m.Experience,
		Level:          m.Level,
		Victories:      m.Victories,
		Defeats:        m.Defeats,
		ShotsFired:     m.ShotsFired,
		TanksDestroyed: m.TanksDestroyed,
		GamesPlayed:    m.GamesPlayed,
	}
	if err := json.Unmarshal([]byte(m.Upgrades), &p.Upgrades); err != nil {
		return combat.Progression{}, fmt.Errorf("ошибка разбора улучшений %s: %w", m.UserID, err)
	}
	return p, nil
}

// SQLiteProfileRepo локальное файловое хранилище профилей через gorm.
// Работает без внешней БД, поэтому служит запасным вариантом для MariaDB.
type SQLiteProfileRepo struct {
	db *gorm.DB
}

// NewSQLiteProfileRepo открывает (или создает) файл базы и мигрирует схему.
// path ":memory:" дает базу в памяти.
func NewSQLiteProfileRepo(path string) (*SQLiteProfileRepo, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть SQLite %s: %w", path, err)
	}

	if err := db.AutoMigrate(&ProfileModel{}); err != nil {
		return nil, fmt.Errorf("ошибка миграции player_profiles: %w", err)
	}

	return &SQLiteProfileRepo{db: db}, nil
}

// Save сохраняет профиль игрока (upsert по user_id)
func (r *SQLiteProfileRepo) Save(ctx context.Context, userID string, p combat.Progression) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	model, err := toModel(userID, p)
	if err != nil {
		return err
	}
	return r.upsert(r.db.WithContext(ctx), []ProfileModel{model})
}

func (r *SQLiteProfileRepo) upsert(db *gorm.DB, models []ProfileModel) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&models).Error
	if err != nil {
		return fmt.Errorf("ошибка сохранения профилей: %w", err)
	}
	return nil
}

// Load загружает профиль игрока
func (r *SQLiteProfileRepo) Load(ctx context.Context, userID string) (combat.Progression, bool, error) {
	if err := validateUserID(userID); err != nil {
		return combat.Progression{}, false, err
	}

	var model ProfileModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return combat.Progression{}, false, nil
	}
	if err != nil {
		return combat.Progression{}, false, fmt.Errorf("ошибка загрузки профиля %s: %w", userID, err)
	}

	p, err := model.progression()
	if err != nil {
		return combat.Progression{}, false, err
	}
	return p, true, nil
}

// Delete удаляет профиль игрока
func (r *SQLiteProfileRepo) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&ProfileModel{})
	if result.Error != nil {
		return fmt.Errorf("ошибка удаления профиля %s: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", userID, ErrProfileNotFound)
	}
	return nil
}

// BatchSave сохраняет профили в одной транзакции
func (r *SQLiteProfileRepo) BatchSave(ctx context.Context, profiles map[string]combat.Progression) error {
	if len(profiles) == 0 {
		return nil
	}

	models := make([]ProfileModel, 0, len(profiles))
	for userID, p := range profiles {
		if err := validateUserID(userID); err != nil {
			return err
		}
		model, err := toModel(userID, p)
		if err != nil {
			return err
		}
		models = append(models, model)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.upsert(tx, models)
	})
}

// Close закрывает соединение с базой
func (r *SQLiteProfileRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
