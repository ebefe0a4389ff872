package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	_ "github.com/go-sql-driver/mysql"
)

// MariaProfileRepo реализует ProfileRepo для базы данных MariaDB/MySQL.
// Использует таблицу player_profiles: счетчики в колонках, улучшения в JSON.
type MariaProfileRepo struct {
	db *sql.DB
}

// NewMariaProfileRepo создает новый репозиторий профилей для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaProfileRepo(ctx context.Context, dsn string) (*MariaProfileRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo, err := newMariaProfileRepo(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func newMariaProfileRepo(ctx context.Context, db *sql.DB) (*MariaProfileRepo, error) {
	repo := &MariaProfileRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return repo, nil
}

// createTable создает таблицу player_profiles, если она не существует.
func (r *MariaProfileRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS player_profiles (
			user_id         VARCHAR(64) PRIMARY KEY,
			credits         INT         NOT NULL DEFAULT 1000,
			experience      INT         NOT NULL DEFAULT 0,
			level           INT         NOT NULL DEFAULT 1,
			victories       INT         NOT NULL DEFAULT 0,
			defeats         INT         NOT NULL DEFAULT 0,
			shots_fired     INT         NOT NULL DEFAULT 0,
			tanks_destroyed INT         NOT NULL DEFAULT 0,
			games_played    INT         NOT NULL DEFAULT 0,
			upgrades        JSON        NOT NULL,
			updated_at      TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			                ON UPDATE   CURRENT_TIMESTAMP,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы player_profiles: %w", err)
	}
	return nil
}

const mariaUpsertProfile = `
	INSERT INTO player_profiles
		(user_id, credits, experience, level, victories, defeats,
		 shots_fired, tanks_destroyed, games_played, upgrades)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		credits = VALUES(credits),
		experience = VALUES(experience),
		level = VALUES(level),
		victories = VALUES(victories),
		defeats = VALUES(defeats),
		shots_fired = VALUES(shots_fired),
		tanks_destroyed = VALUES(tanks_destroyed),
		games_played = VALUES(games_played),
		upgrades = VALUES(upgrades),
		updated_at = CURRENT_TIMESTAMP
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertProfile(ctx context.Context, db execer, userID string, p combat.Progression) error {
	upgrades, err := json.Marshal(p.Upgrades)
	if err != nil {
		return fmt.Errorf("ошибка сериализации улучшений: %w", err)
	}
	_, err = db.ExecContext(ctx, mariaUpsertProfile,
		userID, p.Credits, p.Experience, p.Level, p.Victories, p.Defeats,
		p.ShotsFired, p.TanksDestroyed, p.GamesPlayed, string(upgrades))
	if err != nil {
		return fmt.Errorf("ошибка сохранения профиля %s: %w", userID, err)
	}
	return nil
}

// Save сохраняет профиль игрока.
// Использует INSERT ... ON DUPLICATE KEY UPDATE для обновления существующих записей.
func (r *MariaProfileRepo) Save(ctx context.Context, userID string, p combat.Progression) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	return upsertProfile(ctx, r.db, userID, p)
}

// Load загружает профиль игрока из базы данных.
func (r *MariaProfileRepo) Load(ctx context.Context, userID string) (combat.Progression, bool, error) {
	if err := validateUserID(userID); err != nil {
		return combat.Progression{}, false, err
	}

	query := `
		SELECT credits, experience, level, victories, defeats,
		       shots_fired, tanks_destroyed, games_played, upgrades
		FROM player_profiles WHERE user_id = ?
	`

	var p combat.Progression
	var upgrades string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.Credits, &p.Experience, &p.Level, &p.Victories, &p.Defeats,
		&p.ShotsFired, &p.TanksDestroyed, &p.GamesPlayed, &upgrades)

	if errors.Is(err, sql.ErrNoRows) {
		// Профиль не найден - первый вход пользователя
		return combat.Progression{}, false, nil
	}
	if err != nil {
		return combat.Progression{}, false, fmt.Errorf("ошибка загрузки профиля %s: %w", userID, err)
	}

	if err := json.Unmarshal([]byte(upgrades), &p.Upgrades); err != nil {
		return combat.Progression{}, false, fmt.Errorf("ошибка разбора улучшений %s: %w", userID, err)
	}
	return p, true, nil
}

// Delete удаляет профиль игрока.
func (r *MariaProfileRepo) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM player_profiles WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления профиля %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", userID, ErrProfileNotFound)
	}
	return nil
}

// BatchSave сохраняет профили нескольких игроков в одной транзакции.
func (r *MariaProfileRepo) BatchSave(ctx context.Context, profiles map[string]combat.Progression) error {
	if len(profiles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	for userID, p := range profiles {
		if err := validateUserID(userID); err != nil {
			return err
		}
		if err := upsertProfile(ctx, tx, userID, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaProfileRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
