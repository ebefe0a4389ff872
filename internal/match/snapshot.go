package match

import (
	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

// TankSnapshot поза и состояние танка для отрисовки
type TankSnapshot struct {
	ID            string      `json:"id"`
	Side          combat.Side `json:"side"`
	Difficulty    string      `json:"difficulty,omitempty"`
	Position      vec.Vec3    `json:"position"`
	Rotation      float64     `json:"rotation"`
	Pitch         float64     `json:"pitch"`
	Roll          float64     `json:"roll"`
	TurretAngle   float64     `json:"turretAngle"`
	Elevation     float64     `json:"elevation"`
	Power         float64     `json:"power"`
	Health        float64     `json:"health"`
	MaxHealth     float64     `json:"maxHealth"`
	HealthPercent float64     `json:"healthPercent"`
	FuelPercent   float64     `json:"fuelPercent"`
	Tint          float64     `json:"tint"`
	Destroyed     bool        `json:"destroyed"`
	Moving        bool        `json:"moving"`
}

// ProjectileSnapshot состояние летящего снаряда
type ProjectileSnapshot struct {
	Position  vec.Vec3 `json:"position"`
	Velocity  vec.Vec3 `json:"velocity"`
	TimeAlive float64  `json:"timeAlive"`
	Wind      float64  `json:"wind"`
}

// Snapshot неизменяемая копия матча для читателей вне горутины сессии
type Snapshot struct {
	MatchID        string              `json:"matchId"`
	UserID         string              `json:"userId"`
	Phase          Phase               `json:"phase"`
	Turn           int                 `json:"turn"`
	Tick           uint64              `json:"tick"`
	Epoch          uint64              `json:"epoch"`
	Wind           float64             `json:"wind"`
	IsPlayerTurn   bool                `json:"isPlayerTurn"`
	ShotInProgress bool                `json:"shotInProgress"`
	Player         TankSnapshot        `json:"player"`
	Enemies        []TankSnapshot      `json:"enemies"`
	Projectile     *ProjectileSnapshot `json:"projectile,omitempty"`
	LastExplosion  *vec.Vec3           `json:"lastExplosion,omitempty"`
	Message        string              `json:"message,omitempty"`
	Outcome        Outcome             `json:"outcome,omitempty"`
	Quality        terrain.Quality     `json:"quality"`
	Bounds         terrain.Bounds      `json:"bounds"`
	Progress       combat.Progression  `json:"progress"`
}

func tankSnapshot(t *combat.Tank) TankSnapshot {
	return TankSnapshot{
		ID:            t.ID,
		Side:          t.Side,
		Position:      t.Position,
		Rotation:      t.Rotation,
		Pitch:         t.Pitch,
		Roll:          t.Roll,
		TurretAngle:   t.TurretAngle,
		Elevation:     t.Elevation,
		Power:         t.Power,
		Health:        t.Health,
		MaxHealth:     t.MaxHealth,
		HealthPercent: t.HealthPercent(),
		FuelPercent:   t.FuelLevel(),
		Tint:          t.Tint,
		Destroyed:     t.IsDestroyed(),
	}
}

// Snapshot снимает копию состояния матча
func (m *Match) Snapshot() Snapshot {
	player := tankSnapshot(m.player.State())
	player.Moving = m.player.IsMoving()

	enemies := make([]TankSnapshot, 0, len(m.enemies))
	for _, e := range m.enemies {
		ts := tankSnapshot(e.State())
		ts.Difficulty = string(e.Difficulty)
		ts.Moving = e.IsMoving()
		enemies = append(enemies, ts)
	}

	snap := Snapshot{
		MatchID:        m.id,
		UserID:         m.userID,
		Phase:          m.state.Phase(),
		Turn:           m.turn,
		Tick:           m.scheduler.Tick(),
		Epoch:          m.scheduler.Epoch(),
		Wind:           m.wind,
		IsPlayerTurn:   m.isPlayerTurn,
		ShotInProgress: m.shotInProgress,
		Player:         player,
		Enemies:        enemies,
		Message:        m.message,
		Outcome:        m.outcome,
		Quality:        m.terrain.Quality(),
		Bounds:         m.terrain.Boundaries(),
		Progress:       m.player.Progress,
	}
	if m.projectile != nil {
		snap.Projectile = &ProjectileSnapshot{
			Position:  m.projectile.Position,
			Velocity:  m.projectile.Velocity,
			TimeAlive: m.projectile.TimeAlive,
			Wind:      m.projectile.Wind(),
		}
	}
	if m.lastExplosion != nil {
		pos := *m.lastExplosion
		snap.LastExplosion = &pos
	}
	return snap
}
