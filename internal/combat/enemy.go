package combat

import (
	"math"
	"math/rand"

	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

// trackingPeriod как часто умный противник подстраивает башню под игрока, с
const trackingPeriod = 0.5

// Reward ресурсы, которые игрок получает за уничтожение танка
type Reward struct {
	Credits    int `json:"credits"`
	Experience int `json:"experience"`
}

// Enemy танк под управлением ИИ
type Enemy struct {
	Tank
	Difficulty Difficulty
	Stats      Stats
	Equipment  Equipment

	rng        *rand.Rand
	movement   movementState
	trackTimer float64
}

// NewEnemy создает противника с характеристиками уровня сложности
func NewEnemy(id string, difficulty Difficulty, position vec.Vec3, rng *rand.Rand) *Enemy {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	stats := StatsFor(difficulty)
	equipment := EquipmentFor(difficulty)

	e := &Enemy{
		Tank: Tank{
			ID:           id,
			Side:         SideEnemy,
			Position:     position,
			Rotation:     math.Pi,
			TurretAngle:  math.Pi,
			Elevation:    0.3,
			Power:        stats.MinPower,
			Health:       stats.MaxHealth,
			MaxHealth:    stats.MaxHealth,
			Fuel:         stats.MaxFuel,
			MaxFuel:      stats.MaxFuel,
			BarrelLength: equipment.BarrelLength,
			AimSpeed:     stats.AimSpeed,
		},
		Difficulty: difficulty,
		Stats:      stats,
		Equipment:  equipment,
		rng:        rng,
	}
	e.setMovement(&idleState{})
	return e
}

// HasAbility проверяет наличие особой способности
func (e *Enemy) HasAbility(a Ability) bool {
	return e.Equipment.Has(a)
}

// FireProjectile выстрел вдоль ствола с уроном 30 × firepower
func (e *Enemy) FireProjectile() Shot {
	return e.shot(BaseDamage * e.Stats.Firepower)
}

// PlaceOn ставит танк на рельеф
func (e *Enemy) PlaceOn(world World) {
	e.settle(world)
}

// Update один шаг ИИ противника: перемещение по циклу простоя и слежение за игроком
func (e *Enemy) Update(dt float64, world World, player vec.Vec3) {
	if e.destroyed {
		return
	}

	e.trackTimer += dt

	if e.Fuel > 0 {
		next := e.movement.Update(e, world, player, dt)
		if next != e.movement {
			e.setMovement(next)
		}
	}

	if e.trackTimer > trackingPeriod && e.Stats.TacticalAI > 0.6 {
		e.trackTimer = 0
		e.AnimateAiming(player.Sub(e.Position).Normalized())
	}
}

// IsMoving возвращает true, пока противник выполняет перемещение
func (e *Enemy) IsMoving() bool {
	_, ok := e.movement.(*movingState)
	return ok
}

// MoveTarget текущая цель перемещения
func (e *Enemy) MoveTarget() (vec.Vec3, bool) {
	if m, ok := e.movement.(*movingState); ok {
		return m.target, true
	}
	return vec.Zero, false
}

// StartMove начинает перемещение к точке, прижатой к границам карты.
// Без топлива перемещение не начинается.
func (e *Enemy) StartMove(world World, target vec.Vec3) bool {
	if e.destroyed || e.Fuel <= 0 {
		return false
	}
	x, z := world.Boundaries().ClampXZ(target.X, target.Z)
	e.setMovement(&movingState{target: vec.New(x, e.Position.Y, z)})
	return true
}

// ChooseTarget выбирает точку для следующего перемещения.
// Тактический ИИ держит дистанцию 15..40 до игрока, остальные едут в случайную точку.
func (e *Enemy) ChooseTarget(world World, player vec.Vec3) vec.Vec3 {
	current := e.Position
	target := current

	if e.Stats.TacticalAI > 0.7 && e.rng.Float64() < 0.7 {
		distance := current.HorizontalDistanceTo(player)
		toPlayer := player.Sub(current).Horizontal().Normalized()

		switch {
		case distance < 15:
			target = current.Add(toPlayer.Mul(-(10 + e.rng.Float64()*10)))
		case distance > 40:
			target = current.Add(toPlayer.Mul(10 + e.rng.Float64()*10))
		default:
			perpendicular := vec.New(-toPlayer.Z, 0, toPlayer.X).Normalized()
			if e.rng.Float64() < 0.5 {
				perpendicular = perpendicular.Mul(-1)
			}
			target = current.Add(perpendicular.Mul(5 + e.rng.Float64()*10))
		}
	} else {
		angle := e.rng.Float64() * math.Pi * 2
		distance := 5 + e.rng.Float64()*15
		target.X = current.X + math.Sin(angle)*distance
		target.Z = current.Z + math.Cos(angle)*distance
	}

	target.X, target.Z = world.Boundaries().ClampXZ(target.X, target.Z)
	target.Y = current.Y
	return target
}

// DroppedResources награда за уничтожение танка данного уровня сложности
func (e *Enemy) DroppedResources() Reward {
	credits, creditsSpread := 50.0, 30.0
	exp, expSpread := 20.0, 15.0

	switch e.Difficulty {
	case DifficultyEasy:
		credits, creditsSpread, exp, expSpread = 30, 20, 10, 10
	case DifficultyHard:
		credits, creditsSpread, exp, expSpread = 80, 40, 40, 20
	case DifficultyExpert:
		credits, creditsSpread, exp, expSpread = 120, 60, 60, 30
	}

	return Reward{
		Credits:    int(math.Floor(credits + e.rng.Float64()*creditsSpread)),
		Experience: int(math.Floor(exp + e.rng.Float64()*expSpread)),
	}
}

func (e *Enemy) setMovement(state movementState) {
	if e.movement != nil {
		e.movement.Exit(e)
	}
	e.movement = state
	if e.movement != nil {
		e.movement.Enter(e)
	}
}
