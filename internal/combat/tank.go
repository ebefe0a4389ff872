// Package combat описывает участников боя: танк игрока и танки противника.
package combat

import (
	"math"

	"github.com/ShaharFullStack/tdscorchedearth/internal/physics"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	// MaxElevation максимальный угол возвышения ствола
	MaxElevation = math.Pi / 3
	// AimTolerance порог сходимости плавного прицеливания
	AimTolerance = 0.01
	// BaseDamage базовый урон снаряда до множителей
	BaseDamage = 30.0
	// GroundClearance высота корпуса над поверхностью
	GroundClearance = 1.0
	// damageTintThreshold доля здоровья, ниже которой корпус темнеет
	damageTintThreshold = 0.7
)

// Side сторона конфликта
type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
)

// World то, что танку нужно знать о поле боя
type World interface {
	HeightAt(x, z float64) float64
	Boundaries() terrain.Bounds
}

// Shot параметры выстрела: откуда, с какой скоростью и какой урон
type Shot struct {
	Origin   vec.Vec3 `json:"origin"`
	Velocity vec.Vec3 `json:"velocity"`
	Damage   float64  `json:"damage"`
}

// Combatant общий набор возможностей игрока и противника
type Combatant interface {
	State() *Tank
	AimAt(direction vec.Vec3)
	AnimateAiming(direction vec.Vec3) bool
	TakeDamage(amount float64) bool
	CheckHit(position vec.Vec3, radius float64) bool
	FireProjectile() Shot
	IsDestroyed() bool
}

// Tank состояние корпуса и башни, общее для игрока и противника.
// Углы башни заданы в мировой системе и не зависят от поворота корпуса.
type Tank struct {
	ID           string
	Side         Side
	Position     vec.Vec3
	Rotation     float64
	Pitch        float64
	Roll         float64
	TurretAngle  float64
	Elevation    float64
	Power        float64
	Health       float64
	MaxHealth    float64
	Fuel         float64
	MaxFuel      float64
	BarrelLength float64
	AimSpeed     float64
	Tint         float64

	destroyed bool
}

// State возвращает указатель на состояние танка
func (t *Tank) State() *Tank { return t }

// IsDestroyed возвращает true после уничтожения; переход необратим
func (t *Tank) IsDestroyed() bool { return t.destroyed }

// TurretDirection единичный вектор направления ствола
func (t *Tank) TurretDirection() vec.Vec3 {
	return vec.FromYawPitch(t.TurretAngle, t.Elevation)
}

// MuzzlePosition мировая позиция дульного среза
func (t *Tank) MuzzlePosition() vec.Vec3 {
	return t.Position.Add(t.TurretDirection().Mul(t.BarrelLength))
}

// AimAt мгновенно наводит башню по направлению
func (t *Tank) AimAt(direction vec.Vec3) {
	t.TurretAngle = math.Atan2(direction.X, direction.Z)
	t.Elevation = clampElevation(math.Asin(vec.Clamp(direction.Y, -1, 1)))
}

// AnimateAiming поворачивает башню на долю оставшегося угла.
// Возвращает true, когда оба угла сошлись с точностью AimTolerance.
func (t *Tank) AnimateAiming(direction vec.Vec3) bool {
	targetAngle := math.Atan2(direction.X, direction.Z)
	targetElevation := clampElevation(math.Asin(vec.Clamp(direction.Y, -1, 1)))

	angleDiff := vec.NormalizeAngle(targetAngle - t.TurretAngle)
	elevationDiff := targetElevation - t.Elevation

	t.TurretAngle = vec.NormalizeAngle(t.TurretAngle + angleDiff*t.AimSpeed*0.1)
	t.Elevation = clampElevation(t.Elevation + elevationDiff*t.AimSpeed*0.1)

	return math.Abs(angleDiff) < AimTolerance && math.Abs(elevationDiff) < AimTolerance
}

// AdjustElevation изменяет угол возвышения в пределах [0, π/3]
func (t *Tank) AdjustElevation(delta float64) {
	t.Elevation = clampElevation(t.Elevation + delta)
}

// CheckHit сферическая проверка попадания взрыва по танку
func (t *Tank) CheckHit(position vec.Vec3, radius float64) bool {
	if t.destroyed {
		return false
	}
	return physics.ExplosionHits(position, radius, t.Position)
}

// TakeDamage уменьшает здоровье; возвращает true, если танк уничтожен
func (t *Tank) TakeDamage(amount float64) bool {
	if t.destroyed {
		return true
	}
	if amount < 0 {
		amount = 0
	}

	t.Health = math.Max(0, t.Health-amount)

	ratio := t.Health / t.MaxHealth
	if ratio < damageTintThreshold {
		t.Tint = 1 - ratio
	}

	if t.Health <= 0 {
		t.destroyed = true
	}
	return t.destroyed
}

// HealthPercent здоровье в процентах 0..100
func (t *Tank) HealthPercent() float64 {
	if t.MaxHealth <= 0 {
		return 0
	}
	return t.Health / t.MaxHealth * 100
}

// FuelLevel запас топлива в процентах 0..100
func (t *Tank) FuelLevel() float64 {
	if t.MaxFuel <= 0 {
		return 0
	}
	return t.Fuel / t.MaxFuel * 100
}

// RefillFuel доливает топливо; amount <= 0 означает полный бак
func (t *Tank) RefillFuel(amount float64) float64 {
	if amount <= 0 {
		t.Fuel = t.MaxFuel
	} else {
		t.Fuel = math.Min(t.MaxFuel, t.Fuel+amount)
	}
	return t.Fuel
}

// shot собирает выстрел вдоль текущего направления ствола
func (t *Tank) shot(damage float64) Shot {
	return Shot{
		Origin:   t.MuzzlePosition(),
		Velocity: t.TurretDirection().Mul(t.Power),
		Damage:   damage,
	}
}

// settle ставит танк на поверхность и наклоняет корпус по склону
func (t *Tank) settle(world World) {
	pos := t.Position
	pos.Y = world.HeightAt(pos.X, pos.Z) + GroundClearance
	t.Position = pos

	forward := vec.FromYawPitch(t.Rotation, 0)
	right := vec.New(math.Cos(t.Rotation), 0, -math.Sin(t.Rotation))

	center := world.HeightAt(pos.X, pos.Z)
	ahead := world.HeightAt(pos.X+forward.X, pos.Z+forward.Z)
	side := world.HeightAt(pos.X+right.X, pos.Z+right.Z)

	pitch := math.Atan2(ahead-center, 1)
	roll := math.Atan2(side-center, 1)

	t.Pitch = vec.LerpAngle(t.Pitch, pitch, 0.1)
	t.Roll = vec.LerpAngle(t.Roll, -roll, 0.1)
}

func clampElevation(e float64) float64 {
	return vec.Clamp(e, 0, MaxElevation)
}
