package combat

import (
	"math"

	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	playerMoveSpeed    = 5.0
	playerBaseFuel     = 100.0
	playerFuelRegen    = 0.05
	playerBasePower    = 40.0
	playerMinPower     = 10.0
	playerPowerStep    = 5.0
	playerBarrelLength = 2.0
)

// Direction направление движения игрока относительно башни
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionLeft     Direction = "left"
	DirectionRight    Direction = "right"
)

// Valid проверяет, что направление входит в словарь действий
func (d Direction) Valid() bool {
	switch d {
	case DirectionForward, DirectionBackward, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// Player танк игрока
type Player struct {
	Tank
	UserID   string
	Progress Progression

	fuelRate  float64
	moving    map[Direction]bool
	velocity  vec.Vec3
	turretMul float64
}

// NewPlayer создает танк игрока с учетом купленных улучшений
func NewPlayer(userID string, progress Progression, position vec.Vec3) *Player {
	progress.Normalize()

	p := &Player{
		Tank: Tank{
			ID:           userID,
			Side:         SidePlayer,
			Position:     position,
			Elevation:    0.2,
			Power:        playerBasePower,
			Fuel:         playerBaseFuel,
			MaxFuel:      playerBaseFuel,
			BarrelLength: playerBarrelLength,
			AimSpeed:     1,
		},
		UserID:   userID,
		Progress: progress,
		moving:   make(map[Direction]bool),
	}
	p.applyUpgrades()
	return p
}

// applyUpgrades пересчитывает характеристики и восстанавливает здоровье
func (p *Player) applyUpgrades() {
	u := p.Progress.Upgrades
	p.MaxHealth = 100 + float64(u.ArmorLevel-1)*25
	p.Health = p.MaxHealth
	p.turretMul = 1 + float64(u.TurretSpeed-1)*0.2
	p.fuelRate = 0.5 * (1 - float64(u.FuelEfficiency-1)*0.1)
	p.Power = math.Min(p.Power, p.MaxPower())
}

// TurretRotationSpeed скорость поворота башни с учетом улучшения
func (p *Player) TurretRotationSpeed() float64 { return 0.05 * p.turretMul }

// FuelConsumptionRate расход топлива в секунду движения
func (p *Player) FuelConsumptionRate() float64 { return p.fuelRate }

// MinPower минимальная мощность выстрела
func (p *Player) MinPower() float64 { return playerMinPower }

// MaxPower максимальная мощность выстрела; растет с топливной эффективностью
func (p *Player) MaxPower() float64 {
	return 60 + float64(p.Progress.Upgrades.FuelEfficiency-1)*10
}

// RotateTurret поворачивает башню с учетом скорости башни
func (p *Player) RotateTurret(amount float64) {
	p.TurretAngle = vec.NormalizeAngle(p.TurretAngle + amount*p.turretMul)
}

// IncreasePower увеличивает мощность на шаг
func (p *Player) IncreasePower() {
	p.Power = math.Min(p.MaxPower(), p.Power+playerPowerStep)
}

// DecreasePower уменьшает мощность на шаг
func (p *Player) DecreasePower() {
	p.Power = math.Max(playerMinPower, p.Power-playerPowerStep)
}

// WindResistance доля ветра, действующая на снаряд игрока
func (p *Player) WindResistance() float64 {
	return 1 - float64(p.Progress.Upgrades.WindResistance-1)*0.1
}

// SetMoving включает или выключает движение в направлении.
// Без топлива движение не начинается.
func (p *Player) SetMoving(dir Direction, active bool) bool {
	if !dir.Valid() {
		return false
	}
	if active && p.Fuel <= 0 {
		return false
	}
	if active {
		p.moving[dir] = true
	} else {
		delete(p.moving, dir)
	}
	return true
}

// StopMoving сбрасывает все направления движения
func (p *Player) StopMoving() {
	for dir := range p.moving {
		delete(p.moving, dir)
	}
	p.velocity = vec.Zero
}

// IsMoving возвращает true, если нажато хотя бы одно направление
func (p *Player) IsMoving() bool { return len(p.moving) > 0 }

// Velocity последняя скорость перемещения игрока
func (p *Player) Velocity() vec.Vec3 { return p.velocity }

// moveDirection складывает активные направления относительно курса башни
func (p *Player) moveDirection() vec.Vec3 {
	yaw := p.TurretAngle
	forward := vec.New(math.Sin(yaw), 0, math.Cos(yaw))
	right := vec.New(-math.Cos(yaw), 0, math.Sin(yaw))

	dir := vec.Zero
	if p.moving[DirectionForward] {
		dir = dir.Add(forward)
	}
	if p.moving[DirectionBackward] {
		dir = dir.Sub(forward)
	}
	if p.moving[DirectionRight] {
		dir = dir.Add(right)
	}
	if p.moving[DirectionLeft] {
		dir = dir.Sub(right)
	}
	return dir.Normalized()
}

// Update перемещает танк, расходует и восстанавливает топливо.
// Возвращает true, если танк сдвинулся.
func (p *Player) Update(dt float64, world World) bool {
	if p.destroyed {
		return false
	}

	if !p.IsMoving() {
		p.velocity = vec.Zero
		if p.Fuel < p.MaxFuel {
			p.Fuel = math.Min(p.MaxFuel, p.Fuel+playerFuelRegen*dt)
		}
		return false
	}

	if p.Fuel <= 0 {
		p.StopMoving()
		return false
	}

	p.Fuel = math.Max(0, p.Fuel-p.fuelRate*dt)

	dir := p.moveDirection()
	if p.Fuel <= 0 || dir.Length() == 0 {
		p.velocity = vec.Zero
		return false
	}

	before := p.Position
	next := p.Position.Add(dir.Mul(playerMoveSpeed * dt))
	next.X, next.Z = world.Boundaries().ClampXZ(next.X, next.Z)
	p.Position = next
	p.settle(world)

	p.velocity = p.Position.Sub(before).Horizontal().Mul(1 / dt)
	return true
}

// PlaceOn ставит танк на рельеф
func (p *Player) PlaceOn(world World) {
	p.settle(world)
}

// FireProjectile выстрел игрока; урон растет с улучшением огневой мощи
func (p *Player) FireProjectile() Shot {
	p.Progress.ShotsFired++
	damage := BaseDamage * (1 + float64(p.Progress.Upgrades.Firepower-1)*0.2)
	return p.shot(damage)
}

// TakeDamage учитывает броню: каждый уровень снижает урон на 10%
func (p *Player) TakeDamage(amount float64) bool {
	reduction := float64(p.Progress.Upgrades.ArmorLevel-1) * 0.1
	return p.Tank.TakeDamage(amount * (1 - reduction))
}

// PurchaseUpgrade покупает улучшение и сразу применяет его
func (p *Player) PurchaseUpgrade(t Upgrade, cost int) (int, error) {
	level, err := p.Progress.PurchaseUpgrade(t, cost)
	if err != nil {
		return level, err
	}
	p.applyUpgrades()
	return level, nil
}
