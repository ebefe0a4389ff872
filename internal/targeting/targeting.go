// Package targeting рассчитывает наведение противника: направление ствола,
// мощность выстрела и задержку реакции с учетом сложности.
package targeting

import (
	"math/rand"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/physics"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	// windCompensationFactor поправка на ветер по оси X
	windCompensationFactor = 0.02
	// powerPerUnit мощность на единицу расстояния
	powerPerUnit = 0.8
	// powerJitter разброс мощности
	powerJitter = 10.0
)

// Target то, что противник знает об игроке
type Target struct {
	Position vec.Vec3
	// Velocity средняя скорость игрока за его последний ход
	Velocity vec.Vec3
}

// Solution решение на выстрел
type Solution struct {
	Direction    vec.Vec3 `json:"direction"`
	Power        float64  `json:"power"`
	ReactionTime float64  `json:"reactionTime"`
	AimPoint     vec.Vec3 `json:"aimPoint"`
	Led          bool     `json:"led"`
}

// Prepare рассчитывает выстрел противника по игроку.
// Горизонтальная ошибка сужается с ростом точности, вертикальный разброс
// уменьшается с ростом тактического ИИ. С predictiveAiming точка прицеливания
// выносится вперед на скорость игрока × оценку времени полета.
func Prepare(e *combat.Enemy, target Target, wind float64, rng *rand.Rand) Solution {
	sol := solve(e, target.Position, wind, rng)

	if e.HasAbility(combat.AbilityPredictiveAiming) && target.Velocity.Horizontal().Length() > 0 {
		tof := physics.FlightTime(e.MuzzlePosition(), sol.Direction.Mul(sol.Power), wind)
		lead := target.Velocity.Horizontal().Mul(tof)
		sol = solve(e, target.Position.Add(lead), wind, rng)
		sol.Led = true
	}

	return sol
}

func solve(e *combat.Enemy, aimPoint vec.Vec3, wind float64, rng *rand.Rand) Solution {
	stats := e.Stats
	origin := e.Position

	direction := aimPoint.Sub(origin).Normalized()

	maxRandomness := 1 - stats.Accuracy
	direction.X += maxRandomness - rng.Float64()*maxRandomness*2

	direction.Y += rng.Float64()*(0.2-stats.TacticalAI*0.1) + 0.1
	direction = direction.Normalized()

	if e.HasAbility(combat.AbilityWindCompensation) {
		direction.X -= wind * windCompensationFactor
		direction = direction.Normalized()
	}

	distance := origin.DistanceTo(aimPoint)
	power := vec.Clamp(distance*powerPerUnit+rng.Float64()*powerJitter, stats.MinPower, stats.MaxPower)

	return Solution{
		Direction:    direction,
		Power:        power,
		ReactionTime: stats.ReactionTime,
		AimPoint:     aimPoint,
	}
}
