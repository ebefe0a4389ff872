// Package sim прогоняет матчи без клиента: автоматический наводчик играет
// за игрока, а Run собирает статистику побед по уровням сложности.
package sim

import (
	"math"
	"math/rand"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/physics"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	elevationSteps = 24
	powerStep      = 2.5
)

// Gunner наводит танк игрока перебором угла и мощности по пробным траекториям.
// Spread добавляет ошибку угла в радианах, чтобы наводчик не был идеальным.
type Gunner struct {
	Spread float64
	rng    *rand.Rand
}

// NewGunner создает наводчика с собственным генератором
func NewGunner(spread float64, seed int64) *Gunner {
	return &Gunner{Spread: spread, rng: rand.New(rand.NewSource(seed))}
}

// Aim выбирает ближайшего противника и выставляет башню и мощность.
// Возвращает ожидаемый промах по горизонтали или false, если целиться не в кого.
func (g *Gunner) Aim(p *combat.Player, enemies []*combat.Enemy, wind float64) (float64, bool) {
	target := nearest(p.Position, enemies)
	if target == nil {
		return 0, false
	}

	yaw := math.Atan2(target.Position.X-p.Position.X, target.Position.Z-p.Position.Z)
	effectiveWind := wind * p.WindResistance()

	bestMiss := math.Inf(1)
	bestElevation, bestPower := p.Elevation, p.Power
	for i := 1; i <= elevationSteps; i++ {
		elevation := combat.MaxElevation * float64(i) / float64(elevationSteps)
		dir := vec.FromYawPitch(yaw, elevation)
		origin := p.Position.Add(dir.Mul(p.BarrelLength))
		for power := p.MinPower(); power <= p.MaxPower(); power += powerStep {
			_, hit := physics.Trajectory(origin, dir.Mul(power), effectiveWind, math.MaxInt32)
			miss := hit.Position.HorizontalDistanceTo(target.Position)
			if miss < bestMiss {
				bestMiss, bestElevation, bestPower = miss, elevation, power
			}
		}
	}

	if g.Spread > 0 {
		yaw += (g.rng.Float64()*2 - 1) * g.Spread
		bestElevation += (g.rng.Float64()*2 - 1) * g.Spread
	}
	p.AimAt(vec.FromYawPitch(yaw, vec.Clamp(bestElevation, 0, combat.MaxElevation)))
	p.Power = bestPower
	return bestMiss, true
}

func nearest(from vec.Vec3, enemies []*combat.Enemy) *combat.Enemy {
	var (
		best     *combat.Enemy
		bestDist = math.Inf(1)
	)
	for _, e := range enemies {
		if e.IsDestroyed() {
			continue
		}
		if d := from.DistanceTo(e.Position); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}
