package combat

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

func TestTakeDamageDestroysAtZero(t *testing.T) {
	// Танк с 40/100 здоровья получает 50 урона
	tank := &Tank{Health: 40, MaxHealth: 100}

	destroyed := tank.TakeDamage(50)

	assert.True(t, destroyed, "TakeDamage должен вернуть true")
	assert.Equal(t, 0.0, tank.Health, "здоровье не уходит ниже нуля")
	assert.True(t, tank.IsDestroyed())
}

func TestTakeDamageIsOneWay(t *testing.T) {
	tank := &Tank{Health: 100, MaxHealth: 100}

	assert.False(t, tank.TakeDamage(20))
	assert.Equal(t, 80.0, tank.Health)
	assert.Equal(t, 0.0, tank.Tint, "при 80% здоровья корпус не темнеет")

	tank.TakeDamage(40)
	assert.InDelta(t, 0.6, tank.Tint, 1e-9, "оттенок равен 1 - доля здоровья")

	require.True(t, tank.TakeDamage(100))
	assert.True(t, tank.TakeDamage(0), "уничтоженный танк остается уничтоженным")
	assert.True(t, tank.TakeDamage(-50), "отрицательный урон не лечит")
	assert.Equal(t, 0.0, tank.Health)
	assert.False(t, tank.CheckHit(tank.Position, 100), "по уничтоженному танку не попасть")
}

func TestHealthIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tank := &Tank{Health: 150, MaxHealth: 150}

	last := tank.Health
	wasDestroyed := false
	for i := 0; i < 100; i++ {
		tank.TakeDamage(rng.Float64()*20 - 5)
		assert.LessOrEqual(t, tank.Health, last)
		if wasDestroyed {
			assert.True(t, tank.IsDestroyed())
		}
		wasDestroyed = tank.IsDestroyed()
		last = tank.Health
	}
}

func TestElevationAlwaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tank := &Tank{AimSpeed: 1}

	for i := 0; i < 500; i++ {
		switch i % 3 {
		case 0:
			tank.AdjustElevation(rng.Float64()*4 - 2)
		case 1:
			tank.AimAt(vec.New(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1).Normalized())
		default:
			tank.AnimateAiming(vec.New(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1).Normalized())
		}
		assert.GreaterOrEqual(t, tank.Elevation, 0.0)
		assert.LessOrEqual(t, tank.Elevation, math.Pi/3)
	}
}

func TestAimAtSnapsToDirection(t *testing.T) {
	tank := &Tank{}
	dir := vec.FromYawPitch(0.8, 0.5)

	tank.AimAt(dir)

	assert.InDelta(t, 0.8, tank.TurretAngle, 1e-9)
	assert.InDelta(t, 0.5, tank.Elevation, 1e-9)
	assert.InDelta(t, 0.0, tank.TurretDirection().Sub(dir).Length(), 1e-9)

	tank.AimAt(vec.New(0, -1, 0))
	assert.Equal(t, 0.0, tank.Elevation, "стрелять вниз нельзя")
}

func TestAnimateAimingConverges(t *testing.T) {
	tank := &Tank{TurretAngle: math.Pi, Elevation: 0.3, AimSpeed: 1}
	dir := vec.FromYawPitch(-2.5, 0.6)

	converged := false
	for i := 0; i < 200 && !converged; i++ {
		converged = tank.AnimateAiming(dir)
	}

	require.True(t, converged, "прицеливание должно сойтись")
	assert.InDelta(t, -2.5, tank.TurretAngle, 0.02)
	assert.InDelta(t, 0.6, tank.Elevation, 0.02)
}

func TestAnimateAimingBelowHorizonSettlesAtZero(t *testing.T) {
	tank := &Tank{TurretAngle: 0, Elevation: 0.3, AimSpeed: 1}
	dir := vec.FromYawPitch(0.4, -0.5)

	converged := false
	for i := 0; i < 200 && !converged; i++ {
		converged = tank.AnimateAiming(dir)
	}

	require.True(t, converged, "цель ниже горизонта тоже даёт готовность")
	assert.InDelta(t, 0.4, tank.TurretAngle, 0.02)
	assert.InDelta(t, 0, tank.Elevation, 0.02)
	assert.GreaterOrEqual(t, tank.Elevation, 0.0)
}

func TestAnimateAimingMovesTenPercent(t *testing.T) {
	tank := &Tank{TurretAngle: 0, Elevation: 0, AimSpeed: 1}
	done := tank.AnimateAiming(vec.FromYawPitch(1, 0.5))

	assert.False(t, done)
	assert.InDelta(t, 0.1, tank.TurretAngle, 1e-9)
	assert.InDelta(t, 0.05, tank.Elevation, 1e-9)
}

func TestCheckHitSphere(t *testing.T) {
	tank := &Tank{Position: vec.New(0, 1, 0), Health: 100, MaxHealth: 100}

	assert.True(t, tank.CheckHit(vec.New(6.4, 1, 0), 5))
	assert.False(t, tank.CheckHit(vec.New(6.6, 1, 0), 5))
}

func TestMuzzlePosition(t *testing.T) {
	tank := &Tank{Position: vec.New(1, 2, 3), BarrelLength: 2}
	muzzle := tank.MuzzlePosition()
	assert.InDelta(t, 5.0, muzzle.Z, 1e-9, "ствол смотрит вдоль +Z при нулевых углах")
}

func TestFuelRefill(t *testing.T) {
	tank := &Tank{Fuel: 10, MaxFuel: 80}
	assert.Equal(t, 12.5, tank.FuelLevel())
	assert.Equal(t, 30.0, tank.RefillFuel(20))
	assert.Equal(t, 80.0, tank.RefillFuel(500))
	tank.Fuel = 0
	assert.Equal(t, 80.0, tank.RefillFuel(0), "без количества бак заправляется полностью")
}

func TestSettleTiltsOnSlope(t *testing.T) {
	tank := &Tank{Position: vec.New(0, 0, 10)}
	world := slopeWorld{grade: 0.5}

	for i := 0; i < 100; i++ {
		tank.settle(world)
	}

	assert.InDelta(t, 6.0, tank.Position.Y, 1e-9, "корпус стоит на высоте рельефа + 1")
	assert.InDelta(t, math.Atan2(0.5, 1), tank.Pitch, 1e-3, "наклон вперед по склону")
	assert.InDelta(t, 0.0, tank.Roll, 1e-9)
}
