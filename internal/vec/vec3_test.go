package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3Arithmetic(t *testing.T) {
	a := New(1, 2, 3)
	b := New(4, 6, 3)

	assert.Equal(t, New(5, 8, 6), a.Add(b))
	assert.Equal(t, New(3, 4, 0), b.Sub(a))
	assert.Equal(t, New(2, 4, 6), a.Mul(2))
	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9, "расстояние между точками")
	assert.InDelta(t, 1.0, b.Normalized().Length(), 1e-9, "нормализованный вектор должен быть единичным")
	assert.Equal(t, Zero, Zero.Normalized(), "нулевой вектор остается нулевым")
}

func TestFromYawPitch(t *testing.T) {
	dir := FromYawPitch(0, 0)
	assert.InDelta(t, 1.0, dir.Z, 1e-9)

	dir = FromYawPitch(math.Pi/2, 0)
	assert.InDelta(t, 1.0, dir.X, 1e-9)

	dir = FromYawPitch(0.7, 0.4)
	assert.InDelta(t, 0.7, math.Atan2(dir.X, dir.Z), 1e-9, "рыскание восстанавливается через atan2")
	assert.InDelta(t, 0.4, math.Asin(dir.Y), 1e-9, "тангаж восстанавливается через asin")
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi, -math.Pi},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, NormalizeAngle(c.in), 1e-9, "угол %v", c.in)
	}
}

func TestLerpAngleTakesShortestArc(t *testing.T) {
	from := math.Pi - 0.1
	to := -math.Pi + 0.1
	got := LerpAngle(from, to, 0.5)
	assert.InDelta(t, math.Pi, got, 1e-9, "интерполяция должна пройти через ±π")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
