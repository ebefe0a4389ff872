package terrain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

func classicBase(x, y float64) float64 {
	h := math.Sin(x*10)*2 + math.Sin(x*18+y*13)*1.5 + math.Sin(y*10)*2
	dist := math.Sqrt((x-0.5)*(x-0.5) + (y-0.5)*(y-0.5))
	h += math.Sin(dist*20) * 3
	h += math.Max(0, math.Sin(x*20)*math.Sin(y*20)*3)
	return h * math.Max(0.3, dist*1.5)
}

func TestHeightAtOutOfBoundsIsZero(t *testing.T) {
	h := New(QualityHigh, seeded(1))

	points := [][2]float64{{-50.01, 0}, {50.01, 0}, {0, -51}, {0, 51}, {1000, -1000}}
	for _, p := range points {
		assert.Equal(t, 0.0, h.HeightAt(p[0], p[1]), "вне карты высота должна быть 0: %v", p)
	}
}

func TestHeightAtGridCornersMatchFormula(t *testing.T) {
	h := New(QualityLow, seeded(2))
	require.Equal(t, 50, h.Segments())

	for _, c := range [][2]int{{0, 0}, {10, 20}, {25, 25}, {49, 3}} {
		i, j := c[0], c[1]
		x := float64(i)/50*Size - Size/2
		z := float64(j)/50*Size - Size/2
		base := classicBase(float64(i)/50, float64(j)/50)

		got := h.HeightAt(x, z)
		assert.GreaterOrEqual(t, got, base-1e-9, "узел (%d,%d)", i, j)
		assert.Less(t, got, base+0.5, "шумовая добавка меньше 0.5 в узле (%d,%d)", i, j)
	}
}

func TestHeightAtIsBilinearInsideCell(t *testing.T) {
	h := New(QualityLow, seeded(3))
	cell := Size / 50

	x0, z0 := -10.0, 6.0
	corners := []float64{
		h.HeightAt(x0, z0),
		h.HeightAt(x0+cell, z0),
		h.HeightAt(x0, z0+cell),
		h.HeightAt(x0+cell, z0+cell),
	}
	lo, hi := corners[0], corners[0]
	for _, c := range corners {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}

	for fx := 0.05; fx < 1; fx += 0.15 {
		for fz := 0.05; fz < 1; fz += 0.15 {
			v := h.HeightAt(x0+fx*cell, z0+fz*cell)
			assert.GreaterOrEqual(t, v, lo-1e-9)
			assert.LessOrEqual(t, v, hi+1e-9)
		}
	}
}

func TestHeightAtIsContinuous(t *testing.T) {
	h := New(QualityHigh, seeded(4))
	const eps = 1e-6

	for x := -49.0; x < 49; x += 0.37 {
		z := x * 0.5
		d := math.Abs(h.HeightAt(x+eps, z) - h.HeightAt(x, z))
		assert.Less(t, d, 1e-3, "разрыв высоты в точке x=%.2f", x)
	}
}

func TestSetQualityRebuildsOnlyOnChange(t *testing.T) {
	h := New(QualityHigh, seeded(5))
	before := h.Grid()

	assert.False(t, h.SetQuality(QualityHigh), "тот же уровень не перестраивает сетку")
	assert.Equal(t, before.Heights, h.Grid().Heights)

	assert.True(t, h.SetQuality(QualityLow))
	assert.Equal(t, 50, h.Segments())
	assert.Len(t, h.Grid().Heights, 51*51)
}

func TestRollingStyleRaisesTerrain(t *testing.T) {
	classic := New(QualityLow, seeded(6))
	rolling := New(QualityLow, seeded(6), WithStyle(StyleRolling))

	var diff float64
	for x := -40.0; x <= 40; x += 10 {
		diff += rolling.HeightAt(x, x) - classic.HeightAt(x, x)
	}
	assert.NotZero(t, diff, "шум Перлина должен менять рельеф")
	assert.Equal(t, StyleRolling, rolling.Grid().Style)
}

func TestBoundaries(t *testing.T) {
	h := New(QualityLow, seeded(7))
	b := h.Boundaries()

	assert.Equal(t, Bounds{MinX: -50, MaxX: 50, MinZ: -50, MaxZ: 50}, b)
	x, z := b.ClampXZ(70, -80)
	assert.Equal(t, 50.0, x)
	assert.Equal(t, -50.0, z)
	assert.True(t, b.Contains(0, 0))
	assert.False(t, b.Contains(51, 0))
}
