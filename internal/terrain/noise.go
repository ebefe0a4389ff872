package terrain

import (
	"github.com/aquilax/go-perlin"
)

// rollingNoise накладывает на классический рельеф холмы из шума Перлина
type rollingNoise struct {
	perlin *perlin.Perlin
	scale  float64
	amp    float64
}

func newRollingNoise(seed int64) *rollingNoise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &rollingNoise{
		perlin: perlin.NewPerlin(alpha, beta, n, seed),
		scale:  4.0,
		amp:    2.5,
	}
}

// at возвращает смещение высоты для нормализованных координат (0..1).
// Шум Перлина отдает значения от -1 до 1, переводим их в диапазон 0..1.
func (r *rollingNoise) at(x, y float64) float64 {
	noise := r.perlin.Noise2D(x*r.scale, y*r.scale)
	return (noise + 1.0) / 2.0 * r.amp
}
