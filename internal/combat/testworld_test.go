package combat

import "github.com/ShaharFullStack/tdscorchedearth/internal/terrain"

// flatWorld плоская карта постоянной высоты для тестов
type flatWorld struct {
	height float64
}

func (w flatWorld) HeightAt(x, z float64) float64 {
	if x < -50 || x > 50 || z < -50 || z > 50 {
		return 0
	}
	return w.height
}

func (w flatWorld) Boundaries() terrain.Bounds {
	return terrain.Bounds{MinX: -50, MaxX: 50, MinZ: -50, MaxZ: 50}
}

// slopeWorld наклонная плоскость: высота растет вдоль оси Z
type slopeWorld struct {
	flatWorld
	grade float64
}

func (w slopeWorld) HeightAt(x, z float64) float64 {
	return z * w.grade
}
