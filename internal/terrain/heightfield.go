// Package terrain генерирует карту высот поля боя и отвечает на запросы высоты.
package terrain

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Size сторона квадратной карты в мировых единицах
const Size = 100.0

// Quality уровень детализации сетки
type Quality string

const (
	QualityLow  Quality = "low"
	QualityHigh Quality = "high"
)

// Segments количество сегментов сетки для уровня детализации
func (q Quality) Segments() int {
	if q == QualityLow {
		return 50
	}
	return 100
}

// ParseQuality разбирает строку конфигурации; неизвестные значения дают high
func ParseQuality(s string) Quality {
	if Quality(s) == QualityLow {
		return QualityLow
	}
	return QualityHigh
}

// Style стиль рельефа
type Style string

const (
	// StyleClassic синусоидальный рельеф с выравниванием центра
	StyleClassic Style = "classic"
	// StyleRolling классический рельеф плюс холмы из шума Перлина
	StyleRolling Style = "rolling"
)

// ParseStyle разбирает стиль рельефа; по умолчанию classic
func ParseStyle(s string) Style {
	if Style(s) == StyleRolling {
		return StyleRolling
	}
	return StyleClassic
}

// Bounds границы карты в плоскости XZ
type Bounds struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinZ float64 `json:"minZ"`
	MaxZ float64 `json:"maxZ"`
}

// Contains проверяет, лежит ли точка внутри границ
func (b Bounds) Contains(x, z float64) bool {
	return x >= b.MinX && x <= b.MaxX && z >= b.MinZ && z <= b.MaxZ
}

// ClampXZ прижимает точку к ближайшей допустимой
func (b Bounds) ClampXZ(x, z float64) (float64, float64) {
	return math.Max(b.MinX, math.Min(b.MaxX, x)), math.Max(b.MinZ, math.Min(b.MaxZ, z))
}

// Heightfield карта высот (segments+1)² с билинейной выборкой.
// После генерации неизменна, кроме полной перестройки через SetQuality.
type Heightfield struct {
	mu       sync.RWMutex
	size     float64
	quality  Quality
	segments int
	style    Style
	data     []float64
	rng      *rand.Rand
	rolling  *rollingNoise
}

// Option настраивает карту высот при создании
type Option func(*Heightfield)

// WithRand задает источник случайности для шумовой добавки
func WithRand(rng *rand.Rand) Option {
	return func(h *Heightfield) { h.rng = rng }
}

// WithStyle задает стиль рельефа
func WithStyle(style Style) Option {
	return func(h *Heightfield) { h.style = style }
}

// New создает и сразу генерирует карту высот
func New(quality Quality, opts ...Option) *Heightfield {
	h := &Heightfield{
		size:    Size,
		quality: quality,
		style:   StyleClassic,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.rng == nil {
		h.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if h.style == StyleRolling {
		h.rolling = newRollingNoise(h.rng.Int63())
	}
	h.segments = quality.Segments()
	h.data = h.generate(h.segments)
	return h
}

// generate строит сетку высот для указанного количества сегментов.
// Каждый вызов дает новый шум: детерминированы только синусоидальные члены.
func (h *Heightfield) generate(segments int) []float64 {
	stride := segments + 1
	data := make([]float64, stride*stride)

	for i := 0; i < stride; i++ {
		for j := 0; j < stride; j++ {
			x := float64(i) / float64(segments)
			y := float64(j) / float64(segments)

			height := math.Sin(x*10)*2 +
				math.Sin(x*18+y*13)*1.5 +
				math.Sin(y*10)*2

			// Радиальные гребни
			dx := x - 0.5
			dy := y - 0.5
			dist := math.Sqrt(dx*dx + dy*dy)
			height += math.Sin(dist*20) * 3

			// Пики
			height += math.Max(0, math.Sin(x*20)*math.Sin(y*20)*3)

			if h.rolling != nil {
				height += h.rolling.at(x, y)
			}

			// Центр карты остается ровнее, чтобы танки могли маневрировать
			height *= math.Max(0.3, dist*1.5)

			height += h.rng.Float64() * 0.5

			data[i+j*stride] = height
		}
	}

	return data
}

// HeightAt возвращает высоту в мировой точке (x, z).
// За пределами карты возвращает 0.
func (h *Heightfield) HeightAt(x, z float64) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	localX := (x + h.size/2) / h.size
	localZ := (z + h.size/2) / h.size

	if localX < 0 || localX > 1 || localZ < 0 || localZ > 1 {
		return 0
	}

	seg := h.segments
	gridX := int(math.Min(math.Floor(localX*float64(seg)), float64(seg-1)))
	gridZ := int(math.Min(math.Floor(localZ*float64(seg)), float64(seg-1)))

	fracX := localX*float64(seg) - float64(gridX)
	fracZ := localZ*float64(seg) - float64(gridZ)

	stride := seg + 1
	h00 := h.data[gridX+gridZ*stride]
	h10 := h.data[(gridX+1)+gridZ*stride]
	h01 := h.data[gridX+(gridZ+1)*stride]
	h11 := h.data[(gridX+1)+(gridZ+1)*stride]

	h0 := h00*(1-fracX) + h10*fracX
	h1 := h01*(1-fracX) + h11*fracX
	return h0*(1-fracZ) + h1*fracZ
}

// SetQuality перестраивает сетку, если уровень детализации изменился.
// Возвращает true, если была выполнена перестройка.
func (h *Heightfield) SetQuality(quality Quality) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if quality == h.quality {
		return false
	}
	h.quality = quality
	h.segments = quality.Segments()
	h.data = h.generate(h.segments)
	return true
}

// Quality текущий уровень детализации
func (h *Heightfield) Quality() Quality {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.quality
}

// Segments текущее количество сегментов
func (h *Heightfield) Segments() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.segments
}

// Boundaries возвращает границы карты
func (h *Heightfield) Boundaries() Bounds {
	half := h.size / 2
	return Bounds{MinX: -half, MaxX: half, MinZ: -half, MaxZ: half}
}

// Grid возвращает копию сетки высот для клиента-рендерера
func (h *Heightfield) Grid() Grid {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data := make([]float64, len(h.data))
	copy(data, h.data)
	return Grid{Size: h.size, Segments: h.segments, Style: h.style, Heights: data}
}

// Grid сериализуемая копия карты высот
type Grid struct {
	Size     float64   `json:"size"`
	Segments int       `json:"segments"`
	Style    Style     `json:"style"`
	Heights  []float64 `json:"heights"`
}

// String для логов
func (h *Heightfield) String() string {
	return fmt.Sprintf("Heightfield{quality=%s, segments=%d, style=%s}", h.Quality(), h.Segments(), h.style)
}
