package physics

import (
	"math"

	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	// TimeStep фиксированный шаг интегрирования, не зависит от частоты кадров
	TimeStep = 1.0 / 60.0
	// Gravity ускорение свободного падения
	Gravity = 9.8
	// MaxFlightTime максимальное время полета, после которого снаряд взрывается на месте
	MaxFlightTime = 10.0
	// ExplosionRadius радиус взрыва снаряда
	ExplosionRadius = 5.0
	// WindFactor коэффициент влияния ветра на горизонтальную скорость
	WindFactor = 0.1
	// ArenaHalfSize половина стороны арены; за ее пределами снаряд взрывается
	ArenaHalfSize = 50.0
)

// Hit результат шага симуляции снаряда
type Hit struct {
	Hit             bool     `json:"hit"`
	Position        vec.Vec3 `json:"position"`
	ExplosionRadius float64  `json:"explosionRadius"`
	TimedOut        bool     `json:"timedOut,omitempty"`
}

// Projectile снаряд в полете. Не хранит ссылку на стрелявшего.
type Projectile struct {
	Position  vec.Vec3
	Velocity  vec.Vec3
	TimeAlive float64

	wind    float64
	dt      float64
	maxTime float64
	radius  float64
	ticks   int
	result  *Hit
}

// NewProjectile создает снаряд с начальной позицией, скоростью и силой ветра
func NewProjectile(position, velocity vec.Vec3, wind float64) *Projectile {
	return &Projectile{
		Position: position,
		Velocity: velocity,
		wind:     wind,
		dt:       TimeStep,
		maxTime:  MaxFlightTime,
		radius:   ExplosionRadius,
	}
}

// Wind сила ветра, действующая на снаряд
func (p *Projectile) Wind() float64 { return p.wind }

// Ticks количество выполненных шагов
func (p *Projectile) Ticks() int { return p.ticks }

// Done возвращает true, если снаряд уже взорвался
func (p *Projectile) Done() bool { return p.result != nil }

// Update выполняет один шаг явного метода Эйлера и проверяет условия завершения.
// После попадания повторные вызовы возвращают тот же результат без интегрирования,
// поэтому урон по одному полету разрешается ровно один раз.
func (p *Projectile) Update() Hit {
	if p.result != nil {
		return *p.result
	}

	p.Velocity.Y -= Gravity * p.dt
	p.Velocity.X += p.wind * WindFactor * p.dt
	p.Position = p.Position.Add(p.Velocity.Mul(p.dt))
	p.ticks++
	p.TimeAlive += p.dt

	// Таймаут имеет приоритет над выходом за границы
	if p.TimeAlive > p.maxTime {
		return p.finish(true)
	}

	if p.Position.Y < 0 ||
		math.Abs(p.Position.X) > ArenaHalfSize ||
		math.Abs(p.Position.Z) > ArenaHalfSize {
		return p.finish(false)
	}

	return Hit{Position: p.Position}
}

func (p *Projectile) finish(timedOut bool) Hit {
	hit := Hit{
		Hit:             true,
		Position:        p.Position,
		ExplosionRadius: p.radius,
		TimedOut:        timedOut,
	}
	p.result = &hit
	return hit
}

// MaxTicks верхняя граница количества шагов до гарантированного завершения
func MaxTicks() int {
	return int(math.Round(MaxFlightTime / TimeStep))
}

// Trajectory прогоняет копию снаряда до взрыва и возвращает точки траектории.
// Исходный снаряд не изменяется.
func Trajectory(position, velocity vec.Vec3, wind float64, every int) ([]vec.Vec3, Hit) {
	if every <= 0 {
		every = 1
	}
	p := NewProjectile(position, velocity, wind)
	points := []vec.Vec3{position}
	for {
		hit := p.Update()
		if p.ticks%every == 0 || hit.Hit {
			points = append(points, p.Position)
		}
		if hit.Hit {
			return points, hit
		}
	}
}

// FlightTime оценивает время полета до взрыва
func FlightTime(position, velocity vec.Vec3, wind float64) float64 {
	p := NewProjectile(position, velocity, wind)
	for !p.Update().Hit {
	}
	return p.TimeAlive
}
