package combat

import (
	"math"

	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	// headingTolerance допустимое отклонение курса перед движением вперед
	headingTolerance = 0.1
	// arrivalDistance расстояние, на котором цель считается достигнутой
	arrivalDistance = 1.0
)

// movementState состояние конечного автомата перемещения противника
type movementState interface {
	Enter(e *Enemy)
	Update(e *Enemy, world World, player vec.Vec3, dt float64) movementState
	Exit(e *Enemy)
}

// === Конкретные состояния ===

// idleState - противник стоит и раз в moveInterval решает, ехать ли
type idleState struct {
	timer float64
}

func (s *idleState) Enter(e *Enemy) {
	s.timer = 0
}

func (s *idleState) Update(e *Enemy, world World, player vec.Vec3, dt float64) movementState {
	s.timer += dt
	if s.timer < e.Stats.MoveInterval() {
		return s
	}
	s.timer = 0

	if e.rng.Float64() < e.Stats.Mobility {
		return &movingState{target: e.ChooseTarget(world, player)}
	}
	return s
}

func (s *idleState) Exit(e *Enemy) {}

// movingState - разворот к цели и движение вперед, пока не доехали
// или не истекло moveDuration
type movingState struct {
	target  vec.Vec3
	elapsed float64
}

func (s *movingState) Enter(e *Enemy) {
	s.elapsed = 0
}

func (s *movingState) Update(e *Enemy, world World, player vec.Vec3, dt float64) movementState {
	moved := false
	arrived := false

	toTarget := s.target.Sub(e.Position).Horizontal()
	targetAngle := math.Atan2(toTarget.X, toTarget.Z)
	angleDiff := vec.NormalizeAngle(targetAngle - e.Rotation)

	if math.Abs(angleDiff) > headingTolerance {
		step := e.Stats.RotationSpeed() * dt
		if angleDiff < 0 {
			step = -step
		}
		e.Rotation = vec.NormalizeAngle(e.Rotation + step)
		moved = true
	} else {
		forward := vec.FromYawPitch(e.Rotation, 0)
		next := e.Position.Add(forward.Mul(e.Stats.MoveSpeed * dt))

		if next.HorizontalDistanceTo(s.target) < arrivalDistance {
			arrived = true
		} else if !world.Boundaries().Contains(next.X, next.Z) {
			// Уперлись в границу карты
			return &idleState{}
		} else {
			e.Position = next
			e.settle(world)
			moved = true
		}
	}

	if moved {
		e.Fuel = math.Max(0, e.Fuel-e.Stats.FuelConsumption*dt)
	}

	s.elapsed += dt
	if arrived || s.elapsed >= e.Stats.MoveDuration() || e.Fuel <= 0 {
		return &idleState{}
	}
	return s
}

func (s *movingState) Exit(e *Enemy) {}
