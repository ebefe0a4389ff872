package match

import "time"

// DefaultMaxStepsPerFrame предел логических шагов за один кадр
const DefaultMaxStepsPerFrame = 5

// Clock аккумулятор фиксированного шага: переводит реальное время
// в целое число логических тиков
type Clock struct {
	step     time.Duration
	maxSteps int
	acc      time.Duration
	dropped  uint64
}

// NewClock создает часы с шагом step и пределом maxSteps шагов за кадр
func NewClock(step time.Duration, maxSteps int) *Clock {
	if step <= 0 {
		step = time.Second / 60
	}
	if maxSteps < 1 {
		maxSteps = DefaultMaxStepsPerFrame
	}
	return &Clock{step: step, maxSteps: maxSteps}
}

// Step длительность одного логического шага
func (c *Clock) Step() time.Duration { return c.step }

// Dropped сколько шагов было отброшено из-за перегрузки
func (c *Clock) Dropped() uint64 { return c.dropped }

// Advance добавляет прошедшее время и возвращает число шагов к выполнению.
// Избыток сверх maxSteps отбрасывается вместе с накопленным временем.
func (c *Clock) Advance(elapsed time.Duration) int {
	if elapsed > 0 {
		c.acc += elapsed
	}

	steps := int(c.acc / c.step)
	if steps > c.maxSteps {
		c.dropped += uint64(steps - c.maxSteps)
		c.acc %= c.step
		return c.maxSteps
	}

	c.acc -= time.Duration(steps) * c.step
	return steps
}
