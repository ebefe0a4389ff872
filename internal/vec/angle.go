package vec

import "math"

// NormalizeAngle приводит угол к диапазону [-π, π]
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle+math.Pi, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle - math.Pi
}

// LerpAngle интерполирует угол по кратчайшей дуге
func LerpAngle(from, to, t float64) float64 {
	return from + NormalizeAngle(to-from)*t
}

// Clamp ограничивает значение диапазоном [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
