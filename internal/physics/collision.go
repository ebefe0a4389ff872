package physics

import (
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

// TankHitMargin запас к радиусу взрыва при проверке попадания по танку
const TankHitMargin = 1.5

// SphereCollider простой сферический коллайдер
type SphereCollider struct {
	Radius float64
}

// NewSphereCollider создаёт коллайдер с указанным радиусом
func NewSphereCollider(radius float64) *SphereCollider {
	return &SphereCollider{Radius: radius}
}

// CheckSphereCollision проверяет пересечение двух сфер
func CheckSphereCollision(pos1 vec.Vec3, c1 *SphereCollider, pos2 vec.Vec3, c2 *SphereCollider) bool {
	return pos1.DistanceTo(pos2) < c1.Radius+c2.Radius
}

// ExplosionHits проверяет, задевает ли взрыв радиуса radius в точке blast
// танк в позиции tank: distance < radius + TankHitMargin.
func ExplosionHits(blast vec.Vec3, radius float64, tank vec.Vec3) bool {
	return CheckSphereCollision(blast, NewSphereCollider(radius), tank, NewSphereCollider(TankHitMargin))
}
