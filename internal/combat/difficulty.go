package combat

import "strings"

// Difficulty уровень сложности противника
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Difficulties все уровни по возрастанию
var Difficulties = []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyExpert}

// ParseDifficulty разбирает строку; неизвестные значения дают normal
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyHard, DifficultyExpert:
		return d
	default:
		return DifficultyNormal
	}
}

// Ability особая способность из снаряжения
type Ability string

const (
	AbilityPredictiveAiming Ability = "predictiveAiming"
	AbilityWindCompensation Ability = "windCompensation"
)

// Stats характеристики противника, зависящие от сложности
type Stats struct {
	MaxHealth       float64 `json:"maxHealth"`
	Accuracy        float64 `json:"accuracy"`
	Firepower       float64 `json:"firepower"`
	AimSpeed        float64 `json:"aimSpeed"`
	MoveSpeed       float64 `json:"moveSpeed"`
	ReactionTime    float64 `json:"reactionTime"`
	TacticalAI      float64 `json:"tacticalAI"`
	MinPower        float64 `json:"minPower"`
	MaxPower        float64 `json:"maxPower"`
	MaxFuel         float64 `json:"maxFuel"`
	FuelConsumption float64 `json:"fuelConsumption"`
	Mobility        float64 `json:"mobility"`
}

// RotationSpeed скорость поворота корпуса, рад/с
func (s Stats) RotationSpeed() float64 { return s.MoveSpeed * 0.3 }

// MoveInterval период между решениями о движении, с
func (s Stats) MoveInterval() float64 { return 10 - s.Mobility*7 }

// MoveDuration максимальная длительность одного перемещения, с
func (s Stats) MoveDuration() float64 { return 1 + s.Mobility*3 }

// Equipment внешний вид и способности танка противника
type Equipment struct {
	BarrelLength     float64   `json:"barrelLength"`
	TurretSize       float64   `json:"turretSize"`
	SpecialAbilities []Ability `json:"specialAbilities"`
}

// Has проверяет наличие способности
func (e Equipment) Has(a Ability) bool {
	for _, ability := range e.SpecialAbilities {
		if ability == a {
			return true
		}
	}
	return false
}

func baseStats() Stats {
	return Stats{
		MaxHealth:       100,
		Accuracy:        0.7,
		Firepower:       1.0,
		AimSpeed:        1.0,
		MoveSpeed:       3.0,
		ReactionTime:    2.0,
		TacticalAI:      0.5,
		MinPower:        20,
		MaxPower:        60,
		MaxFuel:         100,
		FuelConsumption: 0.5,
		Mobility:        0.5,
	}
}

// StatsFor возвращает таблицу характеристик для уровня сложности
func StatsFor(d Difficulty) Stats {
	s := baseStats()

	switch d {
	case DifficultyEasy:
		s.Accuracy = 0.5
		s.Firepower = 0.8
		s.MaxHealth = 80
		s.TacticalAI = 0.3
		s.MoveSpeed = 2.0
		s.Mobility = 0.3
		s.MaxFuel = 80
	case DifficultyHard:
		s.Accuracy = 0.8
		s.Firepower = 1.2
		s.MaxHealth = 120
		s.ReactionTime = 1.5
		s.TacticalAI = 0.7
		s.MinPower = 25
		s.MaxPower = 70
		s.MoveSpeed = 4.0
		s.Mobility = 0.7
		s.MaxFuel = 120
		s.FuelConsumption = 0.4
	case DifficultyExpert:
		s.Accuracy = 0.9
		s.Firepower = 1.5
		s.MaxHealth = 150
		s.ReactionTime = 1.0
		s.TacticalAI = 0.9
		s.MinPower = 30
		s.MaxPower = 80
		s.MoveSpeed = 5.0
		s.Mobility = 0.9
		s.MaxFuel = 150
		s.FuelConsumption = 0.3
	}

	return s
}

// EquipmentFor возвращает снаряжение для уровня сложности.
// Способности накапливаются: expert получает все способности hard.
func EquipmentFor(d Difficulty) Equipment {
	e := Equipment{BarrelLength: 2, TurretSize: 1, SpecialAbilities: []Ability{}}

	switch d {
	case DifficultyHard:
		e.BarrelLength = 2.5
		e.SpecialAbilities = append(e.SpecialAbilities, AbilityPredictiveAiming)
	case DifficultyExpert:
		e.BarrelLength = 3
		e.TurretSize = 1.2
		e.SpecialAbilities = append(e.SpecialAbilities, AbilityPredictiveAiming, AbilityWindCompensation)
	}

	return e
}
