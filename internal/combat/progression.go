package combat

import (
	"errors"
	"fmt"
)

// MaxUpgradeLevel максимальный уровень любого улучшения
const MaxUpgradeLevel = 5

var (
	// ErrInsufficientCredits не хватает кредитов на покупку
	ErrInsufficientCredits = errors.New("not enough credits")
	// ErrUnknownUpgrade неизвестный тип улучшения
	ErrUnknownUpgrade = errors.New("unknown upgrade type")
	// ErrUpgradeMaxed улучшение уже на максимальном уровне
	ErrUpgradeMaxed = errors.New("upgrade already at maximum level")
)

// Upgrade тип улучшения танка игрока
type Upgrade string

const (
	UpgradeArmor          Upgrade = "armorLevel"
	UpgradeFirepower      Upgrade = "firepower"
	UpgradeFuelEfficiency Upgrade = "fuelEfficiency"
	UpgradeTurretSpeed    Upgrade = "turretSpeed"
	UpgradeRadarRange     Upgrade = "radarRange"
	UpgradeWindResistance Upgrade = "windResistance"
)

// AllUpgrades все типы улучшений
var AllUpgrades = []Upgrade{
	UpgradeArmor,
	UpgradeFirepower,
	UpgradeFuelEfficiency,
	UpgradeTurretSpeed,
	UpgradeRadarRange,
	UpgradeWindResistance,
}

// Upgrades уровни улучшений, каждый в диапазоне [1, 5]
type Upgrades struct {
	ArmorLevel     int `json:"armorLevel"`
	Firepower      int `json:"firepower"`
	FuelEfficiency int `json:"fuelEfficiency"`
	TurretSpeed    int `json:"turretSpeed"`
	RadarRange     int `json:"radarRange"`
	WindResistance int `json:"windResistance"`
}

// DefaultUpgrades все улучшения на первом уровне
func DefaultUpgrades() Upgrades {
	return Upgrades{
		ArmorLevel:     1,
		Firepower:      1,
		FuelEfficiency: 1,
		TurretSpeed:    1,
		RadarRange:     1,
		WindResistance: 1,
	}
}

func (u *Upgrades) slot(t Upgrade) (*int, bool) {
	switch t {
	case UpgradeArmor:
		return &u.ArmorLevel, true
	case UpgradeFirepower:
		return &u.Firepower, true
	case UpgradeFuelEfficiency:
		return &u.FuelEfficiency, true
	case UpgradeTurretSpeed:
		return &u.TurretSpeed, true
	case UpgradeRadarRange:
		return &u.RadarRange, true
	case UpgradeWindResistance:
		return &u.WindResistance, true
	}
	return nil, false
}

// Level возвращает текущий уровень улучшения
func (u Upgrades) Level(t Upgrade) (int, bool) {
	p, ok := u.slot(t)
	if !ok {
		return 0, false
	}
	return *p, true
}

// UpgradeCost стоимость перехода с уровня level на следующий
func UpgradeCost(level int) int {
	return 200 * level
}

// Progression прогресс игрока между матчами
type Progression struct {
	Credits        int      `json:"credits"`
	Experience     int      `json:"experience"`
	Level          int      `json:"level"`
	Victories      int      `json:"victories"`
	Defeats        int      `json:"defeats"`
	ShotsFired     int      `json:"shotsFired"`
	TanksDestroyed int      `json:"tanksDestroyed"`
	GamesPlayed    int      `json:"gamesPlayed"`
	Upgrades       Upgrades `json:"upgrades"`
}

// NewProgression стартовый прогресс нового игрока
func NewProgression() Progression {
	return Progression{
		Credits:  1000,
		Level:    1,
		Upgrades: DefaultUpgrades(),
	}
}

// Normalize чинит записи, сохраненные без уровней или улучшений
func (p *Progression) Normalize() {
	if p.Level < 1 {
		p.Level = 1
	}
	for _, t := range AllUpgrades {
		slot, _ := p.Upgrades.slot(t)
		if *slot < 1 {
			*slot = 1
		}
		if *slot > MaxUpgradeLevel {
			*slot = MaxUpgradeLevel
		}
	}
}

// LevelUp переводит игрока на следующие уровни, пока хватает опыта.
// Каждый уровень требует level × 100 опыта.
func (p *Progression) LevelUp() bool {
	leveled := false
	for p.Experience >= p.Level*100 {
		p.Experience -= p.Level * 100
		p.Level++
		leveled = true
	}
	return leveled
}

// AwardVictory начисляет награду за победу в матче
func (p *Progression) AwardVictory(credits, experience int) Reward {
	p.Victories++
	p.GamesPlayed++
	return p.grant(credits, experience)
}

// RecordDefeat начисляет утешительную награду за поражение
func (p *Progression) RecordDefeat(credits, experience int) Reward {
	p.Defeats++
	p.GamesPlayed++
	return p.grant(credits, experience)
}

// RecordEnemyDestroyed +50 кредитов и +25 опыта за уничтоженный танк
func (p *Progression) RecordEnemyDestroyed() Reward {
	p.TanksDestroyed++
	return p.grant(50, 25)
}

// CollectLoot зачисляет ресурсы, выпавшие из уничтоженного танка
func (p *Progression) CollectLoot(loot Reward) Reward {
	return p.grant(loot.Credits, loot.Experience)
}

func (p *Progression) grant(credits, experience int) Reward {
	p.Credits += credits
	p.Experience += experience
	p.LevelUp()
	return Reward{Credits: credits, Experience: experience}
}

// PurchaseUpgrade списывает кредиты и повышает уровень улучшения
func (p *Progression) PurchaseUpgrade(t Upgrade, cost int) (int, error) {
	if p.Credits < cost {
		return 0, fmt.Errorf("%s: %w", t, ErrInsufficientCredits)
	}
	slot, ok := p.Upgrades.slot(t)
	if !ok {
		return 0, fmt.Errorf("%s: %w", t, ErrUnknownUpgrade)
	}
	if *slot >= MaxUpgradeLevel {
		return *slot, fmt.Errorf("%s: %w", t, ErrUpgradeMaxed)
	}

	p.Credits -= cost
	*slot++
	return *slot, nil
}
