package sim

import (
	"context"
	"errors"
	"io"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/match"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
)

// defaultMaxSteps десять минут боя при 60 тиках в секунду
const defaultMaxSteps = 10 * 60 * 60

// Config параметры прогона одной сложности
type Config struct {
	Difficulty combat.Difficulty
	Matches    int
	Seed       int64
	// Spread ошибка наводчика в радианах
	Spread float64
	// MaxSteps ограничение тиков на матч; недоигранный матч считается ничьей
	MaxSteps int
	// Campaign переносит прогресс между матчами и тратит кредиты на улучшения
	Campaign bool
	Logger   *logging.Logger
}

// Result сводка по одной сложности
type Result struct {
	Difficulty combat.Difficulty  `json:"difficulty"`
	Matches    int                `json:"matches"`
	Wins       int                `json:"wins"`
	Losses     int                `json:"losses"`
	Unfinished int                `json:"unfinished"`
	Turns      int                `json:"turns"`
	Shots      int                `json:"shots"`
	Progress   combat.Progression `json:"progress"`
}

// WinRate доля побед среди доигранных матчей
func (r Result) WinRate() float64 {
	finished := r.Wins + r.Losses
	if finished == 0 {
		return 0
	}
	return float64(r.Wins) / float64(finished)
}

// AvgTurns среднее число ходов на матч
func (r Result) AvgTurns() float64 {
	if r.Matches == 0 {
		return 0
	}
	return float64(r.Turns) / float64(r.Matches)
}

// Run играет cfg.Matches матчей подряд. Прерывается между матчами по ctx.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Matches <= 0 {
		return Result{}, errors.New("число матчей должно быть положительным")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewConsoleLogger("sim", io.Discard)
	}

	res := Result{Difficulty: cfg.Difficulty}
	progress := combat.NewProgression()
	gunner := NewGunner(cfg.Spread, cfg.Seed)

	for i := 0; i < cfg.Matches; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !cfg.Campaign {
			progress = combat.NewProgression()
		}

		m := match.New(match.Options{
			ID:         "sim",
			UserID:     "sim",
			Progress:   &progress,
			Difficulty: cfg.Difficulty,
			Quality:    terrain.QualityLow,
			Seed:       cfg.Seed + int64(i) + 1,
			Logger:     cfg.Logger,
		})
		outcome, shots := play(m, gunner, cfg.MaxSteps)

		res.Matches++
		res.Turns += m.Turn()
		res.Shots += shots
		switch outcome {
		case match.OutcomePlayerWon:
			res.Wins++
		case match.OutcomePlayerLost:
			res.Losses++
		default:
			res.Unfinished++
		}

		if cfg.Campaign && m.Phase() == match.PhaseMatchOver {
			spend(m, cfg.Logger)
		}
		progress = m.Progress()
		cfg.Logger.Debug("🎯 [%s] матч %d: %s за %d ходов", cfg.Difficulty, i+1, outcome, m.Turn())
	}

	res.Progress = progress
	return res, nil
}

// play ведет матч до конца или до лимита тиков
func play(m *match.Match, g *Gunner, maxSteps int) (match.Outcome, int) {
	shots := 0
	for step := 0; step < maxSteps; step++ {
		if m.Phase() == match.PhaseMatchOver {
			return m.Outcome(), shots
		}
		if m.Phase() == match.PhaseAwaitingPlayerInput && !m.ShotInProgress() {
			if _, ok := g.Aim(m.Player(), m.Enemies(), m.Wind()); ok && m.HandleAction(match.Action{Type: match.ActionFire}) {
				shots++
			}
		}
		m.Step()
	}
	return m.Outcome(), shots
}

// spend покупает самые дешевые улучшения, пока хватает кредитов
func spend(m *match.Match, log *logging.Logger) {
	for {
		best, bestCost := combat.Upgrade(""), 0
		progress := m.Progress()
		for _, u := range combat.AllUpgrades {
			level, _ := progress.Upgrades.Level(u)
			if level >= combat.MaxUpgradeLevel {
				continue
			}
			if cost := combat.UpgradeCost(level); best == "" || cost < bestCost {
				best, bestCost = u, cost
			}
		}
		if best == "" || bestCost > progress.Credits {
			return
		}
		level, _, err := m.PurchaseUpgrade(best)
		if err != nil {
			return
		}
		log.Trace("🛒 %s → %d", best, level)
	}
}
