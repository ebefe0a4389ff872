package match

import (
	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/targeting"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	// resolveDelay пауза после взрыва перед сменой хода, с
	resolveDelay = 1.5
	// enemyThinkDelay пауза перед выбором стрелка, с
	enemyThinkDelay = 1.5
	// enemyFireDelay пауза между выбором решения и выстрелом, с
	enemyFireDelay = 1.0
)

// Phase фаза конечного автомата матча
type Phase string

const (
	PhaseAwaitingPlayerInput Phase = "awaiting_player_input"
	PhasePlayerShotInFlight  Phase = "player_shot_in_flight"
	PhaseResolving           Phase = "resolving"
	PhaseEnemyAiming         Phase = "enemy_aiming"
	PhaseEnemyShotInFlight   Phase = "enemy_shot_in_flight"
	PhaseMatchOver           Phase = "match_over"
)

// Outcome итог матча
type Outcome string

const (
	OutcomeNone       Outcome = ""
	OutcomePlayerWon  Outcome = "player_won"
	OutcomePlayerLost Outcome = "player_lost"
)

// State состояние конечного автомата матча
type State interface {
	Phase() Phase
	Enter(m *Match)
	Update(m *Match) State
	Exit(m *Match)
}

// awaitingPlayerInput ход игрока: принимаются все действия
type awaitingPlayerInput struct{}

func (s *awaitingPlayerInput) Phase() Phase { return PhaseAwaitingPlayerInput }

func (s *awaitingPlayerInput) Enter(m *Match) {
	m.isPlayerTurn = true
	m.shotInProgress = false
	m.turnDisplacement = vec.Zero
	m.turnMovingTime = 0
	m.notify(NotifyTurn, "Ваш ход")
}

func (s *awaitingPlayerInput) Update(m *Match) State { return s }

func (s *awaitingPlayerInput) Exit(m *Match) {}

// shotInFlight снаряд в полете; по одному шагу интегрирования за тик
type shotInFlight struct {
	side combat.Side
}

func (s *shotInFlight) Phase() Phase {
	if s.side == combat.SidePlayer {
		return PhasePlayerShotInFlight
	}
	return PhaseEnemyShotInFlight
}

func (s *shotInFlight) Enter(m *Match) {
	m.shotInProgress = true
	m.notify(NotifyShot, "")
}

func (s *shotInFlight) Update(m *Match) State {
	if m.projectile == nil {
		return &resolving{}
	}
	hit := m.projectile.Update()
	if !hit.Hit {
		return s
	}
	m.resolveHit(hit)
	return &resolving{}
}

func (s *shotInFlight) Exit(m *Match) {}

// resolving пауза на взрыв перед сменой хода
type resolving struct{}

func (s *resolving) Phase() Phase { return PhaseResolving }

func (s *resolving) Enter(m *Match) {
	m.scheduler.After(resolveDelay, "nextTurn", func() {
		if m.state != s {
			return
		}
		m.nextTurn()
	})
}

func (s *resolving) Update(m *Match) State { return s }

func (s *resolving) Exit(m *Match) {}

// enemyAiming ход противника: выбор стрелка, наведение и выстрел
type enemyAiming struct {
	shooter  *combat.Enemy
	solution targeting.Solution
}

func (s *enemyAiming) Phase() Phase { return PhaseEnemyAiming }

func (s *enemyAiming) Enter(m *Match) {
	m.isPlayerTurn = false
	m.notify(NotifyTurn, "Ход противника")

	m.scheduler.After(enemyThinkDelay, "enemyAim", func() {
		if m.state != s {
			return
		}
		shooter := m.pickShooter()
		if shooter == nil {
			m.nextTurn()
			return
		}
		s.shooter = shooter
		m.activeEnemy = shooter
		s.solution = targeting.Prepare(shooter, m.playerTarget(), m.wind, m.rng)
		m.log.Debug("🎯 [%s] %s целится: мощность %.1f, реакция %.1fс, упреждение %v",
			m.id, shooter.ID, s.solution.Power, s.solution.ReactionTime, s.solution.Led)

		m.scheduler.After(enemyFireDelay, "enemyFire", func() {
			if m.state != s {
				return
			}
			s.fire(m)
		})
	})
}

func (s *enemyAiming) Update(m *Match) State {
	if s.shooter != nil {
		s.shooter.AnimateAiming(s.solution.Direction)
	}
	return s
}

func (s *enemyAiming) Exit(m *Match) {}

func (s *enemyAiming) fire(m *Match) {
	s.shooter.AimAt(s.solution.Direction)
	s.shooter.Power = s.solution.Power
	m.launch(s.shooter, s.shooter.FireProjectile(), m.wind)
	m.setState(&shotInFlight{side: combat.SideEnemy})
}

// matchOver терминальная фаза; выйти можно только через Restart
type matchOver struct {
	outcome Outcome
}

func (s *matchOver) Phase() Phase { return PhaseMatchOver }

func (s *matchOver) Enter(m *Match) {
	m.finish(s.outcome)
}

func (s *matchOver) Update(m *Match) State { return s }

func (s *matchOver) Exit(m *Match) {}
