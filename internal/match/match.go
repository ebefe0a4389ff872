// Package match координирует пошаговый бой: конечный автомат ходов,
// отложенные продолжения по эпохам и фиксированный логический шаг.
// Match принадлежит одной горутине и не защищен мьютексом.
package match

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/physics"
	"github.com/ShaharFullStack/tdscorchedearth/internal/targeting"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

const (
	victoryCredits    = 100
	victoryExperience = 50
	defeatCredits     = 25
	defeatExperience  = 10

	// maxWind модуль ветра; ветер равномерен в [-maxWind, maxWind]
	maxWind = 5.0
)

// ErrMatchInProgress магазин доступен только между матчами
var ErrMatchInProgress = errors.New("match in progress")

// Options параметры нового матча
type Options struct {
	ID         string
	UserID     string
	Progress   *combat.Progression
	Difficulty combat.Difficulty
	Quality    terrain.Quality
	Style      terrain.Style
	Mobile     bool
	// EnemyCount 0 означает 2–3 противника (2 в мобильном режиме)
	EnemyCount int
	// Seed 0 означает посев от текущего времени
	Seed     int64
	Logger   *logging.Logger
	Notifier Notifier
}

// Match состояние одного боя
type Match struct {
	id         string
	userID     string
	difficulty combat.Difficulty
	opts       Options

	rng       *rand.Rand
	log       *logging.Logger
	notifier  Notifier
	scheduler *Scheduler
	clock     *Clock
	terrain   *terrain.Heightfield

	player      *combat.Player
	enemies     []*combat.Enemy
	activeEnemy *combat.Enemy
	state       State

	turn           int
	wind           float64
	isPlayerTurn   bool
	shotInProgress bool
	outcome        Outcome
	message        string

	projectile    *physics.Projectile
	shot          combat.Shot
	shooterSide   combat.Side
	lastExplosion *vec.Vec3

	turnDisplacement vec.Vec3
	turnMovingTime   float64
	lastTurnVelocity vec.Vec3
}

// New создает матч, расставляет танки и отдает ход игроку
func New(opts Options) *Match {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Quality == "" {
		opts.Quality = terrain.QualityHigh
	}
	progress := combat.NewProgression()
	if opts.Progress != nil {
		progress = *opts.Progress
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	m := &Match{
		id:         opts.ID,
		userID:     opts.UserID,
		difficulty: combat.ParseDifficulty(string(opts.Difficulty)),
		opts:       opts,
		rng:        rng,
		log:        opts.Logger,
		notifier:   opts.Notifier,
		scheduler:  NewScheduler(),
		clock:      NewClock(time.Second/60, DefaultMaxStepsPerFrame),
		terrain:    terrain.New(opts.Quality, terrain.WithRand(rng), terrain.WithStyle(terrain.ParseStyle(string(opts.Style)))),
	}

	m.spawn(progress)
	m.wind = m.rollWind()
	matchesStarted.Inc()
	m.log.Info("🎮 [%s] новый матч: игрок %s, сложность %s, противников %d, ветер %.2f",
		m.id, m.userID, m.difficulty, len(m.enemies), m.wind)

	m.setState(&awaitingPlayerInput{})
	return m
}

// spawn расставляет игрока слева и противников справа
func (m *Match) spawn(progress combat.Progression) {
	bounds := m.terrain.Boundaries()

	px := -40 + m.rng.Float64()*20
	pz := -40 + m.rng.Float64()*20
	m.player = combat.NewPlayer(m.userID, progress, vec.New(px, m.terrain.HeightAt(px, pz)+combat.GroundClearance, pz))
	m.player.PlaceOn(m.terrain)

	count := m.opts.EnemyCount
	if count <= 0 {
		if m.opts.Mobile {
			count = 2
		} else {
			count = 2 + m.rng.Intn(2)
		}
	}

	m.enemies = make([]*combat.Enemy, 0, count)
	for i := 0; i < count; i++ {
		x, z := bounds.ClampXZ(20+m.rng.Float64()*40, -40+m.rng.Float64()*80)
		pos := vec.New(x, m.terrain.HeightAt(x, z)+combat.GroundClearance, z)
		enemy := combat.NewEnemy(fmt.Sprintf("enemy-%d", i+1), m.difficulty, pos, m.rng)
		enemy.PlaceOn(m.terrain)
		m.enemies = append(m.enemies, enemy)
	}
}

func (m *Match) rollWind() float64 {
	return m.rng.Float64()*maxWind*2 - maxWind
}

// ID идентификатор матча
func (m *Match) ID() string { return m.id }

// UserID владелец матча
func (m *Match) UserID() string { return m.userID }

// Phase текущая фаза автомата
func (m *Match) Phase() Phase { return m.state.Phase() }

// Turn номер хода с нуля
func (m *Match) Turn() int { return m.turn }

// Wind текущий ветер
func (m *Match) Wind() float64 { return m.wind }

// Outcome итог матча или OutcomeNone
func (m *Match) Outcome() Outcome { return m.outcome }

// Epoch текущая эпоха планировщика
func (m *Match) Epoch() uint64 { return m.scheduler.Epoch() }

// Tick номер последнего логического тика
func (m *Match) Tick() uint64 { return m.scheduler.Tick() }

// IsPlayerTurn чей сейчас ход
func (m *Match) IsPlayerTurn() bool { return m.isPlayerTurn }

// ShotInProgress летит ли снаряд или идет разбор попадания
func (m *Match) ShotInProgress() bool { return m.shotInProgress }

// Terrain рельеф матча
func (m *Match) Terrain() *terrain.Heightfield { return m.terrain }

// Player танк игрока
func (m *Match) Player() *combat.Player { return m.player }

// Enemies живые противники
func (m *Match) Enemies() []*combat.Enemy {
	out := make([]*combat.Enemy, len(m.enemies))
	copy(out, m.enemies)
	return out
}

// Progress копия прогресса игрока
func (m *Match) Progress() combat.Progression { return m.player.Progress }

// Clock часы фиксированного шага
func (m *Match) Clock() *Clock { return m.clock }

// Advance переводит реальное время в логические шаги и выполняет их
func (m *Match) Advance(elapsed time.Duration) int {
	steps := m.clock.Advance(elapsed)
	for i := 0; i < steps; i++ {
		m.Step()
	}
	return steps
}

// Step один логический тик: продолжения, автомат, движение танков
func (m *Match) Step() {
	ticksTotal.Inc()
	m.scheduler.Advance()

	if next := m.state.Update(m); next != m.state {
		m.setState(next)
	}

	m.updateTanks()
}

func (m *Match) updateTanks() {
	if m.state.Phase() == PhaseMatchOver {
		return
	}

	if m.player.Update(physics.TimeStep, m.terrain) && m.state.Phase() == PhaseAwaitingPlayerInput {
		m.turnDisplacement = m.turnDisplacement.Add(m.player.Velocity().Mul(physics.TimeStep))
		m.turnMovingTime += physics.TimeStep
	}

	for _, e := range m.enemies {
		if e == m.activeEnemy {
			continue
		}
		e.Update(physics.TimeStep, m.terrain, m.player.Position)
	}
}

func (m *Match) setState(next State) {
	var from Phase
	if m.state != nil {
		from = m.state.Phase()
		m.state.Exit(m)
	}
	m.state = next
	m.log.Debug("🔄 [%s] %s → %s (ход %d)", m.id, from, next.Phase(), m.turn)
	next.Enter(m)
}

// HandleAction применяет действие игрока. Вне его хода или при летящем
// снаряде действие молча отбрасывается; возвращает false.
func (m *Match) HandleAction(a Action) bool {
	if err := a.Validate(); err != nil {
		actionsTotal.WithLabelValues("unknown", "invalid").Inc()
		m.log.Debug("⚠️ [%s] неверное действие: %v", m.id, err)
		return false
	}
	if m.state.Phase() != PhaseAwaitingPlayerInput || m.shotInProgress {
		actionsTotal.WithLabelValues(string(a.Type), "ignored").Inc()
		m.log.Trace("🚫 [%s] действие %s отброшено в фазе %s", m.id, a.Type, m.state.Phase())
		return false
	}

	switch a.Type {
	case ActionFire:
		m.firePlayer()
	case ActionRotate:
		m.player.RotateTurret(a.Amount)
	case ActionElevate:
		m.player.AdjustElevation(a.Amount)
	case ActionPower:
		if a.Increase {
			m.player.IncreasePower()
		} else {
			m.player.DecreasePower()
		}
	case ActionMove:
		if !m.player.SetMoving(a.Direction, a.Active) {
			actionsTotal.WithLabelValues(string(a.Type), "ignored").Inc()
			m.notify(NotifyMessage, "Нет топлива")
			return false
		}
	}

	actionsTotal.WithLabelValues(string(a.Type), "accepted").Inc()
	if a.Type != ActionFire {
		m.notify(NotifyAction, "")
	}
	return true
}

func (m *Match) firePlayer() {
	m.player.StopMoving()
	if m.turnMovingTime > 0 {
		m.lastTurnVelocity = m.turnDisplacement.Mul(1 / m.turnMovingTime)
	} else {
		m.lastTurnVelocity = vec.Zero
	}

	shot := m.player.FireProjectile()
	m.launch(m.player, shot, m.wind*m.player.WindResistance())
	m.setState(&shotInFlight{side: combat.SidePlayer})
}

// launch создает единственный снаряд матча
func (m *Match) launch(shooter combat.Combatant, shot combat.Shot, wind float64) {
	m.shotInProgress = true
	m.projectile = physics.NewProjectile(shot.Origin, shot.Velocity, wind)
	m.shot = shot
	m.shooterSide = shooter.State().Side
	shotsTotal.WithLabelValues(string(m.shooterSide)).Inc()
	m.log.Debug("💥 [%s] выстрел %s: урон %.1f, скорость %.1f, ветер %.2f",
		m.id, shooter.State().ID, shot.Damage, shot.Velocity.Length(), wind)
}

func (m *Match) pickShooter() *combat.Enemy {
	if len(m.enemies) == 0 {
		return nil
	}
	return m.enemies[m.rng.Intn(len(m.enemies))]
}

func (m *Match) playerTarget() targeting.Target {
	return targeting.Target{
		Position: m.player.Position,
		Velocity: m.lastTurnVelocity,
	}
}

// resolveHit наносит урон первому задетому танку: сначала игрок, затем противники
func (m *Match) resolveHit(hit physics.Hit) {
	pos := hit.Position
	m.lastExplosion = &pos
	m.projectile = nil

	var reward *combat.Reward
	message := "Промах"

	if m.player.CheckHit(hit.Position, hit.ExplosionRadius) {
		hitsTotal.WithLabelValues(string(combat.SidePlayer)).Inc()
		if m.player.TakeDamage(m.shot.Damage) {
			message = "Ваш танк уничтожен"
		} else {
			message = "Попадание по вашему танку"
		}
	} else if target := m.enemyHitBy(hit); target != nil {
		hitsTotal.WithLabelValues(string(combat.SideEnemy)).Inc()
		message = "Попадание по противнику"
		if target.TakeDamage(m.shot.Damage) {
			m.removeEnemy(target)
			message = "Танк противника уничтожен"
			if m.shooterSide == combat.SidePlayer {
				bounty := m.player.Progress.RecordEnemyDestroyed()
				loot := m.player.Progress.CollectLoot(target.DroppedResources())
				reward = &combat.Reward{
					Credits:    bounty.Credits + loot.Credits,
					Experience: bounty.Experience + loot.Experience,
				}
			}
		}
	}

	m.log.Info("💣 [%s] взрыв (%.1f, %.1f, %.1f), тайм-аут %v: %s",
		m.id, pos.X, pos.Y, pos.Z, hit.TimedOut, message)

	n := m.notification(NotifyExplosion, message)
	n.Explosion = &pos
	n.Reward = reward
	m.message = message
	m.notifier.Notify(n)
}

func (m *Match) enemyHitBy(hit physics.Hit) *combat.Enemy {
	for _, e := range m.enemies {
		if e.CheckHit(hit.Position, hit.ExplosionRadius) {
			return e
		}
	}
	return nil
}

func (m *Match) removeEnemy(target *combat.Enemy) {
	alive := m.enemies[:0]
	for _, e := range m.enemies {
		if e != target && !e.IsDestroyed() {
			alive = append(alive, e)
		}
	}
	m.enemies = alive
}

// nextTurn завершает ход: новый ветер, проверка конца матча, смена стороны
func (m *Match) nextTurn() {
	m.shotInProgress = false
	m.activeEnemy = nil
	m.projectile = nil
	m.turn++
	m.wind = m.rollWind()

	switch {
	case m.player.Health <= 0:
		m.setState(&matchOver{outcome: OutcomePlayerLost})
	case len(m.enemies) == 0:
		m.setState(&matchOver{outcome: OutcomePlayerWon})
	case m.isPlayerTurn:
		m.setState(&enemyAiming{})
	default:
		m.setState(&awaitingPlayerInput{})
	}
}

// finish начисляет итоговую награду ровно один раз за матч
func (m *Match) finish(outcome Outcome) {
	m.outcome = outcome
	m.shotInProgress = false
	m.projectile = nil
	m.activeEnemy = nil
	m.player.StopMoving()

	var reward combat.Reward
	var message string
	if outcome == OutcomePlayerWon {
		reward = m.player.Progress.AwardVictory(victoryCredits, victoryExperience)
		message = "Победа!"
	} else {
		reward = m.player.Progress.RecordDefeat(defeatCredits, defeatExperience)
		message = "Поражение"
	}
	matchesFinished.WithLabelValues(string(outcome)).Inc()
	m.log.Info("🏁 [%s] матч завершен: %s на ходу %d", m.id, outcome, m.turn)

	progress := m.player.Progress
	n := m.notification(NotifyMatchOver, message)
	n.Reward = &reward
	n.Progress = &progress
	m.message = message
	m.notifier.Notify(n)
}

// Restart начинает матч заново на том же рельефе. Эпоха планировщика
// увеличивается, и продолжения прежнего матча больше не сработают.
func (m *Match) Restart() {
	epoch := m.scheduler.Reset()
	m.spawn(m.player.Progress)

	m.turn = 0
	m.wind = m.rollWind()
	m.outcome = OutcomeNone
	m.message = ""
	m.projectile = nil
	m.activeEnemy = nil
	m.shotInProgress = false
	m.lastExplosion = nil
	m.lastTurnVelocity = vec.Zero

	matchesStarted.Inc()
	m.log.Info("🔁 [%s] перезапуск, эпоха %d", m.id, epoch)
	m.setState(&awaitingPlayerInput{})
}

// SetQuality перестраивает рельеф и ставит танки на новую поверхность
func (m *Match) SetQuality(q terrain.Quality) bool {
	if !m.terrain.SetQuality(q) {
		return false
	}
	m.player.PlaceOn(m.terrain)
	for _, e := range m.enemies {
		e.PlaceOn(m.terrain)
	}
	return true
}

// PurchaseUpgrade покупает улучшение по цене текущего уровня.
// Доступно только после завершения матча.
func (m *Match) PurchaseUpgrade(t combat.Upgrade) (level, cost int, err error) {
	if m.state.Phase() != PhaseMatchOver {
		return 0, 0, ErrMatchInProgress
	}
	current, ok := m.player.Progress.Upgrades.Level(t)
	if !ok {
		return 0, 0, fmt.Errorf("%s: %w", t, combat.ErrUnknownUpgrade)
	}
	cost = combat.UpgradeCost(current)
	level, err = m.player.PurchaseUpgrade(t, cost)
	return level, cost, err
}

// Announce отправляет интерфейсу разовое сообщение
func (m *Match) Announce(message string) {
	m.notify(NotifyMessage, message)
}

func (m *Match) notification(kind NotificationKind, message string) Notification {
	enemyHealth := make(map[string]float64, len(m.enemies))
	for _, e := range m.enemies {
		enemyHealth[e.ID] = e.HealthPercent()
	}
	return Notification{
		MatchID:     m.id,
		Kind:        kind,
		Phase:       m.state.Phase(),
		Turn:        m.turn,
		Epoch:       m.scheduler.Epoch(),
		Health:      m.player.HealthPercent(),
		EnemyHealth: enemyHealth,
		Power:       m.player.Power,
		Wind:        m.wind,
		Fuel:        m.player.FuelLevel(),
		Message:     message,
		Outcome:     m.outcome,
	}
}

func (m *Match) notify(kind NotificationKind, message string) {
	if message != "" {
		m.message = message
	}
	m.notifier.Notify(m.notification(kind, message))
}
