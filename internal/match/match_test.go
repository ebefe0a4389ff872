package match

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/physics"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

type recorder struct {
	events []Notification
}

func (r *recorder) Notify(n Notification) { r.events = append(r.events, n) }

func (r *recorder) count(kind NotificationKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last(kind NotificationKind) (Notification, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Notification{}, false
}

func newTestMatch(t *testing.T, opts Options) (*Match, *recorder) {
	t.Helper()
	rec := &recorder{}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	if opts.ID == "" {
		opts.ID = "test-match"
	}
	if opts.UserID == "" {
		opts.UserID = "guest-test"
	}
	opts.Quality = terrain.QualityLow
	opts.Logger = logging.NewConsoleLogger("match", io.Discard)
	opts.Notifier = rec
	return New(opts), rec
}

// runUntil крутит тики, пока матч не войдет в фазу
func runUntil(t *testing.T, m *Match, phase Phase, limit int) {
	t.Helper()
	for i := 0; i < limit && m.Phase() != phase; i++ {
		m.Step()
	}
	require.Equal(t, phase, m.Phase(), "фаза не достигнута за %d тиков", limit)
}

// landing точка взрыва текущего снаряда без изменения его состояния
func landing(t *testing.T, m *Match) vec.Vec3 {
	t.Helper()
	require.NotNil(t, m.projectile)
	_, hit := physics.Trajectory(m.projectile.Position, m.projectile.Velocity, m.projectile.Wind(), 0)
	return hit.Position
}

func TestNewMatchSpawns(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		m, _ := newTestMatch(t, Options{Seed: seed})

		assert.Equal(t, PhaseAwaitingPlayerInput, m.Phase())
		assert.True(t, m.IsPlayerTurn())
		assert.False(t, m.ShotInProgress())
		assert.Equal(t, 0, m.Turn())
		assert.GreaterOrEqual(t, m.Wind(), -5.0)
		assert.LessOrEqual(t, m.Wind(), 5.0)

		p := m.Player().Position
		assert.GreaterOrEqual(t, p.X, -40.0)
		assert.LessOrEqual(t, p.X, -20.0)
		assert.GreaterOrEqual(t, p.Z, -40.0)
		assert.LessOrEqual(t, p.Z, -20.0)
		assert.InDelta(t, m.Terrain().HeightAt(p.X, p.Z)+combat.GroundClearance, p.Y, 1e-9)

		enemies := m.Enemies()
		assert.GreaterOrEqual(t, len(enemies), 2)
		assert.LessOrEqual(t, len(enemies), 3)
		for _, e := range enemies {
			assert.GreaterOrEqual(t, e.Position.X, 20.0)
			assert.LessOrEqual(t, e.Position.X, 50.0, "противник не выходит за карту")
			assert.GreaterOrEqual(t, e.Position.Z, -40.0)
			assert.LessOrEqual(t, e.Position.Z, 40.0)
			assert.Equal(t, combat.DifficultyNormal, e.Difficulty)
		}
	}
}

func TestMobileModeSpawnsTwoEnemies(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		m, _ := newTestMatch(t, Options{Seed: seed, Mobile: true})
		assert.Len(t, m.Enemies(), 2)
	}
}

func TestMatchOptions(t *testing.T) {
	progress := combat.NewProgression()
	progress.Upgrades.ArmorLevel = 3

	m, _ := newTestMatch(t, Options{
		EnemyCount: 4,
		Difficulty: combat.DifficultyExpert,
		Progress:   &progress,
	})

	require.Len(t, m.Enemies(), 4)
	for _, e := range m.Enemies() {
		assert.Equal(t, combat.DifficultyExpert, e.Difficulty)
		assert.Equal(t, 150.0, e.MaxHealth)
	}
	assert.Equal(t, 150.0, m.Player().MaxHealth)
}

func TestPlayerActions(t *testing.T) {
	m, rec := newTestMatch(t, Options{})
	p := m.Player()

	require.True(t, m.HandleAction(Action{Type: ActionRotate, Amount: 0.3}))
	assert.InDelta(t, 0.3, p.TurretAngle, 1e-9)

	require.True(t, m.HandleAction(Action{Type: ActionElevate, Amount: 5}))
	assert.InDelta(t, combat.MaxElevation, p.Elevation, 1e-9)

	require.True(t, m.HandleAction(Action{Type: ActionPower, Increase: true}))
	assert.Equal(t, 45.0, p.Power)
	require.True(t, m.HandleAction(Action{Type: ActionPower}))
	assert.Equal(t, 40.0, p.Power)

	assert.False(t, m.HandleAction(Action{Type: "jump"}))
	assert.False(t, m.HandleAction(Action{Type: ActionMove, Direction: "up", Active: true}))
	assert.False(t, m.HandleAction(Action{Type: ActionRotate, Amount: math.NaN()}))

	assert.Equal(t, 4, rec.count(NotifyAction))
	last, ok := rec.last(NotifyAction)
	require.True(t, ok)
	assert.Equal(t, 40.0, last.Power)
	assert.Equal(t, 100.0, last.Health)
}

func TestMovementRecordsTurnVelocity(t *testing.T) {
	m, _ := newTestMatch(t, Options{})
	start := m.Player().Position

	require.True(t, m.HandleAction(Action{Type: ActionMove, Direction: combat.DirectionForward, Active: true}))
	for i := 0; i < 30; i++ {
		m.Step()
	}
	moved := m.Player().Position.Sub(start).Horizontal()
	assert.InDelta(t, 2.5, moved.Length(), 1e-6)
	assert.Less(t, m.Player().Fuel, 100.0)

	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	assert.False(t, m.Player().IsMoving(), "выстрел останавливает танк")
	assert.InDelta(t, 5.0, m.lastTurnVelocity.Length(), 1e-6)
	assert.InDelta(t, 5.0, m.playerTarget().Velocity.Z, 1e-6)
}

func TestActionsIgnoredWhileShotInFlight(t *testing.T) {
	m, rec := newTestMatch(t, Options{})

	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	assert.Equal(t, PhasePlayerShotInFlight, m.Phase())
	assert.True(t, m.ShotInProgress())
	assert.Equal(t, 1, rec.count(NotifyShot))
	assert.Equal(t, 1, m.Progress().ShotsFired)

	angle := m.Player().TurretAngle
	assert.False(t, m.HandleAction(Action{Type: ActionRotate, Amount: 1}))
	assert.False(t, m.HandleAction(Action{Type: ActionFire}))
	assert.Equal(t, angle, m.Player().TurretAngle)
	assert.Equal(t, 1, m.Progress().ShotsFired, "второй выстрел не создается")
}

func TestTurnExclusivity(t *testing.T) {
	m, _ := newTestMatch(t, Options{Seed: 7})

	for i := 0; i < 5000 && m.Phase() != PhaseMatchOver; i++ {
		if m.Phase() == PhaseAwaitingPlayerInput {
			require.Nil(t, m.projectile)
			require.False(t, m.ShotInProgress())
			require.True(t, m.HandleAction(Action{Type: ActionFire}))
		}
		m.Step()

		inFlight := m.Phase() == PhasePlayerShotInFlight || m.Phase() == PhaseEnemyShotInFlight
		if m.projectile != nil {
			require.True(t, inFlight, "снаряд существует только в фазе полета, фаза %s", m.Phase())
			require.True(t, m.ShotInProgress())
		}
		if m.Phase() != PhaseAwaitingPlayerInput {
			require.False(t, m.HandleAction(Action{Type: ActionRotate, Amount: 0.1}))
		}
	}
}

func TestEnemyTurnTiming(t *testing.T) {
	m, rec := newTestMatch(t, Options{Seed: 3, EnemyCount: 1})

	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	runUntil(t, m, PhaseResolving, physics.MaxTicks())
	assert.Nil(t, m.projectile)
	assert.Equal(t, 1, rec.count(NotifyExplosion))
	assert.NotNil(t, m.Snapshot().LastExplosion)

	// Смена хода ровно через 1.5 с
	for i := uint64(1); i < TicksFor(resolveDelay); i++ {
		m.Step()
		require.Equal(t, PhaseResolving, m.Phase())
	}
	m.Step()
	require.Equal(t, PhaseEnemyAiming, m.Phase())
	assert.Equal(t, 1, m.Turn())
	assert.False(t, m.IsPlayerTurn())
	assert.Nil(t, m.activeEnemy)

	for i := uint64(0); i < TicksFor(enemyThinkDelay); i++ {
		m.Step()
	}
	require.NotNil(t, m.activeEnemy, "стрелок выбран через 1.5 с")
	assert.Equal(t, PhaseEnemyAiming, m.Phase())

	for i := uint64(0); i < TicksFor(enemyFireDelay); i++ {
		m.Step()
	}
	assert.Equal(t, PhaseEnemyShotInFlight, m.Phase(), "выстрел через 1.0 с после наведения")
	assert.NotNil(t, m.projectile)

	runUntil(t, m, PhaseAwaitingPlayerInput, physics.MaxTicks()+int(TicksFor(resolveDelay))+1)
	assert.Equal(t, 2, m.Turn())
	assert.True(t, m.IsPlayerTurn())
}

func TestPlayerWinsMatch(t *testing.T) {
	m, rec := newTestMatch(t, Options{Seed: 11, EnemyCount: 1})
	enemy := m.Enemies()[0]
	enemy.Health = 10

	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	enemy.Position = landing(t, m)

	runUntil(t, m, PhaseResolving, physics.MaxTicks())
	assert.True(t, enemy.IsDestroyed())
	assert.Empty(t, m.Enemies(), "уничтоженный танк убирается из матча")

	explosion, ok := rec.last(NotifyExplosion)
	require.True(t, ok)
	require.NotNil(t, explosion.Reward)
	assert.GreaterOrEqual(t, explosion.Reward.Credits, 50+50)
	assert.Less(t, explosion.Reward.Credits, 50+80)

	runUntil(t, m, PhaseMatchOver, int(TicksFor(resolveDelay))+1)
	assert.Equal(t, OutcomePlayerWon, m.Outcome())

	progress := m.Progress()
	assert.Equal(t, 1, progress.Victories)
	assert.Equal(t, 1, progress.GamesPlayed)
	assert.Equal(t, 1, progress.TanksDestroyed)
	assert.Equal(t, 1, progress.ShotsFired)
	assert.Equal(t, 1000+explosion.Reward.Credits+victoryCredits, progress.Credits)

	// Терминальная фаза: действия и тики ничего не меняют
	assert.False(t, m.HandleAction(Action{Type: ActionFire}))
	for i := 0; i < 300; i++ {
		m.Step()
	}
	assert.Equal(t, PhaseMatchOver, m.Phase())
	assert.Equal(t, 1, rec.count(NotifyMatchOver), "итог начисляется один раз")

	over, ok := rec.last(NotifyMatchOver)
	require.True(t, ok)
	require.NotNil(t, over.Progress)
	assert.Equal(t, progress, *over.Progress)
	assert.Equal(t, OutcomePlayerWon, over.Outcome)
}

func TestPlayerLosesMatch(t *testing.T) {
	m, rec := newTestMatch(t, Options{Seed: 5, EnemyCount: 1})

	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	runUntil(t, m, PhaseEnemyShotInFlight, 2000)

	m.Player().Health = 1
	m.Player().Position = landing(t, m)

	runUntil(t, m, PhaseMatchOver, 2000)
	assert.Equal(t, OutcomePlayerLost, m.Outcome())
	assert.True(t, m.Player().IsDestroyed())
	assert.Equal(t, 0.0, m.Snapshot().Player.HealthPercent)

	progress := m.Progress()
	assert.Equal(t, 1, progress.Defeats)
	assert.Equal(t, 0, progress.Victories)
	assert.Equal(t, 1000+defeatCredits, progress.Credits)
	assert.Equal(t, 1, rec.count(NotifyMatchOver))
}

func TestRestartInvalidatesPendingContinuations(t *testing.T) {
	m, _ := newTestMatch(t, Options{Seed: 9})
	epoch := m.Epoch()

	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	runUntil(t, m, PhaseResolving, physics.MaxTicks())
	require.Equal(t, 1, m.scheduler.Pending())

	m.Restart()
	assert.Equal(t, epoch+1, m.Epoch())
	assert.Zero(t, m.scheduler.Pending())
	assert.Equal(t, PhaseAwaitingPlayerInput, m.Phase())
	assert.Nil(t, m.Snapshot().LastExplosion)

	for i := 0; i < 300; i++ {
		m.Step()
	}
	assert.Equal(t, PhaseAwaitingPlayerInput, m.Phase(), "старый nextTurn не должен сменить ход")
	assert.Equal(t, 0, m.Turn())
	assert.Equal(t, 1, m.Progress().ShotsFired, "прогресс переносится через перезапуск")
}

func TestRestartAfterMatchOver(t *testing.T) {
	m, _ := newTestMatch(t, Options{Seed: 11, EnemyCount: 1})
	m.Enemies()[0].Health = 1
	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	m.Enemies()[0].Position = landing(t, m)
	runUntil(t, m, PhaseMatchOver, 2000)

	m.Restart()
	assert.Equal(t, PhaseAwaitingPlayerInput, m.Phase())
	assert.Equal(t, OutcomeNone, m.Outcome())
	assert.Len(t, m.Enemies(), 1)
	assert.Equal(t, 1, m.Progress().Victories)
}

func TestPurchaseUpgradeBetweenMatches(t *testing.T) {
	m, _ := newTestMatch(t, Options{Seed: 11, EnemyCount: 1})

	_, _, err := m.PurchaseUpgrade(combat.UpgradeArmor)
	assert.ErrorIs(t, err, ErrMatchInProgress)

	m.Enemies()[0].Health = 1
	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	m.Enemies()[0].Position = landing(t, m)
	runUntil(t, m, PhaseMatchOver, 2000)

	level, cost, err := m.PurchaseUpgrade(combat.UpgradeArmor)
	require.NoError(t, err)
	assert.Equal(t, 2, level)
	assert.Equal(t, 200, cost)
	assert.Equal(t, 125.0, m.Player().MaxHealth)

	_, _, err = m.PurchaseUpgrade("laser")
	assert.ErrorIs(t, err, combat.ErrUnknownUpgrade)
}

func TestAdvanceUsesClock(t *testing.T) {
	m, _ := newTestMatch(t, Options{})

	assert.Equal(t, 3, m.Advance(3*m.Clock().Step()))
	assert.Equal(t, uint64(3), m.Tick())
	assert.Equal(t, DefaultMaxStepsPerFrame, m.Advance(10*m.Clock().Step()))
	assert.Equal(t, uint64(3+DefaultMaxStepsPerFrame), m.Tick())
}

func TestSetQualityResettlesTanks(t *testing.T) {
	m, _ := newTestMatch(t, Options{})

	assert.False(t, m.SetQuality(terrain.QualityLow))
	require.True(t, m.SetQuality(terrain.QualityHigh))
	p := m.Player().Position
	assert.InDelta(t, m.Terrain().HeightAt(p.X, p.Z)+combat.GroundClearance, p.Y, 1e-9)
	assert.Equal(t, terrain.QualityHigh, m.Snapshot().Quality)
}

func TestSnapshotIsACopy(t *testing.T) {
	m, _ := newTestMatch(t, Options{EnemyCount: 2})
	snap := m.Snapshot()

	assert.Equal(t, "test-match", snap.MatchID)
	assert.Equal(t, PhaseAwaitingPlayerInput, snap.Phase)
	assert.Len(t, snap.Enemies, 2)
	assert.Nil(t, snap.Projectile)
	assert.Equal(t, "normal", snap.Enemies[0].Difficulty)

	m.Player().Position.X += 3
	assert.NotEqual(t, m.Player().Position.X, snap.Player.Position.X)

	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	m.Step()
	inFlight := m.Snapshot()
	require.NotNil(t, inFlight.Projectile)
	assert.InDelta(t, physics.TimeStep, inFlight.Projectile.TimeAlive, 1e-12)
	assert.True(t, inFlight.ShotInProgress)
}

func TestEmptyTankBlocksMovementButNotFiring(t *testing.T) {
	m, rec := newTestMatch(t, Options{Seed: 5, EnemyCount: 1})
	m.player.Fuel = 0
	start := m.player.Position

	assert.False(t, m.HandleAction(Action{Type: ActionMove, Direction: combat.DirectionForward, Active: true}),
		"без топлива движение не начинается")
	msg, ok := rec.last(NotifyMessage)
	require.True(t, ok)
	assert.Equal(t, "Нет топлива", msg.Message)
	assert.False(t, m.player.IsMoving())
	assert.Equal(t, start, m.player.Position, "танк стоит на месте")
	require.Equal(t, PhaseAwaitingPlayerInput, m.Phase())
	require.Zero(t, m.player.Fuel)

	require.True(t, m.HandleAction(Action{Type: ActionFire}), "пустой бак не мешает стрелять")
	assert.Equal(t, PhasePlayerShotInFlight, m.Phase())
	assert.True(t, m.ShotInProgress())
	require.NotNil(t, m.projectile)
}

func TestPlayerShotUsesWindResistance(t *testing.T) {
	progress := combat.NewProgression()
	progress.Upgrades.WindResistance = 3
	m, _ := newTestMatch(t, Options{Seed: 8, EnemyCount: 1, Progress: &progress})
	m.wind = 4

	require.InDelta(t, 0.8, m.player.WindResistance(), 1e-12)
	require.True(t, m.HandleAction(Action{Type: ActionFire}))
	require.NotNil(t, m.projectile)
	assert.InDelta(t, 3.2, m.projectile.Wind(), 1e-12, "ветер ослаблен улучшением")
	assert.InDelta(t, 4.0, m.Wind(), 1e-12, "ветер матча не меняется")
}
