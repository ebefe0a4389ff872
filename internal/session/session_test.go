package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/eventbus"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/match"
	"github.com/ShaharFullStack/tdscorchedearth/internal/storage"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
)

var errBroken = errors.New("connection refused")

// brokenRepo хранилище, которое всегда отвечает ошибкой
type brokenRepo struct{}

func (brokenRepo) Save(context.Context, string, combat.Progression) error { return errBroken }

func (brokenRepo) Load(context.Context, string) (combat.Progression, bool, error) {
	return combat.Progression{}, false, errBroken
}

func (brokenRepo) Delete(context.Context, string) error { return errBroken }

func (brokenRepo) BatchSave(context.Context, map[string]combat.Progression) error { return errBroken }

func quietLogger() *logging.Logger {
	return logging.NewConsoleLogger("session", io.Discard)
}

func testConfig() Config {
	return Config{
		TickInterval: time.Millisecond,
		Quality:      terrain.QualityLow,
		Difficulty:   combat.DifficultyEasy,
	}
}

func newTestManager(t *testing.T, repo storage.ProfileRepo, bus eventbus.EventBus) *Manager {
	t.Helper()
	mg := NewManager(context.Background(), repo, bus, testConfig(), quietLogger())
	mg.matchLog = quietLogger()
	t.Cleanup(mg.Shutdown)
	return mg
}

func newIdleSession(repo storage.ProfileRepo, bus eventbus.EventBus) *Session {
	return newSession(match.Options{
		ID:      "m-1",
		UserID:  "guest-1",
		Quality: terrain.QualityLow,
		Seed:    7,
		Logger:  quietLogger(),
	}, repo, bus, testConfig().withDefaults(), quietLogger())
}

// idleSession сессия без горутины и без стартовых уведомлений: тест сам вызывает flush
func idleSession(t *testing.T, repo storage.ProfileRepo, bus eventbus.EventBus) *Session {
	t.Helper()
	s := newIdleSession(repo, bus)
	s.pending = nil
	return s
}

func matchOver(progress combat.Progression) match.Notification {
	return match.Notification{
		MatchID:  "m-1",
		Kind:     match.NotifyMatchOver,
		Outcome:  match.OutcomePlayerWon,
		Progress: &progress,
	}
}

func TestSessionAppliesActions(t *testing.T) {
	ctx := context.Background()
	mg := newTestManager(t, storage.NewMemoryProfileRepo(), nil)
	s, err := mg.Create(ctx, CreateOptions{UserID: "guest-1"})
	require.NoError(t, err)

	before, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, match.PhaseAwaitingPlayerInput, before.Phase)

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	require.NoError(t, s.Submit(ctx, match.Action{Type: match.ActionRotate, Amount: 0.3}))

	select {
	case n := <-updates:
		assert.Equal(t, match.NotifyAction, n.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("уведомление о действии не пришло")
	}

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.Player.TurretAngle, after.Player.TurretAngle)
}

func TestSessionRejectsInvalidAction(t *testing.T) {
	mg := newTestManager(t, nil, nil)
	s, err := mg.Create(context.Background(), CreateOptions{UserID: "guest-1"})
	require.NoError(t, err)

	err = s.Submit(context.Background(), match.Action{Type: "jump"})
	assert.ErrorIs(t, err, match.ErrInvalidAction)
}

func TestSessionRestartAndUpgrade(t *testing.T) {
	ctx := context.Background()
	mg := newTestManager(t, storage.NewMemoryProfileRepo(), nil)
	s, err := mg.Create(ctx, CreateOptions{UserID: "guest-1"})
	require.NoError(t, err)

	before, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Restart(ctx))
	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Epoch+1, after.Epoch)
	assert.Zero(t, after.Turn)

	_, err = s.PurchaseUpgrade(ctx, combat.UpgradeArmor)
	assert.ErrorIs(t, err, match.ErrMatchInProgress, "магазин закрыт во время боя")

	grid, err := s.Terrain(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, grid.Heights)
}

func TestFlushPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryProfileRepo()
	bus := eventbus.NewMemoryBus(16)
	var got []*eventbus.Envelope
	_, err := bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		got = append(got, ev)
	})
	require.NoError(t, err)

	s := idleSession(t, repo, bus)
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	progress := combat.NewProgression()
	progress.Credits = 1234
	s.pending = append(s.pending, matchOver(progress))
	s.flush(ctx)
	require.NoError(t, bus.Close())

	saved, found, err := repo.Load(ctx, "guest-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1234, saved.Credits)

	require.Len(t, got, 1)
	assert.Equal(t, "match.match_over", got[0].EventType)
	assert.Equal(t, "m-1", got[0].MatchID)
	assert.Equal(t, eventbus.PriorityHigh, got[0].Priority)

	n := <-updates
	assert.Equal(t, match.NotifyMatchOver, n.Kind)
}

func TestFlushAnnouncesPersistFailure(t *testing.T) {
	s := idleSession(t, brokenRepo{}, nil)
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.pending = append(s.pending, matchOver(combat.NewProgression()))
	s.flush(context.Background())

	first := <-updates
	assert.Equal(t, match.NotifyMatchOver, first.Kind)
	second := <-updates
	assert.Equal(t, match.NotifyMessage, second.Kind)
	assert.Equal(t, PersistFailedMessage, second.Message)
	assert.Empty(t, s.pending)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := idleSession(t, nil, nil)
	_, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBacklog+10; i++ {
		s.pending = append(s.pending, match.Notification{Kind: match.NotifyAction})
	}
	done := make(chan struct{})
	go func() {
		s.flush(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush заблокирован медленным подписчиком")
	}
}

func TestOpeningTurnReachesSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := eventbus.NewMemoryBus(16)
	var got []*eventbus.Envelope
	_, err := bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		got = append(got, ev)
	})
	require.NoError(t, err)

	s := newIdleSession(nil, bus)
	require.NotEmpty(t, s.pending, "объявление первого хода ждёт рассылки")
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.flush(ctx)
	require.NoError(t, bus.Close())

	require.NotEmpty(t, got)
	assert.Equal(t, "match.turn", got[0].EventType)
	assert.Equal(t, "m-1", got[0].MatchID)

	n := <-updates
	assert.Equal(t, match.NotifyTurn, n.Kind)
	assert.Equal(t, "Ваш ход", n.Message)
	assert.Zero(t, n.Turn)
}
