package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/match"
	"github.com/ShaharFullStack/tdscorchedearth/internal/storage"
)

func TestManagerLoadsProgress(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryProfileRepo()
	saved := combat.NewProgression()
	saved.Credits = 4321
	saved.Victories = 3
	require.NoError(t, repo.Save(ctx, "user-1", saved))

	mg := newTestManager(t, repo, nil)
	s, err := mg.Create(ctx, CreateOptions{UserID: "user-1"})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4321, snap.Progress.Credits)
	assert.Equal(t, 3, snap.Progress.Victories)
	assert.Equal(t, "user-1", snap.UserID)
}

func TestManagerSurvivesBrokenStorage(t *testing.T) {
	mg := newTestManager(t, brokenRepo{}, nil)
	s, err := mg.Create(context.Background(), CreateOptions{UserID: "guest-9"})
	require.NoError(t, err, "недоступное хранилище не мешает играть")

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, combat.NewProgression().Credits, snap.Progress.Credits)
}

func TestManagerRegistry(t *testing.T) {
	ctx := context.Background()
	mg := newTestManager(t, nil, nil)

	mobile := true
	first, err := mg.Create(ctx, CreateOptions{UserID: "guest-1", Mobile: &mobile})
	require.NoError(t, err)
	second, err := mg.Create(ctx, CreateOptions{UserID: "guest-2", EnemyCount: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, mg.Count())
	got, err := mg.Get(first.ID())
	require.NoError(t, err)
	assert.Same(t, first, got)

	active, ok := mg.ActiveForUser("guest-2")
	require.True(t, ok)
	assert.Same(t, second, active)
	assert.Len(t, mg.ForUser("guest-1"), 1)

	snap, err := first.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Enemies, 2, "мобильный режим даёт двух противников")

	require.NoError(t, mg.Close(first.ID()))
	_, err = mg.Get(first.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, mg.Close(first.ID()), ErrSessionNotFound)

	err = first.Submit(ctx, match.Action{Type: match.ActionFire})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = first.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, ok = mg.ActiveForUser("nobody")
	assert.False(t, ok)
}

func TestManagerReplacesUserSession(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryProfileRepo()
	mg := newTestManager(t, repo, nil)

	first, err := mg.Create(ctx, CreateOptions{UserID: "user-1"})
	require.NoError(t, err)

	// Первая партия выиграна и сохранена
	won := combat.NewProgression()
	won.Victories = 1
	won.Credits = 1100
	require.NoError(t, first.do(ctx, func(*match.Match) error {
		first.persist(ctx, won)
		return nil
	}))

	second, err := mg.Create(ctx, CreateOptions{UserID: "user-1"})
	require.NoError(t, err)

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("прежняя сессия не остановлена")
	}
	_, err = mg.Get(first.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, mg.Count())
	assert.Len(t, mg.ForUser("user-1"), 1)

	active, ok := mg.ActiveForUser("user-1")
	require.True(t, ok)
	assert.Same(t, second, active)

	snap, err := second.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Progress.Victories, "новая партия продолжает сохранённый прогресс")
	assert.Equal(t, 1100, snap.Progress.Credits)

	// Поражение во второй партии не стирает победу первой
	lost := snap.Progress
	lost.Defeats++
	require.NoError(t, second.do(ctx, func(*match.Match) error {
		second.persist(ctx, lost)
		return nil
	}))
	saved, found, err := repo.Load(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, saved.Victories)
	assert.Equal(t, 1, saved.Defeats)
}

func TestManagerCreateKeepsOtherUsers(t *testing.T) {
	ctx := context.Background()
	mg := newTestManager(t, nil, nil)

	other, err := mg.Create(ctx, CreateOptions{UserID: "guest-2"})
	require.NoError(t, err)
	_, err = mg.Create(ctx, CreateOptions{UserID: "guest-1"})
	require.NoError(t, err)
	_, err = mg.Create(ctx, CreateOptions{UserID: "guest-1"})
	require.NoError(t, err)

	got, err := mg.Get(other.ID())
	require.NoError(t, err)
	assert.Same(t, other, got)
	assert.Equal(t, 2, mg.Count())
}

func TestManagerReapsIdleSessions(t *testing.T) {
	mg := newTestManager(t, nil, nil)
	mg.cfg.IdleTimeout = time.Minute
	s, err := mg.Create(context.Background(), CreateOptions{UserID: "guest-1"})
	require.NoError(t, err)

	assert.Zero(t, mg.reapIdle(time.Now()))
	assert.Equal(t, 1, mg.reapIdle(time.Now().Add(2*time.Minute)))
	assert.Zero(t, mg.Count())
	<-s.Done()
}

func TestManagerShutdown(t *testing.T) {
	mg := NewManager(context.Background(), nil, nil, testConfig(), quietLogger())
	mg.matchLog = quietLogger()
	s, err := mg.Create(context.Background(), CreateOptions{UserID: "guest-1"})
	require.NoError(t, err)
	updates, _ := s.Subscribe()

	mg.Shutdown()
	mg.Shutdown()

	drained := 0
	for range updates {
		drained++
	}
	assert.LessOrEqual(t, drained, subscriberBacklog, "подписчики закрываются вместе с сессией")
	_, err = mg.Create(context.Background(), CreateOptions{UserID: "guest-2"})
	assert.ErrorIs(t, err, ErrSessionClosed)
}
