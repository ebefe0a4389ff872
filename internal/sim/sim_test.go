package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/physics"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

func TestGunnerAimsAtNearestEnemy(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := combat.NewPlayer("p", combat.NewProgression(), vec.New(0, 1, 0))
	near := combat.NewEnemy("near", combat.DifficultyNormal, vec.New(0, 1, 25), rng)
	far := combat.NewEnemy("far", combat.DifficultyNormal, vec.New(-40, 1, -40), rng)

	g := NewGunner(0, 1)
	miss, ok := g.Aim(p, []*combat.Enemy{far, near}, 0)
	require.True(t, ok)
	assert.Less(t, miss, 5.0, "промах по ближайшей цели")

	assert.GreaterOrEqual(t, p.Power, p.MinPower())
	assert.LessOrEqual(t, p.Power, p.MaxPower())
	assert.Greater(t, p.TurretDirection().Z, 0.0, "ствол смотрит на ближнего противника")

	shot := p.FireProjectile()
	_, hit := physics.Trajectory(shot.Origin, shot.Velocity, 0, 1)
	assert.InDelta(t, 25, hit.Position.Z, 6)
}

func TestGunnerWithoutTargets(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	p := combat.NewPlayer("p", combat.NewProgression(), vec.New(0, 1, 0))
	dead := combat.NewEnemy("dead", combat.DifficultyEasy, vec.New(10, 1, 10), rng)
	dead.TakeDamage(1e9)
	require.True(t, dead.IsDestroyed())

	power := p.Power
	_, ok := NewGunner(0, 1).Aim(p, []*combat.Enemy{dead}, 0)
	assert.False(t, ok)
	assert.Equal(t, power, p.Power, "без цели наводка не меняется")
}

func TestRunPlaysMatches(t *testing.T) {
	if testing.Short() {
		t.Skip("долгий прогон")
	}
	res, err := Run(context.Background(), Config{
		Difficulty: combat.DifficultyEasy,
		Matches:    2,
		Seed:       7,
		MaxSteps:   20000,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matches)
	assert.Equal(t, 2, res.Wins+res.Losses+res.Unfinished)
	assert.Positive(t, res.Shots)
	assert.GreaterOrEqual(t, res.WinRate(), 0.0)
	assert.LessOrEqual(t, res.WinRate(), 1.0)
}

func TestRunValidation(t *testing.T) {
	_, err := Run(context.Background(), Config{Difficulty: combat.DifficultyEasy})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, Config{Difficulty: combat.DifficultyEasy, Matches: 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Matches)
}

func TestResultRates(t *testing.T) {
	r := Result{Matches: 4, Wins: 3, Losses: 1, Turns: 20}
	assert.InDelta(t, 0.75, r.WinRate(), 1e-9)
	assert.InDelta(t, 5, r.AvgTurns(), 1e-9)
	assert.Zero(t, Result{}.WinRate())
}
