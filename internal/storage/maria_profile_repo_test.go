package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
)

var profileColumns = []string{
	"credits", "experience", "level", "victories", "defeats",
	"shots_fired", "tanks_destroyed", "games_played", "upgrades",
}

func newMockMariaRepo(t *testing.T) (*MariaProfileRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS player_profiles").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo, err := newMariaProfileRepo(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repo, mock
}

func TestMariaProfileRepoSave(t *testing.T) {
	repo, mock := newMockMariaRepo(t)
	p := combat.NewProgression()

	mock.ExpectExec("INSERT INTO player_profiles").
		WithArgs("guest-1", 1000, 0, 1, 0, 0, 0, 0, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Save(context.Background(), "guest-1", p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMariaProfileRepoLoad(t *testing.T) {
	repo, mock := newMockMariaRepo(t)

	upgrades := `{"armorLevel":2,"firepower":1,"fuelEfficiency":1,"turretSpeed":3,"radarRange":1,"windResistance":1}`
	mock.ExpectQuery("SELECT credits").
		WithArgs("guest-1").
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow(1200, 30, 2, 1, 0, 5, 2, 1, upgrades))
	mock.ExpectQuery("SELECT credits").
		WithArgs("guest-2").
		WillReturnRows(sqlmock.NewRows(profileColumns))

	p, found, err := repo.Load(context.Background(), "guest-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1200, p.Credits)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 2, p.Upgrades.ArmorLevel)
	assert.Equal(t, 3, p.Upgrades.TurretSpeed)

	_, found, err = repo.Load(context.Background(), "guest-2")
	require.NoError(t, err)
	assert.False(t, found, "первый вход пользователя")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMariaProfileRepoDelete(t *testing.T) {
	repo, mock := newMockMariaRepo(t)

	mock.ExpectExec("DELETE FROM player_profiles").
		WithArgs("guest-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM player_profiles").
		WithArgs("guest-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "guest-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "guest-2"), ErrProfileNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMariaProfileRepoBatchSave(t *testing.T) {
	repo, mock := newMockMariaRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO player_profiles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO player_profiles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.BatchSave(context.Background(), map[string]combat.Progression{
		"guest-1": combat.NewProgression(),
		"guest-2": sampleProgress(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
