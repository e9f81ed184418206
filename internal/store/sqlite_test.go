package store

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteGateway(t *testing.T, migrate bool) *SQLiteGateway {
	t.Helper()
	g, err := NewSQLiteGateway(filepath.Join(t.TempDir(), "takwira.db"), SQLiteOptions{AutoMigrate: migrate})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestNewSQLiteGatewayRequiresPath(t *testing.T) {
	_, err := NewSQLiteGateway("  ", SQLiteOptions{})
	assert.Error(t, err)
}

func TestSQLiteReadinessBeforeMigration(t *testing.T) {
	g := newSQLiteGateway(t, false)

	r := g.CheckReadiness(context.Background())
	assert.False(t, r.IsReady)
	assert.Equal(t, ErrorNotSetup, r.ErrorKind)
	assert.NotEmpty(t, r.Message)

	n, err := g.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r = g.CheckReadiness(context.Background())
	assert.True(t, r.IsReady)
	assert.Empty(t, r.ErrorKind)
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	g := newSQLiteGateway(t, true)
	n, err := g.Migrate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteReadinessAfterClose(t *testing.T) {
	g, err := NewSQLiteGateway(filepath.Join(t.TempDir(), "takwira.db"), SQLiteOptions{AutoMigrate: true})
	require.NoError(t, err)
	require.NoError(t, g.Close())

	r := g.CheckReadiness(context.Background())
	assert.False(t, r.IsReady)
	assert.Equal(t, ErrorConnection, r.ErrorKind)
}

func TestSQLiteUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t, true)

	stored, err := g.Upsert(ctx, newRow(model.TeamA, 0, "  Cristiano "))
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "Cristiano", stored.Name)
	assert.Equal(t, "seed-  Cristiano ", stored.AvatarSeed)
	assert.False(t, stored.CreatedAt.IsZero())

	again, err := g.Upsert(ctx, Row{
		ID:         "ignored-on-conflict",
		Name:       "Ronaldo",
		AvatarSeed: stored.AvatarSeed,
		TeamID:     model.TeamA,
		SlotIndex:  0,
		PositionX:  30,
		PositionY:  40,
	})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, again.ID)
	assert.Equal(t, "Ronaldo", again.Name)

	rows, err := g.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ronaldo", rows[0].Name)
	assert.Equal(t, 30.0, rows[0].PositionX)
	assert.Equal(t, 40.0, rows[0].PositionY)
}

func TestSQLiteFetchAllOrdering(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t, true)
	for _, r := range []Row{
		newRow(model.TeamB, 6, "d"),
		newRow(model.TeamA, 3, "b"),
		newRow(model.TeamB, 2, "c"),
		newRow(model.TeamA, 1, "a"),
	} {
		_, err := g.Upsert(ctx, r)
		require.NoError(t, err)
	}

	rows, err := g.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, name, rows[i].Name)
	}
}

func TestSQLitePositionAndDelete(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t, true)
	_, err := g.Upsert(ctx, newRow(model.TeamB, 4, "Pirlo"))
	require.NoError(t, err)

	require.NoError(t, g.UpdatePosition(ctx, model.TeamB, 4, 10, 99))
	rows, err := g.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.0, rows[0].PositionX)
	assert.Equal(t, model.MaxCoord, rows[0].PositionY)

	assert.ErrorIs(t, g.UpdatePosition(ctx, model.TeamB, 5, 10, 10), ErrNotFound)

	require.NoError(t, g.Delete(ctx, model.TeamB, 4))
	rows, err = g.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteWritesNotifyFeed(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t, true)

	changes := make(chan struct{}, 4)
	sub, err := g.Subscribe(ctx, func() { changes <- struct{}{} })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = g.Upsert(ctx, newRow(model.TeamA, 5, "x"))
	require.NoError(t, err)

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
}

func TestApplyMigrationsFromFS(t *testing.T) {
	g := newSQLiteGateway(t, false)
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE second (id TEXT);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE first (id TEXT);")},
		"003_blank.sql":  {Data: []byte("   \n")},
		"README.md":      {Data: []byte("not a migration")},
	}

	n, err := applyMigrations(g.db, fsys, ".", sqliteRecordMigration)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	applied, err := loadAppliedMigrations(g.db)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"001_first.sql": true, "002_second.sql": true}, applied)

	n, err = applyMigrations(g.db, fsys, ".", sqliteRecordMigration)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApplyMigrationsRollsBackFailure(t *testing.T) {
	g := newSQLiteGateway(t, false)
	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	}

	_, err := applyMigrations(g.db, fsys, ".", sqliteRecordMigration)
	require.Error(t, err)

	applied, err := loadAppliedMigrations(g.db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestApplyMigrationsMissingDir(t *testing.T) {
	g := newSQLiteGateway(t, false)
	n, err := applyMigrations(g.db, fstest.MapFS{}, "nope", sqliteRecordMigration)
	require.NoError(t, err)
	assert.Zero(t, n)
}
