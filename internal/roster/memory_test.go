package roster

import (
	"context"
	"testing"
	"time"

	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryRoster(t *testing.T, gw *store.MemoryGateway) *Store {
	t.Helper()
	r := New(gw, Options{})
	require.NoError(t, r.Init(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func commit(t *testing.T, r *Store, key model.SlotKey, name string) {
	t.Helper()
	require.NoError(t, r.SelectSlot(key))
	r.SetEditBuffer(name)
	require.NoError(t, r.CommitEdit(context.Background()))
}

func TestCommitThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newMemoryRoster(t, store.NewMemoryGateway(store.MemoryOptions{}))
	key := model.SlotKey{Team: model.TeamA, Index: 4}

	commit(t, r, key, "Cristiano")
	require.NoError(t, r.Load(ctx))

	p, ok := r.Player(key)
	require.True(t, ok)
	assert.Equal(t, "Cristiano", p.Name)
	assert.NotEmpty(t, p.AvatarSeed)
	assert.Equal(t, model.FormationPoint(key), p.Position)
}

func TestSecondWriteToSameSlotWins(t *testing.T) {
	ctx := context.Background()
	gw := store.NewMemoryGateway(store.MemoryOptions{})
	r := newMemoryRoster(t, gw)
	key := model.SlotKey{Team: model.TeamB, Index: 1}

	commit(t, r, key, "Drogba")
	seed := func() string { p, _ := r.Player(key); return p.AvatarSeed }()
	commit(t, r, key, "Eto'o")
	require.NoError(t, r.Load(ctx))

	rows, err := gw.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Eto'o", rows[0].Name)
	assert.Equal(t, seed, rows[0].AvatarSeed, "renames keep the avatar seed")
}

func TestBlankCommitMatchesRemove(t *testing.T) {
	ctx := context.Background()
	gw := store.NewMemoryGateway(store.MemoryOptions{})
	r := newMemoryRoster(t, gw)
	a := model.SlotKey{Team: model.TeamA, Index: 1}
	b := model.SlotKey{Team: model.TeamA, Index: 2}

	commit(t, r, a, "Kanté")
	commit(t, r, b, "Pogba")

	commit(t, r, a, "   ")
	require.NoError(t, r.SelectSlot(b))
	require.NoError(t, r.RemoveSelection(ctx))

	require.NoError(t, r.Load(ctx))
	_, okA := r.Player(a)
	_, okB := r.Player(b)
	assert.False(t, okA)
	assert.False(t, okB)
	rows, err := gw.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRemoteWritesReachOtherRosters(t *testing.T) {
	gw := store.NewMemoryGateway(store.MemoryOptions{})
	alice := newMemoryRoster(t, gw)
	bob := newMemoryRoster(t, gw)
	key := model.SlotKey{Team: model.TeamB, Index: 6}

	commit(t, alice, key, "Buffon")

	assert.Eventually(t, func() bool {
		p, ok := bob.Player(key)
		return ok && p.Name == "Buffon"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, alice.Reposition(key, model.Position{X: 12, Y: 88}))
	alice.Wait()
	assert.Eventually(t, func() bool {
		p, _ := bob.Player(key)
		return p.Position == model.Position{X: 12, Y: 88}
	}, time.Second, 5*time.Millisecond)
}
