package board

import (
	"context"
	"testing"

	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/onboarding"
	"github.com/AlouiLouai/takwira/internal/pitch"
	"github.com/AlouiLouai/takwira/internal/roster"
	"github.com/AlouiLouai/takwira/internal/store"
	storeMocks "github.com/AlouiLouai/takwira/internal/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	a0 = model.SlotKey{Team: model.TeamA, Index: 0}
	b2 = model.SlotKey{Team: model.TeamB, Index: 2}
)

type fixture struct {
	board   *Board
	gateway *store.MemoryGateway
	roster  *roster.Store
	kv      *onboarding.MemoryKV
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	gw := store.NewMemoryGateway(store.MemoryOptions{})
	pos := model.FormationPoint(a0)
	_, err := gw.Upsert(ctx, store.Row{
		Name:       "Zidane",
		AvatarSeed: "zizou",
		TeamID:     a0.Team,
		SlotIndex:  a0.Index,
		PositionX:  pos.X,
		PositionY:  pos.Y,
	})
	require.NoError(t, err)

	kv := onboarding.NewMemoryKV()
	r := roster.New(gw, roster.Options{})
	b := New(r, Options{Tutorial: onboarding.NewSequencer(kv, "")})
	require.NoError(t, b.Init(ctx))
	t.Cleanup(func() { _ = b.Close() })

	b.SetPitchRect(pitch.Rect{Left: 0, Top: 0, Width: 200, Height: 400})
	return &fixture{board: b, gateway: gw, roster: r, kv: kv}
}

func TestDragPersistsMappedPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.True(t, f.board.StartDrag(a0, 1, pitch.Point{X: 100, Y: 24}))
	assert.True(t, f.board.HandleDragMove(1, pitch.Point{X: 60, Y: 200}))

	p, _ := f.roster.Player(a0)
	assert.Equal(t, model.Position{X: 30, Y: 50}, p.Position, "moves apply locally during the drag")

	require.NoError(t, f.board.HandleDragEnd(ctx, a0, 1, pitch.Point{X: 20, Y: 360}))
	p, _ = f.roster.Player(a0)
	assert.InDelta(t, 10.0, p.Position.X, 1e-9)
	assert.InDelta(t, 90.0, p.Position.Y, 1e-9)

	f.roster.Wait()
	rows, err := f.gateway.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 10.0, rows[0].PositionX, 1e-9)
	assert.InDelta(t, 90.0, rows[0].PositionY, 1e-9)

	_, selected := f.roster.Selection()
	assert.False(t, selected, "a drag is not a tap")
}

func TestSmallMovementIsATap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.True(t, f.board.StartDrag(a0, 1, pitch.Point{X: 100, Y: 24}))
	assert.False(t, f.board.HandleDragMove(1, pitch.Point{X: 105, Y: 30}))
	require.NoError(t, f.board.HandleDragEnd(ctx, a0, 1, pitch.Point{X: 105, Y: 30}))

	sel, ok := f.roster.Selection()
	require.True(t, ok)
	assert.Equal(t, a0, sel)
	assert.Equal(t, "Zidane", f.roster.EditBuffer())

	p, _ := f.roster.Player(a0)
	assert.Equal(t, model.FormationPoint(a0), p.Position)
}

func TestEmptySlotPointerUpSelects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.False(t, f.board.StartDrag(b2, 4, pitch.Point{X: 10, Y: 10}))
	assert.False(t, f.board.HandleDragMove(4, pitch.Point{X: 150, Y: 150}))
	require.NoError(t, f.board.HandleDragEnd(ctx, b2, 4, pitch.Point{X: 150, Y: 150}))

	sel, ok := f.roster.Selection()
	require.True(t, ok)
	assert.Equal(t, b2, sel)
	assert.Equal(t, "", f.roster.EditBuffer())
}

func TestCancelAfterMovePersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.True(t, f.board.StartDrag(a0, 1, pitch.Point{X: 100, Y: 24}))
	require.True(t, f.board.HandleDragMove(1, pitch.Point{X: 100, Y: 200}))
	require.NoError(t, f.board.CancelDrag(1, pitch.Point{X: 100, Y: 200}))
	f.roster.Wait()

	rows, err := f.gateway.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rows[0].PositionY)

	require.True(t, f.board.StartDrag(a0, 2, pitch.Point{X: 100, Y: 200}), "slot accepts a new gesture")
	require.NoError(t, f.board.CancelDrag(2, pitch.Point{X: 100, Y: 200}))
	_, selected := f.roster.Selection()
	assert.False(t, selected, "a cancelled tap selects nothing")
}

func TestMoveWithoutPitchRectIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.board.SetPitchRect(pitch.Rect{})

	require.True(t, f.board.StartDrag(a0, 1, pitch.Point{X: 0, Y: 0}))
	assert.False(t, f.board.HandleDragMove(1, pitch.Point{X: 100, Y: 100}))
	require.NoError(t, f.board.HandleDragEnd(context.Background(), a0, 1, pitch.Point{X: 100, Y: 100}))
	f.roster.Wait()

	p, _ := f.roster.Player(a0)
	assert.Equal(t, model.FormationPoint(a0), p.Position)
}

func TestTutorialFollowsInteractions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.Equal(t, int(onboarding.StepAddPlayer), f.board.View().Tutorial.Step)

	// Tapping an occupied slot does not satisfy "add a player".
	require.NoError(t, f.board.SelectSlot(ctx, a0))
	assert.Equal(t, int(onboarding.StepAddPlayer), f.board.View().Tutorial.Step)

	require.NoError(t, f.board.SelectSlot(ctx, b2))
	assert.Equal(t, int(onboarding.StepEditPlayer), f.board.View().Tutorial.Step)

	require.NoError(t, f.board.SelectSlot(ctx, a0))
	assert.Equal(t, int(onboarding.StepDragPlayer), f.board.View().Tutorial.Step)

	require.True(t, f.board.StartDrag(a0, 1, pitch.Point{X: 100, Y: 24}))
	require.True(t, f.board.HandleDragMove(1, pitch.Point{X: 100, Y: 100}))
	require.NoError(t, f.board.HandleDragEnd(ctx, a0, 1, pitch.Point{X: 100, Y: 100}))
	assert.Equal(t, int(onboarding.StepTeams), f.board.View().Tutorial.Step)

	require.NoError(t, f.board.TutorialNext(ctx))
	assert.True(t, f.board.View().Tutorial.Completed)

	require.NoError(t, f.board.TutorialReset(ctx))
	assert.Equal(t, int(onboarding.StepAddPlayer), f.board.View().Tutorial.Step)
	require.NoError(t, f.board.TutorialSkip(ctx))
	v, ok, err := f.kv.Get(ctx, onboarding.FlagKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestCommitAndRemoveThroughBoard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.board.SelectSlot(ctx, b2))
	f.board.SetNameInput("Cristiano")
	require.NoError(t, f.board.CommitEdit(ctx))

	v := f.board.View()
	slot := v.Teams[1].Slots[2]
	assert.True(t, slot.Occupied)
	assert.Equal(t, "Cristiano", slot.Name)
	assert.Equal(t, "C", slot.Initials)
	assert.Contains(t, slot.Avatar, "seed=")
	assert.Equal(t, model.FormationPoint(b2), slot.Position)
	assert.Nil(t, v.Selection)

	require.NoError(t, f.board.SelectSlot(ctx, b2))
	assert.Equal(t, "Cristiano", f.board.View().Selection.ActivePlayer)
	require.NoError(t, f.board.RemoveSelection(ctx))
	assert.False(t, f.board.View().Teams[1].Slots[2].Occupied)

	require.NoError(t, f.board.SelectSlot(ctx, a0))
	f.board.CloseSelection()
	assert.Nil(t, f.board.View().Selection)
}

func TestViewShape(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.board.StartDrag(a0, 1, pitch.Point{X: 100, Y: 24}))
	v := f.board.View()

	require.Len(t, v.Teams, 2)
	assert.Equal(t, model.TeamA, v.Teams[0].ID)
	assert.Equal(t, "Team B", v.Teams[1].Label)
	for _, team := range v.Teams {
		require.Len(t, team.Slots, model.RosterSize)
	}
	empty := v.Teams[1].Slots[0]
	assert.False(t, empty.Occupied)
	assert.Equal(t, model.Position{X: 50, Y: 94}, empty.Position)
	assert.Equal(t, "Slot 1", empty.Label)

	require.NotNil(t, v.Drag)
	assert.Equal(t, model.TeamA, v.Drag.Team)
	assert.False(t, v.Drag.Moved)
	assert.False(t, v.Setup)
	assert.False(t, v.Loading)
	require.NotNil(t, v.Readiness)
	assert.True(t, v.Readiness.IsReady)

	require.True(t, f.board.HandleDragMove(1, pitch.Point{X: 100, Y: 100}))
	v = f.board.View()
	require.NotNil(t, v.Drag)
	assert.True(t, v.Drag.Moved)
	assert.True(t, v.Teams[0].Slots[0].Dragging)
}

func TestViewRoutesToSetupWhenNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := storeMocks.NewMockGateway(ctrl)
	gw.EXPECT().CheckReadiness(gomock.Any()).Return(store.Readiness{
		ErrorKind: store.ErrorNotSetup,
		Message:   "Database table not created yet.",
	})

	b := New(roster.New(gw, roster.Options{}), Options{})
	require.NoError(t, b.Init(context.Background()))
	defer b.Close()

	v := b.View()
	assert.True(t, v.Setup)
	require.NotNil(t, v.Readiness)
	assert.Equal(t, store.ErrorNotSetup, v.Readiness.ErrorKind)
}
