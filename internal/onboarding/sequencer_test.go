package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingKV struct{ err error }

func (f failingKV) Get(ctx context.Context, key string) (string, bool, error) { return "", false, f.err }
func (f failingKV) Set(ctx context.Context, key, value string) error { return f.err }
func (f failingKV) Delete(ctx context.Context, key string) error { return f.err }

func TestSequencerStartsCompletedUntilInit(t *testing.T) {
	s := NewSequencer(NewMemoryKV(), "")
	assert.True(t, s.Completed())

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, StepAddPlayer, s.Step())
}

func TestSequencerWalksAllSteps(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewSequencer(kv, "")
	require.NoError(t, s.Init(ctx))

	for _, want := range []Step{StepEditPlayer, StepDragPlayer, StepTeams, StepCompleted} {
		require.NoError(t, s.Next(ctx))
		assert.Equal(t, want, s.Step())
	}

	v, ok, err := kv.Get(ctx, FlagKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	again := NewSequencer(kv, "")
	require.NoError(t, again.Init(ctx))
	assert.True(t, again.Completed(), "completion survives a new sequencer")
}

func TestSequencerSkipAndReset(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewSequencer(kv, "session-1")
	require.NoError(t, s.Init(ctx))

	require.NoError(t, s.Skip(ctx))
	assert.True(t, s.Completed())
	_, ok, _ := kv.Get(ctx, "session-1")
	assert.True(t, ok)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, StepAddPlayer, s.Step())
	_, ok, _ = kv.Get(ctx, "session-1")
	assert.False(t, ok)
}

func TestSequencerAdvanceOnlyFromExpectedStep(t *testing.T) {
	ctx := context.Background()
	s := NewSequencer(NewMemoryKV(), "")
	require.NoError(t, s.Init(ctx))

	moved, err := s.Advance(ctx, StepDragPlayer)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, StepAddPlayer, s.Step())

	moved, err = s.Advance(ctx, StepAddPlayer)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, StepEditPlayer, s.Step())
}

func TestSequencerSurfacesKVErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := NewSequencer(failingKV{err: boom}, "")

	assert.ErrorIs(t, s.Init(ctx), boom)
	assert.ErrorIs(t, s.Skip(ctx), boom)
	assert.ErrorIs(t, s.Reset(ctx), boom)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "add_player", StepAddPlayer.String())
	assert.Equal(t, "teams", StepTeams.String())
	assert.Equal(t, "completed", StepCompleted.String())
}
