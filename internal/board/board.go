// Package board is the presentation-facing controller for one client. It turns
// pointer events into taps and drags, maps drag points onto the pitch and
// forwards the results to the roster and the tutorial.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AlouiLouai/takwira/internal/gesture"
	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/onboarding"
	"github.com/AlouiLouai/takwira/internal/pitch"
	"github.com/AlouiLouai/takwira/internal/roster"
	"github.com/AlouiLouai/takwira/internal/store"
)

type Options struct {
	Logger *slog.Logger
	// Threshold is the drag distance in pixels. Zero means gesture.DefaultThreshold.
	Threshold float64
	// Tutorial defaults to a sequencer over an in-memory KV.
	Tutorial *onboarding.Sequencer
}

// Board serialises every entry point so a client behaves as a single logical
// thread.
type Board struct {
	roster   *roster.Store
	tutorial *onboarding.Sequencer
	logger   *slog.Logger

	mu      sync.Mutex
	tracker *gesture.Tracker
	rect    pitch.Rect
}

func New(r *roster.Store, opts Options) *Board {
	tutorial := opts.Tutorial
	if tutorial == nil {
		tutorial = onboarding.NewSequencer(onboarding.NewMemoryKV(), "")
	}
	return &Board{
		roster:   r,
		tutorial: tutorial,
		logger:   opts.Logger,
		tracker:  gesture.NewTracker(opts.Threshold),
	}
}

// Init reads the tutorial flag and initialises the roster.
func (b *Board) Init(ctx context.Context) error {
	if err := b.tutorial.Init(ctx); err != nil {
		logging.Warn(b.logger, "tutorial flag unavailable", "error", err)
	}
	return b.roster.Init(ctx)
}

// Recheck repeats the readiness check and, once the table is usable, loads
// and subscribes. The tutorial is left alone.
func (b *Board) Recheck(ctx context.Context) error {
	return b.roster.Init(ctx)
}

func (b *Board) Close() error {
	return b.roster.Close()
}

func (b *Board) Roster() *roster.Store {
	return b.roster
}

// SetPitchRect records the pitch's bounding box in client pixels.
func (b *Board) SetPitchRect(r pitch.Rect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rect = r
}

// SelectSlot opens the editor for key and advances the tutorial when the tap
// is the one it is waiting for.
func (b *Board) SelectSlot(ctx context.Context, key model.SlotKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selectLocked(ctx, key)
}

func (b *Board) selectLocked(ctx context.Context, key model.SlotKey) error {
	_, occupied := b.roster.Player(key)
	step := onboarding.StepAddPlayer
	if occupied {
		step = onboarding.StepEditPlayer
	}
	b.advanceTutorial(ctx, step)
	return b.roster.SelectSlot(key)
}

func (b *Board) CloseSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roster.CloseSelection()
}

func (b *Board) SetNameInput(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roster.SetEditBuffer(text)
}

func (b *Board) CommitEdit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roster.CommitEdit(ctx)
}

func (b *Board) RemoveSelection(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roster.RemoveSelection(ctx)
}

// StartDrag handles a pointer-down on key. Only occupied slots start a
// gesture; the return value reports whether one started.
func (b *Board) StartDrag(key model.SlotKey, pointerID int, p pitch.Point) bool {
	if !key.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, occupied := b.roster.Player(key)
	return b.tracker.Down(key, pointerID, p, occupied)
}

// HandleDragMove moves the dragged player once the pointer has travelled past
// the threshold. Nothing is persisted until the drag ends.
func (b *Board) HandleDragMove(pointerID int, p pitch.Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	move, ok := b.tracker.Move(pointerID, p)
	if !ok {
		return false
	}
	pos, ok := pitch.Map(move.Point, b.rect)
	if !ok {
		return false
	}
	return b.roster.MoveLocal(move.Key, pos)
}

// HandleDragEnd finishes the gesture of pointerID. A drag persists the final
// position; a tap, or a pointer-up that never started a gesture, selects key.
func (b *Board) HandleDragEnd(ctx context.Context, key model.SlotKey, pointerID int, p pitch.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	finish, ok := b.tracker.Up(pointerID, p)
	if !ok {
		if !key.Valid() {
			return fmt.Errorf("%w: %s", store.ErrInvalidSlot, key)
		}
		return b.selectLocked(ctx, key)
	}
	if !finish.Moved {
		return b.selectLocked(ctx, finish.Key)
	}
	err := b.persistDrop(finish)
	b.advanceTutorial(ctx, onboarding.StepDragPlayer)
	return err
}

// CancelDrag cleans up after an interrupted gesture. A drag that already moved
// keeps and persists its last position; a cancelled tap does nothing.
func (b *Board) CancelDrag(pointerID int, p pitch.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	finish, ok := b.tracker.Cancel(pointerID, p)
	if !ok || !finish.Moved {
		return nil
	}
	return b.persistDrop(finish)
}

func (b *Board) persistDrop(finish gesture.Finish) error {
	pos, ok := pitch.Map(finish.Point, b.rect)
	if !ok {
		current, exists := b.roster.Player(finish.Key)
		if !exists {
			return nil
		}
		pos = current.Position
	}
	err := b.roster.Reposition(finish.Key, pos)
	if errors.Is(err, roster.ErrClosed) {
		return nil
	}
	return err
}

func (b *Board) TutorialNext(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tutorial.Next(ctx)
}

func (b *Board) TutorialSkip(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tutorial.Skip(ctx)
}

func (b *Board) TutorialReset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tutorial.Reset(ctx)
}

func (b *Board) advanceTutorial(ctx context.Context, step onboarding.Step) {
	if _, err := b.tutorial.Advance(ctx, step); err != nil {
		logging.Warn(b.logger, "tutorial advance failed", "step", step.String(), "error", err)
	}
}
