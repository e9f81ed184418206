// Package onboarding walks a first-time user through the board in four steps
// and remembers when the walkthrough has been finished or skipped.
package onboarding

import (
	"context"
	"fmt"
	"sync"
)

// FlagKey is the key under which completion is stored.
const FlagKey = "takwira_onboarding_completed"

type Step int

const (
	StepAddPlayer Step = iota
	StepEditPlayer
	StepDragPlayer
	StepTeams
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepAddPlayer:
		return "add_player"
	case StepEditPlayer:
		return "edit_player"
	case StepDragPlayer:
		return "drag_player"
	case StepTeams:
		return "teams"
	default:
		return "completed"
	}
}

// Sequencer tracks the current tutorial step. It reports StepCompleted until
// Init has read the persisted flag so a returning user never sees the
// tutorial flash.
type Sequencer struct {
	kv  KV
	key string

	mu   sync.Mutex
	step Step
}

// NewSequencer stores its flag under key, or FlagKey when key is empty.
func NewSequencer(kv KV, key string) *Sequencer {
	if key == "" {
		key = FlagKey
	}
	return &Sequencer{kv: kv, key: key, step: StepCompleted}
}

func (s *Sequencer) Init(ctx context.Context) error {
	v, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("read onboarding flag: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok && v == "true" {
		s.step = StepCompleted
	} else {
		s.step = StepAddPlayer
	}
	return nil
}

// Next advances one step; leaving the last step completes the tutorial.
func (s *Sequencer) Next(ctx context.Context) error {
	s.mu.Lock()
	if s.step < StepTeams {
		s.step++
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.complete(ctx)
}

func (s *Sequencer) Skip(ctx context.Context) error {
	return s.complete(ctx)
}

func (s *Sequencer) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear onboarding flag: %w", err)
	}
	s.mu.Lock()
	s.step = StepAddPlayer
	s.mu.Unlock()
	return nil
}

func (s *Sequencer) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Sequencer) Completed() bool {
	return s.Step() == StepCompleted
}

// Advance moves to the next step only when the tutorial is currently at want.
func (s *Sequencer) Advance(ctx context.Context, want Step) (bool, error) {
	if s.Step() != want || want == StepCompleted {
		return false, nil
	}
	return true, s.Next(ctx)
}

func (s *Sequencer) complete(ctx context.Context) error {
	s.mu.Lock()
	s.step = StepCompleted
	s.mu.Unlock()
	if err := s.kv.Set(ctx, s.key, "true"); err != nil {
		return fmt.Errorf("store onboarding flag: %w", err)
	}
	return nil
}
