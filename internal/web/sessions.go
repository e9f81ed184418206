package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/AlouiLouai/takwira/internal/board"
	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/metrics"
	"github.com/AlouiLouai/takwira/internal/onboarding"
	"github.com/AlouiLouai/takwira/internal/roster"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 500
)

// BoardFactory builds and initialises the board for a new session.
type BoardFactory func(ctx context.Context, id string) *board.Board

type SessionsOptions struct {
	TTL time.Duration
	// MaxSessions bounds live boards; opening one more closes the least
	// recently seen. Defaults to 500.
	MaxSessions int
	Logger   *slog.Logger
	Recorder *metrics.Recorder
}

// Sessions owns one board per browser session. Idle boards are closed the
// next time the registry is touched after their TTL.
type Sessions struct {
	factory BoardFactory
	ttl     time.Duration
	max     int
	logger  *slog.Logger
	rec     *metrics.Recorder
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
	closed  bool
}

type sessionEntry struct {
	board    *board.Board
	lastSeen time.Time
}

func NewSessions(factory BoardFactory, opts SessionsOptions) *Sessions {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &Sessions{
		factory: factory,
		ttl:     ttl,
		max:     maxSessions,
		logger:  opts.Logger,
		rec:     opts.Recorder,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
	}
}

// Get returns the board for id, creating it on first use.
func (s *Sessions) Get(ctx context.Context, id string) *board.Board {
	s.mu.Lock()
	now := s.now()
	expired := s.expireLocked(now)
	if e, ok := s.entries[id]; ok {
		e.lastSeen = now
		s.mu.Unlock()
		s.closeAll(expired)
		return e.board
	}
	s.mu.Unlock()
	s.closeAll(expired)

	b := s.factory(ctx, id)

	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		// Lost a race with a concurrent first request for the same session.
		e.lastSeen = now
		s.mu.Unlock()
		s.closeAll([]*board.Board{b})
		return e.board
	}
	if s.closed {
		s.mu.Unlock()
		s.closeAll([]*board.Board{b})
		return b
	}
	s.entries[id] = &sessionEntry{board: b, lastSeen: now}
	evicted := s.evictLocked(id)
	n := len(s.entries)
	s.mu.Unlock()

	s.rec.SetSessions(n)
	logging.Debug(s.logger, "session opened", logging.FieldSession, id)
	s.closeAll(evicted)
	return b
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close closes every board and refuses to keep new ones.
func (s *Sessions) Close() error {
	s.mu.Lock()
	s.closed = true
	boards := make([]*board.Board, 0, len(s.entries))
	for id, e := range s.entries {
		boards = append(boards, e.board)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	s.rec.SetSessions(0)
	var errs []error
	for _, b := range boards {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sessions) expireLocked(now time.Time) []*board.Board {
	var expired []*board.Board
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			expired = append(expired, e.board)
			delete(s.entries, id)
			logging.Debug(s.logger, "session expired", logging.FieldSession, id)
		}
	}
	if len(expired) > 0 {
		s.rec.SetSessions(len(s.entries))
	}
	return expired
}

// evictLocked drops the least recently seen sessions, never keep, until the
// registry is within its bound.
func (s *Sessions) evictLocked(keep string) []*board.Board {
	var evicted []*board.Board
	for len(s.entries) > s.max {
		oldestID := ""
		var oldest *sessionEntry
		for id, e := range s.entries {
			if id == keep {
				continue
			}
			if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
				oldestID, oldest = id, e
			}
		}
		if oldest == nil {
			break
		}
		delete(s.entries, oldestID)
		evicted = append(evicted, oldest.board)
		logging.Debug(s.logger, "session evicted", logging.FieldSession, oldestID)
	}
	return evicted
}

func (s *Sessions) closeAll(boards []*board.Board) {
	for _, b := range boards {
		if err := b.Close(); err != nil {
			logging.Warn(s.logger, "close board failed", "error", err)
		}
	}
}

// newBoard gives each session its own roster and tutorial flag over the shared
// gateway.
func (s *Server) newBoard(ctx context.Context, id string) *board.Board {
	logger := s.logger
	if logger != nil {
		logger = logger.With(logging.FieldSession, id)
	}
	r := roster.New(s.gateway, roster.Options{Logger: logger, UUID: s.uuid})
	b := board.New(r, board.Options{
		Logger:    logger,
		Threshold: s.threshold,
		Tutorial:  onboarding.NewSequencer(s.kv, onboarding.FlagKey+":"+id),
	})
	if err := b.Init(ctx); err != nil {
		logging.Warn(logger, "board init failed", "error", err)
	}
	return b
}
