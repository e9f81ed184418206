// Package roster holds the local copy of both squads and reconciles it with
// the players table.
//
// Name changes and deletions are confirmed by the gateway before the local
// copy changes. Position changes are applied locally first and persisted in
// the background; they are never rolled back. Every change-feed notification
// triggers a full reload which replaces the local copy wholesale.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/AlouiLouai/takwira/internal/common/uuid"
	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/store"

	"golang.org/x/text/unicode/norm"
)

// User-visible error strings. Only one is shown at a time.
const (
	MsgLoad     = "Failed to load players"
	MsgSave     = "Failed to save player"
	MsgRemove   = "Failed to remove player"
	MsgPosition = "Failed to save position"
	MsgConnect  = "Failed to connect to database"
)

var ErrClosed = errors.New("roster is closed")

type Options struct {
	Logger *slog.Logger
	// UUID generates avatar seeds for new players. Defaults to random UUIDs.
	UUID uuid.UUID
}

type Store struct {
	gateway store.Gateway
	logger  *slog.Logger
	uuid    uuid.UUID

	// bg outlives individual requests; position writes and feed-triggered
	// reloads run on it.
	bg       context.Context
	cancelBg context.CancelFunc
	wg       sync.WaitGroup

	mu         sync.RWMutex
	players    map[model.SlotKey]model.Player
	selection  *model.SlotKey
	editBuffer string
	errMsg     string
	loading    bool
	readiness  *store.Readiness
	loadSeq    uint64
	sub        store.Subscription
	writers    map[model.SlotKey]*positionWriter
	closed     bool
}

func New(gateway store.Gateway, opts Options) *Store {
	id := opts.UUID
	if id == nil {
		id = uuid.New()
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Store{
		gateway:  gateway,
		logger:   opts.Logger,
		uuid:     id,
		bg:       bg,
		cancelBg: cancel,
		players:  make(map[model.SlotKey]model.Player),
		writers:  make(map[model.SlotKey]*positionWriter),
	}
}

// Init checks readiness and, when the table is usable, loads the rosters and
// subscribes to the change feed. A store that is not ready stays empty and
// never loads. Failures are surfaced through Error as well as returned.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	r := s.gateway.CheckReadiness(ctx)

	s.mu.Lock()
	s.readiness = &r
	if !r.IsReady {
		s.loading = false
		if r.ErrorKind == store.ErrorConnection {
			s.errMsg = MsgConnect
		}
		s.mu.Unlock()
		logging.Warn(s.logger, "players table not ready", logging.FieldErrorKind, string(r.ErrorKind), "message", r.Message)
		return nil
	}
	s.mu.Unlock()

	loadErr := s.Load(ctx)

	s.mu.Lock()
	subscribed := s.sub != nil
	s.mu.Unlock()
	if subscribed {
		return loadErr
	}

	sub, err := s.gateway.Subscribe(s.bg, s.onRemoteChange)
	if err != nil {
		logging.Error(s.logger, "change feed subscribe failed", err)
		s.setError(MsgConnect)
		return fmt.Errorf("subscribe: %w", err)
	}

	s.mu.Lock()
	if s.closed || s.sub != nil {
		s.mu.Unlock()
		_ = sub.Unsubscribe()
		return loadErr
	}
	s.sub = sub
	s.mu.Unlock()
	return loadErr
}

// Load replaces the local rosters with the gateway's rows in one swap. On
// failure the previous rosters are kept. When loads overlap only the most
// recently started one is applied.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.readiness == nil || !s.readiness.IsReady {
		s.mu.Unlock()
		return store.ErrNotReady
	}
	s.loadSeq++
	seq := s.loadSeq
	s.loading = true
	s.mu.Unlock()

	rows, err := s.gateway.FetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.loadSeq {
		return err
	}
	s.loading = false
	if err != nil {
		logging.Error(s.logger, "load players failed", err, logging.FieldOp, "load")
		s.errMsg = MsgLoad
		return fmt.Errorf("load players: %w", err)
	}

	next := make(map[model.SlotKey]model.Player, len(rows))
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			logging.Warn(s.logger, "ignoring invalid player row", "id", row.ID, "error", err)
			continue
		}
		next[row.Key()] = row.Player()
	}
	s.players = next
	s.errMsg = ""
	return nil
}

func (s *Store) onRemoteChange() {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}
	_ = s.Load(s.bg)
}

// SelectSlot makes key the active selection and seeds the edit buffer with its
// current name. Any uncommitted edit is discarded.
func (s *Store) SelectSlot(key model.SlotKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %s", store.ErrInvalidSlot, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key
	s.selection = &k
	s.editBuffer = ""
	if p, ok := s.players[key]; ok {
		s.editBuffer = p.Name
	}
	return nil
}

func (s *Store) CloseSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
	s.editBuffer = ""
}

func (s *Store) SetEditBuffer(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editBuffer = text
}

// CommitEdit persists the edit buffer for the selected slot. A blank buffer
// deletes the player. Local state changes only after the gateway confirms.
func (s *Store) CommitEdit(ctx context.Context) error {
	s.mu.RLock()
	if err := s.readyLocked(); err != nil {
		s.mu.RUnlock()
		return err
	}
	if s.selection == nil {
		s.mu.RUnlock()
		return nil
	}
	key := *s.selection
	text := s.editBuffer
	existing, has := s.players[key]
	s.mu.RUnlock()

	name := norm.NFC.String(strings.TrimSpace(text))
	if name == "" {
		return s.remove(ctx, key, MsgSave)
	}

	row := store.Row{
		Name:      name,
		TeamID:    key.Team,
		SlotIndex: key.Index,
	}
	if has {
		row.ID = existing.ID
		row.AvatarSeed = existing.AvatarSeed
		row.PositionX, row.PositionY = existing.Position.X, existing.Position.Y
	} else {
		pos := model.FormationPoint(key)
		row.AvatarSeed = s.uuid.NewUUID()
		row.PositionX, row.PositionY = pos.X, pos.Y
	}

	stored, err := s.gateway.Upsert(ctx, row)
	if err != nil {
		logging.Error(s.logger, "save player failed", err,
			logging.FieldOp, "commit", logging.FieldTeam, string(key.Team), logging.FieldSlot, key.Index)
		s.setError(MsgSave)
		return fmt.Errorf("save player %s: %w", key, err)
	}
	if stored.Validate() != nil || stored.Key() != key {
		stored = row
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[key] = stored.Player()
	s.clearSelectionLocked(key)
	s.errMsg = ""
	return nil
}

// RemoveSelection deletes the selected slot's player regardless of the edit
// buffer.
func (s *Store) RemoveSelection(ctx context.Context) error {
	s.mu.RLock()
	if err := s.readyLocked(); err != nil {
		s.mu.RUnlock()
		return err
	}
	if s.selection == nil {
		s.mu.RUnlock()
		return nil
	}
	key := *s.selection
	s.mu.RUnlock()

	return s.remove(ctx, key, MsgRemove)
}

func (s *Store) remove(ctx context.Context, key model.SlotKey, failMsg string) error {
	if err := s.gateway.Delete(ctx, key.Team, key.Index); err != nil {
		logging.Error(s.logger, "remove player failed", err,
			logging.FieldOp, "remove", logging.FieldTeam, string(key.Team), logging.FieldSlot, key.Index)
		s.setError(failMsg)
		return fmt.Errorf("remove player %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, key)
	s.clearSelectionLocked(key)
	s.errMsg = ""
	return nil
}

// MoveLocal updates a player's position without persisting it. It is used
// while a drag is in progress.
func (s *Store) MoveLocal(key model.SlotKey, pos model.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[key]
	if !ok {
		return false
	}
	p.Position = pos.Clamped()
	s.players[key] = p
	return true
}

// Reposition applies pos locally and persists it in the background. A failed
// write is reported but the local position stays.
func (s *Store) Reposition(key model.SlotKey, pos model.Position) error {
	pos = pos.Clamped()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.readyLocked(); err != nil {
		return err
	}
	p, ok := s.players[key]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	p.Position = pos
	s.players[key] = p
	s.enqueuePositionLocked(key, pos)
	return nil
}

// Wait blocks until every queued position write has settled.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close unsubscribes from the change feed, cancels in-flight position writes
// and waits for their goroutines. Pending positions are dropped. It is safe to
// call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	s.cancelBg()
	s.wg.Wait()
	return err
}

func (s *Store) readyLocked() error {
	if s.readiness == nil || !s.readiness.IsReady {
		return store.ErrNotReady
	}
	return nil
}

func (s *Store) clearSelectionLocked(key model.SlotKey) {
	if s.selection != nil && *s.selection == key {
		s.selection = nil
		s.editBuffer = ""
	}
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}
