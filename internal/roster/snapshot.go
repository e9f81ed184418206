package roster

import (
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/store"
)

// Snapshot is a consistent copy of everything the presentation layer reads.
type Snapshot struct {
	// Rosters holds RosterSize entries per team; nil means the slot is empty.
	Rosters    map[model.Team][]*model.Player
	Selection  *model.SlotKey
	EditBuffer string
	Error      string
	Loading    bool
	Readiness  *store.Readiness
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Rosters:    make(map[model.Team][]*model.Player, len(model.Teams)),
		EditBuffer: s.editBuffer,
		Error:      s.errMsg,
		Loading:    s.loading,
	}
	for _, team := range model.Teams {
		slots := make([]*model.Player, model.RosterSize)
		for i := range slots {
			if p, ok := s.players[model.SlotKey{Team: team, Index: i}]; ok {
				p := p
				slots[i] = &p
			}
		}
		snap.Rosters[team] = slots
	}
	if s.selection != nil {
		k := *s.selection
		snap.Selection = &k
	}
	if s.readiness != nil {
		r := *s.readiness
		snap.Readiness = &r
	}
	return snap
}

// Player returns the player at key, if any.
func (s *Store) Player(key model.SlotKey) (model.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[key]
	return p, ok
}

func (s *Store) Selection() (model.SlotKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return model.SlotKey{}, false
	}
	return *s.selection, true
}

func (s *Store) EditBuffer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editBuffer
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Readiness reports the last readiness probe; ok is false before Init.
func (s *Store) Readiness() (store.Readiness, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readiness == nil {
		return store.Readiness{}, false
	}
	return *s.readiness, true
}
