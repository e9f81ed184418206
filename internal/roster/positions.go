package roster

import (
	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/model"
)

// positionWriter serialises position writes for one slot. At most one write is
// in flight; a newer position replaces any pending one, so the table ends up
// with the last position applied locally.
type positionWriter struct {
	pending *model.Position
}

func (s *Store) enqueuePositionLocked(key model.SlotKey, pos model.Position) {
	if w, ok := s.writers[key]; ok {
		w.pending = &pos
		return
	}
	s.writers[key] = &positionWriter{}
	s.wg.Add(1)
	go s.writePositions(key, pos)
}

func (s *Store) writePositions(key model.SlotKey, pos model.Position) {
	defer s.wg.Done()

	for {
		err := s.gateway.UpdatePosition(s.bg, key.Team, key.Index, pos.X, pos.Y)
		if err != nil && s.bg.Err() == nil {
			logging.Error(s.logger, "save position failed", err,
				logging.FieldOp, "reposition", logging.FieldTeam, string(key.Team), logging.FieldSlot, key.Index)
		}

		s.mu.Lock()
		switch {
		case s.bg.Err() != nil:
			// Closed: drop whatever is still pending.
		case err != nil:
			s.errMsg = MsgPosition
		case s.errMsg == MsgPosition:
			s.errMsg = ""
		}
		w := s.writers[key]
		if w == nil || w.pending == nil || s.bg.Err() != nil {
			delete(s.writers, key)
			s.mu.Unlock()
			return
		}
		pos = *w.pending
		w.pending = nil
		s.mu.Unlock()
	}
}
