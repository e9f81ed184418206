package web

import (
	"errors"
	"net/http"

	"github.com/AlouiLouai/takwira/internal/board"
	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/pitch"
	"github.com/AlouiLouai/takwira/internal/store"

	"github.com/go-chi/chi/v5"
)

type slotRequest struct {
	Team string `json:"team"`
	Slot *int   `json:"slot"`
}

func (req slotRequest) key() (model.SlotKey, error) {
	team, ok := model.ParseTeam(req.Team)
	if !ok {
		return model.SlotKey{}, store.ErrInvalidTeam
	}
	if req.Slot == nil {
		return model.SlotKey{}, store.ErrInvalidSlot
	}
	key := model.SlotKey{Team: team, Index: *req.Slot}
	if !key.Valid() {
		return model.SlotKey{}, store.ErrInvalidSlot
	}
	return key, nil
}

type nameRequest struct {
	Name string `json:"name"`
}

// pointerRequest carries one pointer event. Team and slot are only read on
// down and up.
type pointerRequest struct {
	slotRequest
	PointerID int     `json:"pointer_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (req pointerRequest) point() pitch.Point {
	return pitch.Point{X: req.X, Y: req.Y}
}

type pointerResponse struct {
	Handled bool       `json:"handled"`
	View    board.View `json:"view"`
}

// respondBoard renders the view. Operation failures are already reflected in
// the view's error field; only malformed input changes the status.
func (s *Server) respondBoard(w http.ResponseWriter, r *http.Request, b *board.Board, err error) {
	if err != nil {
		if errors.Is(err, store.ErrInvalidTeam) || errors.Is(err, store.ErrInvalidSlot) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.Debug(s.logger, "board operation failed", "error", err, logging.FieldPath, r.URL.Path)
	}
	writeJSON(w, http.StatusOK, b.View())
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.respondBoard(w, r, boardFrom(r), nil)
}

// handleBoardRecheck repeats the readiness check, typically after migrations
// were run from the setup screen.
func (s *Server) handleBoardRecheck(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	s.respondBoard(w, r, b, b.Recheck(r.Context()))
}

func (s *Server) handleBoardPitch(w http.ResponseWriter, r *http.Request) {
	var rect pitch.Rect
	if err := decodeJSON(r, &rect); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b := boardFrom(r)
	b.SetPitchRect(rect)
	s.respondBoard(w, r, b, nil)
}

func (s *Server) handleBoardSelect(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := req.key()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b := boardFrom(r)
	s.respondBoard(w, r, b, b.SelectSlot(r.Context(), key))
}

func (s *Server) handleBoardClose(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	b.CloseSelection()
	s.respondBoard(w, r, b, nil)
}

func (s *Server) handleBoardName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b := boardFrom(r)
	b.SetNameInput(req.Name)
	s.respondBoard(w, r, b, nil)
}

func (s *Server) handleBoardCommit(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	s.respondBoard(w, r, b, b.CommitEdit(r.Context()))
}

func (s *Server) handleBoardRemove(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	s.respondBoard(w, r, b, b.RemoveSelection(r.Context()))
}

func (s *Server) handleBoardPointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b := boardFrom(r)

	var (
		handled bool
		err     error
	)
	switch chi.URLParam(r, "phase") {
	case "down":
		key, keyErr := req.key()
		if keyErr != nil {
			writeError(w, http.StatusBadRequest, keyErr.Error())
			return
		}
		handled = b.StartDrag(key, req.PointerID, req.point())
	case "move":
		handled = b.HandleDragMove(req.PointerID, req.point())
	case "up":
		key, _ := req.key()
		err = b.HandleDragEnd(r.Context(), key, req.PointerID, req.point())
		handled = err == nil
	case "cancel":
		err = b.CancelDrag(req.PointerID, req.point())
		handled = err == nil
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil && (errors.Is(err, store.ErrInvalidTeam) || errors.Is(err, store.ErrInvalidSlot)) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pointerResponse{Handled: handled, View: b.View()})
}

func (s *Server) handleBoardTutorial(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	var err error
	switch chi.URLParam(r, "action") {
	case "next":
		err = b.TutorialNext(r.Context())
	case "skip":
		err = b.TutorialSkip(r.Context())
	case "reset":
		err = b.TutorialReset(r.Context())
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logging.Error(s.logger, "tutorial update failed", err)
		writeError(w, http.StatusInternalServerError, "tutorial update failed")
		return
	}
	s.respondBoard(w, r, b, nil)
}
