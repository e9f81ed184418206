package web

import (
	"net/http"
	"strings"

	"github.com/AlouiLouai/takwira/internal/logging"
	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/store"
)

type playerUpsertRequest struct {
	Name       string   `json:"name"`
	AvatarSeed string   `json:"avatar_seed"`
	PositionX  *float64 `json:"position_x"`
	PositionY  *float64 `json:"position_y"`
}

type positionRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	readiness := s.gateway.CheckReadiness(r.Context())
	status := http.StatusOK
	if !readiness.IsReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, readiness)
}

func (s *Server) handlePlayersList(w http.ResponseWriter, r *http.Request) {
	rows, err := s.gateway.FetchAll(r.Context())
	if err != nil {
		logging.Error(s.logger, "list players failed", err, logging.FieldOp, "fetch_all")
		writeStoreError(w, err)
		return
	}
	if rows == nil {
		rows = []store.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handlePlayerUpsert writes the slot's player. Fields the request omits keep
// the slot's current values; an empty slot gets a generated seed and its
// formation point.
func (s *Server) handlePlayerUpsert(w http.ResponseWriter, r *http.Request) {
	key, err := slotKeyParam(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var req playerUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := s.currentRow(r, key)
	if err != nil {
		logging.Error(s.logger, "upsert player failed", err,
			logging.FieldOp, "fetch_all", logging.FieldTeam, string(key.Team), logging.FieldSlot, key.Index)
		writeStoreError(w, err)
		return
	}

	pos := model.FormationPoint(key)
	seed := ""
	if current != nil {
		pos = model.Position{X: current.PositionX, Y: current.PositionY}
		seed = current.AvatarSeed
	}
	if req.PositionX != nil {
		pos.X = *req.PositionX
	}
	if req.PositionY != nil {
		pos.Y = *req.PositionY
	}
	if v := strings.TrimSpace(req.AvatarSeed); v != "" {
		seed = v
	}
	if seed == "" {
		seed = s.uuid.NewUUID()
	}
	row := store.Row{
		Name:       req.Name,
		AvatarSeed: seed,
		TeamID:     key.Team,
		SlotIndex:  key.Index,
		PositionX:  pos.X,
		PositionY:  pos.Y,
	}
	stored, err := s.gateway.Upsert(r.Context(), row)
	if err != nil {
		logging.Error(s.logger, "upsert player failed", err,
			logging.FieldOp, "upsert", logging.FieldTeam, string(key.Team), logging.FieldSlot, key.Index)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// currentRow returns the row stored at key, or nil when the slot is empty.
func (s *Server) currentRow(r *http.Request, key model.SlotKey) (*store.Row, error) {
	rows, err := s.gateway.FetchAll(r.Context())
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Key() == key {
			return &rows[i], nil
		}
	}
	return nil, nil
}

func (s *Server) handlePlayerDelete(w http.ResponseWriter, r *http.Request) {
	key, err := slotKeyParam(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.gateway.Delete(r.Context(), key.Team, key.Index); err != nil {
		logging.Error(s.logger, "delete player failed", err,
			logging.FieldOp, "delete", logging.FieldTeam, string(key.Team), logging.FieldSlot, key.Index)
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerPosition(w http.ResponseWriter, r *http.Request) {
	key, err := slotKeyParam(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	if err := s.gateway.UpdatePosition(r.Context(), key.Team, key.Index, *req.X, *req.Y); err != nil {
		logging.Error(s.logger, "update position failed", err,
			logging.FieldOp, "update_position", logging.FieldTeam, string(key.Team), logging.FieldSlot, key.Index)
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
