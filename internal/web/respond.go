package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/store"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps gateway errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidTeam),
		errors.Is(err, store.ErrInvalidSlot),
		errors.Is(err, store.ErrBlankName),
		errors.Is(err, store.ErrMissingSeed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// slotKeyParam reads {team} and {slot} from the route.
func slotKeyParam(r *http.Request) (model.SlotKey, error) {
	team, ok := model.ParseTeam(chi.URLParam(r, "team"))
	if !ok {
		return model.SlotKey{}, fmt.Errorf("%w: %q", store.ErrInvalidTeam, chi.URLParam(r, "team"))
	}
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		return model.SlotKey{}, fmt.Errorf("%w: %q", store.ErrInvalidSlot, chi.URLParam(r, "slot"))
	}
	key := model.SlotKey{Team: team, Index: slot}
	if !key.Valid() {
		return model.SlotKey{}, fmt.Errorf("%w: %d", store.ErrInvalidSlot, slot)
	}
	return key, nil
}
