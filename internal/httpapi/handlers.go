package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seangravener/game-button-masher/internal/engine"
	"github.com/seangravener/game-button-masher/internal/hub"
	"github.com/seangravener/game-button-masher/pkg/types"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetRoom serves the current snapshot of one room.
func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := h.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, err)
			return
		}
		view, err := lb.View(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view.State)
	}
}

type stats struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
}

func Stats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbies, err := h.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		out := stats{Rooms: len(lobbies)}
		for _, lb := range lobbies {
			view, err := lb.View(r.Context())
			if err != nil {
				continue // removed while we were counting
			}
			out.Players += len(view.State.Players)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidRoomCode):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, hub.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, types.ErrorMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
