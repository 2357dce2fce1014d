package server

import (
	"net/http"

	"LabelDesk/core/roster"

	"github.com/gorilla/mux"
)

func (h *APIHandler) CreateArtistHandler(w http.ResponseWriter, r *http.Request) {
	var in roster.ArtistInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	artist, err := h.roster.CreateArtist(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, artist)
}

func (h *APIHandler) UpdateArtistHandler(w http.ResponseWriter, r *http.Request) {
	var patch roster.ArtistPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	artist, err := h.roster.UpdateArtist(r.Context(), actorOf(r), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (h *APIHandler) DeleteArtistHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.roster.DeleteArtist(r.Context(), actorOf(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetArtistLockHandler reports whether a protected release holds the artist.
func (h *APIHandler) GetArtistLockHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.roster.ArtistLock(r.Context(), actorOf(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
