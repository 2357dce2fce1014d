package server

import (
	"net/http"

	"LabelDesk/core/roster"

	"github.com/gorilla/mux"
)

// GetLabelTreeHandler returns the label forest visible to the actor.
func (h *APIHandler) GetLabelTreeHandler(w http.ResponseWriter, r *http.Request) {
	tree, err := h.roster.Tree(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// CreateLabelHandler creates a root or sub-label, optionally with its login.
func (h *APIHandler) CreateLabelHandler(w http.ResponseWriter, r *http.Request) {
	var in roster.LabelInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	label, user, err := h.roster.CreateLabel(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]interface{}{"label": label}
	if user != nil {
		resp["user"] = user
	}
	writeJSON(w, http.StatusCreated, resp)
}

// UpdateLabelHandler applies a partial update to a label.
func (h *APIHandler) UpdateLabelHandler(w http.ResponseWriter, r *http.Request) {
	var patch roster.LabelPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	label, err := h.roster.UpdateLabel(r.Context(), actorOf(r), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// ReparentLabelHandler moves a label under another parent. An empty
// parentLabelId makes it a root.
func (h *APIHandler) ReparentLabelHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentLabelID string `json:"parentLabelId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	label, err := h.roster.ReparentLabel(r.Context(), actorOf(r), mux.Vars(r)["id"], req.ParentLabelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// DeleteLabelHandler removes a label and everything below it.
func (h *APIHandler) DeleteLabelHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.roster.DeleteLabel(r.Context(), actorOf(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetLabelArtistsHandler lists the artists visible from a label with their lock state.
func (h *APIHandler) GetLabelArtistsHandler(w http.ResponseWriter, r *http.Request) {
	views, err := h.roster.Artists(r.Context(), actorOf(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
