package server

import (
	"net/http"

	"LabelDesk/core/lifecycle"
	"LabelDesk/model"

	"github.com/gorilla/mux"
)

// TransitionRequest asks for a status change with an optional note.
type TransitionRequest struct {
	To      model.ReleaseStatus `json:"to"`
	Message string              `json:"message,omitempty"`
}

// GetReleasesHandler lists the releases visible to a label user.
func (h *APIHandler) GetReleasesHandler(w http.ResponseWriter, r *http.Request) {
	releases, err := h.releases.LabelReleases(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, releases)
}

func (h *APIHandler) GetReleaseHandler(w http.ResponseWriter, r *http.Request) {
	rel, err := h.releases.Get(r.Context(), actorOf(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*model.Release
		Allowed []model.ReleaseStatus `json:"allowedTransitions"`
	}{rel, lifecycle.Allowed(rel.Status)})
}

// TransitionHandler moves a release to another status.
func (h *APIHandler) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rel, err := h.releases.Transition(r.Context(), actorOf(r), mux.Vars(r)["id"], req.To, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// IncomingQueueHandler lists releases awaiting review.
func (h *APIHandler) IncomingQueueHandler(w http.ResponseWriter, r *http.Request) {
	releases, err := h.releases.IncomingQueue(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, releases)
}

// CorrectionQueueHandler lists releases sent back for more information.
func (h *APIHandler) CorrectionQueueHandler(w http.ResponseWriter, r *http.Request) {
	releases, err := h.releases.CorrectionQueue(r.Context(), actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, releases)
}
