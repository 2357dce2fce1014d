package server

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"LabelDesk/core/staging"
	"LabelDesk/core/utils"
	"LabelDesk/errs"
	"LabelDesk/logger"
	"LabelDesk/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	maxArtworkBytes = 20 << 20
	maxAudioBytes   = 2 << 30
)

// DraftRequest opens a draft: a new one for labelId, or an existing release.
type DraftRequest struct {
	LabelID   string `json:"labelId,omitempty"`
	Title     string `json:"title,omitempty"`
	ReleaseID string `json:"releaseId,omitempty"`
}

// TrackMetadata is the editable part of a track.
type TrackMetadata struct {
	Title             string       `json:"title"`
	DiscNumber        int          `json:"discNumber,omitempty"`
	ISRC              string       `json:"isrc,omitempty"`
	Explicit          bool         `json:"explicit"`
	PrimaryArtistIDs  model.IDList `json:"primaryArtistIds,omitempty"`
	FeaturedArtistIDs model.IDList `json:"featuredArtistIds,omitempty"`
}

func (m TrackMetadata) applyTo(t *model.Track) {
	t.Title = strings.TrimSpace(m.Title)
	if m.DiscNumber > 0 {
		t.DiscNumber = m.DiscNumber
	}
	t.ISRC = m.ISRC
	t.Explicit = m.Explicit
	t.PrimaryArtistIDs = m.PrimaryArtistIDs
	t.FeaturedArtistIDs = m.FeaturedArtistIDs
}

// DraftMetadata lists release fields to change; nil fields are left alone.
// Tracks are matched by position.
type DraftMetadata struct {
	Title             *string         `json:"title,omitempty"`
	LabelID           *string         `json:"labelId,omitempty"`
	PrimaryArtistIDs  model.IDList    `json:"primaryArtistIds,omitempty"`
	FeaturedArtistIDs model.IDList    `json:"featuredArtistIds,omitempty"`
	UPC               *string         `json:"upc,omitempty"`
	Genre             *string         `json:"genre,omitempty"`
	ReleaseDate       *time.Time      `json:"releaseDate,omitempty"`
	Tracks            []TrackMetadata `json:"tracks,omitempty"`
}

func (m DraftMetadata) applyTo(r *model.Release) {
	if m.Title != nil {
		r.Title = strings.TrimSpace(*m.Title)
	}
	if m.LabelID != nil {
		r.LabelID = *m.LabelID
	}
	if m.PrimaryArtistIDs != nil {
		r.PrimaryArtistIDs = m.PrimaryArtistIDs
	}
	if m.FeaturedArtistIDs != nil {
		r.FeaturedArtistIDs = m.FeaturedArtistIDs
	}
	if m.UPC != nil {
		r.UPC = *m.UPC
	}
	if m.Genre != nil {
		r.Genre = *m.Genre
	}
	if m.ReleaseDate != nil {
		r.ReleaseDate = m.ReleaseDate
	}
	for i, tm := range m.Tracks {
		if i < len(r.Tracks) {
			tm.applyTo(&r.Tracks[i])
		}
	}
}

func (h *APIHandler) draftFor(r *http.Request) (*draftEntry, error) {
	return h.drafts.get(actorOf(r).UserID, mux.Vars(r)["id"])
}

// CreateDraftHandler opens a new draft or loads a Draft/NeedsInfo release for editing.
func (h *APIHandler) CreateDraftHandler(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	actor := actorOf(r)

	var d *staging.Draft
	if req.ReleaseID != "" {
		loaded, err := h.pipeline.LoadDraft(r.Context(), actor, req.ReleaseID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		d = loaded
	} else {
		labelID := req.LabelID
		if labelID == "" {
			labelID = actor.LabelID
		}
		if labelID == "" {
			writeError(w, r, errs.Validation("labelId", "a draft needs a label"))
			return
		}
		d = h.pipeline.NewDraft(labelID, strings.TrimSpace(req.Title))
	}

	entry, err := h.drafts.put(actor.UserID, d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("草稿已打开", logger.String("releaseId", d.ID()), logger.String("actor", actor.UserID))
	writeJSON(w, http.StatusCreated, entry.draft.Release())
}

func (h *APIHandler) GetDraftHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.draft.Release())
}

// UpdateDraftHandler edits draft metadata. Asset references are untouched.
func (h *APIHandler) UpdateDraftHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var meta DraftMetadata
	if err := decodeJSON(r, &meta); err != nil {
		writeError(w, r, err)
		return
	}
	entry.draft.Edit(meta.applyTo)
	writeJSON(w, http.StatusOK, entry.draft.Release())
}

// DiscardDraftHandler closes a draft and deletes its staged files.
func (h *APIHandler) DiscardDraftHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.drafts.remove(entry.draft.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) AddTrackHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var meta TrackMetadata
	if err := decodeJSON(r, &meta); err != nil {
		writeError(w, r, err)
		return
	}
	var t model.Track
	meta.applyTo(&t)
	index := entry.draft.AddTrack(t)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"index": index, "draft": entry.draft.Release()})
}

func (h *APIHandler) RemoveTrackHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := trackIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := entry.draft.RemoveTrack(index); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.draft.Release())
}

// UploadArtworkHandler stages the "file" form field as the release artwork.
func (h *APIHandler) UploadArtworkHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path, err := h.receiveFile(r, filepath.Join(entry.dir, "artwork", uuid.NewString()), maxArtworkBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := entry.draft.StageArtwork(path); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.draft.Release())
}

// UploadAudioHandler stages the "file" form field as the audio of one track.
func (h *APIHandler) UploadAudioHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := trackIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path, err := h.receiveFile(r, filepath.Join(entry.dir, "audio", uuid.NewString()), maxAudioBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := entry.draft.StageAudio(path, index); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.draft.Release())
}

// receiveFile saves the multipart "file" field into dir.
func (h *APIHandler) receiveFile(r *http.Request, dir string, maxBytes int64) (string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		return "", errs.Validation("file", "failed to parse multipart form: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", errs.Validation("file", "missing 'file' in form")
	}
	defer file.Close()

	path, _, err := utils.SaveUpload(file, dir, header.Filename, maxBytes)
	if err != nil {
		return "", errs.Validation("file", "%v", err)
	}
	return path, nil
}

func trackIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return 0, errs.Validation("index", "track index must be a number")
	}
	return index, nil
}

func submitRequested(r *http.Request) bool {
	submit, _ := strconv.ParseBool(r.URL.Query().Get("submit"))
	return submit
}

// CommitDraftHandler uploads the staged assets and saves the release. The
// draft is closed once the commit succeeds.
func (h *APIHandler) CommitDraftHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rel, err := h.pipeline.Commit(r.Context(), actorOf(r), entry.draft, submitRequested(r), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.drafts.remove(rel.ID)
	writeJSON(w, http.StatusOK, rel)
}
