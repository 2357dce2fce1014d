package server

import (
	"context"
	"net/http"
	"sync"

	"LabelDesk/logger"
	"LabelDesk/model"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// commitEvent is one websocket frame of a commit: progress updates followed
// by exactly one "done" or "error".
type commitEvent struct {
	Type    string         `json:"type"`
	Percent float64        `json:"percent,omitempty"`
	Release *model.Release `json:"release,omitempty"`
	Error   string         `json:"error,omitempty"`
	Status  int            `json:"status,omitempty"`
}

// CommitDraftWSHandler runs a commit and streams its progress over a websocket.
// Closing the socket cancels the commit.
func (h *APIHandler) CommitDraftWSHandler(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draftFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	actor := actorOf(r)
	var writeMu sync.Mutex
	send := func(ev commitEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			logger.Warn("websocket write", logger.ErrorField(err))
		}
	}

	rel, err := h.pipeline.Commit(ctx, actor, entry.draft, submitRequested(r), func(pct float64) {
		send(commitEvent{Type: "progress", Percent: pct})
	})
	if err != nil {
		send(commitEvent{Type: "error", Error: err.Error(), Status: statusFor(err)})
		return
	}
	h.drafts.remove(rel.ID)
	send(commitEvent{Type: "done", Percent: 100, Release: rel})
}
