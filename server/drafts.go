package server

import (
	"os"
	"path/filepath"
	"sync"

	"LabelDesk/core/staging"
	"LabelDesk/errs"
	"LabelDesk/logger"
)

// draftEntry is one open draft and the directory holding its staged files.
type draftEntry struct {
	draft *staging.Draft
	owner string
	dir   string
}

// draftRegistry keeps the drafts opened through the API, private to the user
// that opened them.
type draftRegistry struct {
	mu      sync.Mutex
	root    string
	entries map[string]*draftEntry
}

func newDraftRegistry(root string) *draftRegistry {
	return &draftRegistry{root: root, entries: make(map[string]*draftEntry)}
}

// put registers d for owner. A draft of the same release already opened by
// owner is returned instead.
func (g *draftRegistry) put(owner string, d *staging.Draft) (*draftEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := d.ID()
	if e, ok := g.entries[id]; ok {
		if e.owner != owner {
			return nil, errs.Validation("releaseId", "release %s is being edited by another user", id)
		}
		return e, nil
	}
	e := &draftEntry{draft: d, owner: owner, dir: filepath.Join(g.root, id)}
	g.entries[id] = e
	return e, nil
}

func (g *draftRegistry) get(owner, id string) (*draftEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[id]
	if !ok || e.owner != owner {
		return nil, errs.NotFound("draft", id)
	}
	return e, nil
}

// remove forgets the draft and deletes its staged files.
func (g *draftRegistry) remove(id string) {
	g.mu.Lock()
	e, ok := g.entries[id]
	delete(g.entries, id)
	g.mu.Unlock()
	if !ok {
		return
	}
	if err := os.RemoveAll(e.dir); err != nil {
		logger.Warn("清理暂存目录失败", logger.String("dir", e.dir), logger.ErrorField(err))
	}
}

func (g *draftRegistry) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
