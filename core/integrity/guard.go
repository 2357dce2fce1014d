// Package integrity decides whether artists and labels are frozen by releases
// that are under review or already distributed.
package integrity

import (
	"context"

	"LabelDesk/errs"
	"LabelDesk/model"
	"LabelDesk/repository"
)

// LockState describes whether an artist is frozen and by which release.
type LockState struct {
	Locked       bool                `json:"locked"`
	ReleaseID    string              `json:"releaseId,omitempty"`
	ReleaseTitle string              `json:"releaseTitle,omitempty"`
	Status       model.ReleaseStatus `json:"status,omitempty"`
}

// Guard checks artist and label locks against the entity store.
type Guard struct {
	store *repository.Store
}

func NewGuard(store *repository.Store) *Guard {
	return &Guard{store: store}
}

// WithStore binds the guard to another store, typically a transaction.
func (g *Guard) WithStore(s *repository.Store) *Guard {
	return &Guard{store: s}
}

func stateFor(rel *model.Release) LockState {
	return LockState{Locked: true, ReleaseID: rel.ID, ReleaseTitle: rel.Title, Status: rel.Status}
}

// LockState reports whether artistID is referenced, at release level or on any
// track, by a release in a protected status. The first such release in
// creation order is returned.
func (g *Guard) LockState(ctx context.Context, artistID string) (LockState, error) {
	releases, err := g.store.Releases().ListReferencingArtist(ctx, artistID, model.ProtectedStatuses()...)
	if err != nil {
		return LockState{}, err
	}
	if len(releases) == 0 {
		return LockState{}, nil
	}
	return stateFor(releases[0]), nil
}

// CheckArtist returns an IntegrityLockError when artistID is locked.
func (g *Guard) CheckArtist(ctx context.Context, artistID string) error {
	state, err := g.LockState(ctx, artistID)
	if err != nil {
		return err
	}
	if !state.Locked {
		return nil
	}
	return &errs.IntegrityLockError{
		Entity:       "artist",
		EntityID:     artistID,
		ReleaseID:    state.ReleaseID,
		ReleaseTitle: state.ReleaseTitle,
		Status:       string(state.Status),
	}
}

// RosterLocks reports the lock state of every artist owned directly by
// labelID, with a single scan of protected releases.
func (g *Guard) RosterLocks(ctx context.Context, labelID string) ([]*model.Artist, map[string]LockState, error) {
	artists, err := g.store.Artists().ListByLabels(ctx, []string{labelID})
	if err != nil {
		return nil, nil, err
	}
	states, err := g.LockStates(ctx, artists)
	if err != nil {
		return nil, nil, err
	}
	return artists, states, nil
}

// LockStates reports the lock state of each artist, keyed by id.
func (g *Guard) LockStates(ctx context.Context, artists []*model.Artist) (map[string]LockState, error) {
	states := make(map[string]LockState, len(artists))
	if len(artists) == 0 {
		return states, nil
	}
	protected, err := g.store.Releases().ListByStatus(ctx, model.ProtectedStatuses()...)
	if err != nil {
		return nil, err
	}
	for _, a := range artists {
		states[a.ID] = LockState{}
		for _, rel := range protected {
			if rel.References(a.ID) {
				states[a.ID] = stateFor(rel)
				break
			}
		}
	}
	return states, nil
}

// CheckLabel fails when any artist on the label's own roster is locked.
// Sub-label rosters are not inspected here.
func (g *Guard) CheckLabel(ctx context.Context, labelID string) error {
	artists, states, err := g.RosterLocks(ctx, labelID)
	if err != nil {
		return err
	}
	for _, a := range artists {
		if st := states[a.ID]; st.Locked {
			return &errs.IntegrityLockError{
				Entity:       "label",
				EntityID:     labelID,
				ArtistID:     a.ID,
				ReleaseID:    st.ReleaseID,
				ReleaseTitle: st.ReleaseTitle,
				Status:       string(st.Status),
			}
		}
	}
	return nil
}
