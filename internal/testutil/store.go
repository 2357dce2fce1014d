// Package testutil builds isolated stores, fixtures and fake collaborators for tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"LabelDesk/db"
	"LabelDesk/model"
	"LabelDesk/repository"

	"github.com/stretchr/testify/require"
)

var seq int64

// NewStore creates a migrated in-memory SQLite store closed at test cleanup.
func NewStore(t *testing.T) *repository.Store {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:", false)
	require.NoError(t, err, "Failed to create test database")

	store := repository.NewStore(gdb)
	require.NoError(t, store.Migrate(context.Background()), "Failed to migrate schema")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Clock returns a deterministic clock advancing one second per call.
func Clock() func() time.Time {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var n int64
	return func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&n, 1)) * time.Second)
	}
}

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, atomic.AddInt64(&seq, 1))
}

func stamp() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(atomic.AddInt64(&seq, 1)) * time.Millisecond)
}

// Label inserts a label under parentID ("" for a root).
func Label(t *testing.T, s *repository.Store, name, parentID string) *model.Label {
	t.Helper()
	l := &model.Label{ID: nextID("label"), Name: name, Status: model.LabelActive, RevenueShare: 70}
	if parentID != "" {
		l.ParentLabelID = &parentID
	}
	l.CreatedAt = stamp()
	l.UpdatedAt = l.CreatedAt
	require.NoError(t, s.Labels().Create(context.Background(), l))
	return l
}

// Artist inserts an artist owned by labelID.
func Artist(t *testing.T, s *repository.Store, name, labelID string) *model.Artist {
	t.Helper()
	a := &model.Artist{ID: nextID("artist"), Name: name, LabelID: labelID, Type: model.ArtistSolo}
	a.CreatedAt = stamp()
	a.UpdatedAt = a.CreatedAt
	require.NoError(t, s.Artists().Create(context.Background(), a))
	return a
}

// Release inserts a release with the given status. Optional mutators adjust it before insert.
func Release(t *testing.T, s *repository.Store, title, labelID string, status model.ReleaseStatus, mutate ...func(*model.Release)) *model.Release {
	t.Helper()
	r := &model.Release{ID: nextID("release"), Title: title, LabelID: labelID, Status: status}
	r.CreatedAt = stamp()
	r.UpdatedAt = r.CreatedAt
	for _, m := range mutate {
		m(r)
	}
	require.NoError(t, s.Releases().Create(context.Background(), r))
	return r
}

// User inserts a label user.
func User(t *testing.T, s *repository.Store, name, labelID string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{ID: nextID("user"), Name: name, Email: nextID(name) + "@example.com", Role: role}
	if labelID != "" {
		u.LabelID = &labelID
	}
	u.CreatedAt = stamp()
	u.UpdatedAt = u.CreatedAt
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

// Staff returns a reviewer actor.
func Staff() model.Actor {
	return model.Actor{UserID: "staff-1", Name: "Riley Reviewer", Role: model.RoleStaff, Permissions: model.PermissionList{model.PermReviewReleases}}
}

// Owner returns the platform owner actor.
func Owner() model.Actor {
	return model.Actor{UserID: "owner-1", Name: "Platform Owner", Role: model.RoleOwner}
}

// LabelActor returns a label user acting for labelID with every label permission.
func LabelActor(labelID string) model.Actor {
	return model.Actor{
		UserID:  "label-user-" + labelID,
		Name:    "Label Manager",
		Role:    model.RoleLabel,
		LabelID: labelID,
		Permissions: model.PermissionList{
			model.PermSubmitReleases, model.PermManageLabels, model.PermManageArtists,
		},
	}
}
