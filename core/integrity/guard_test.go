package integrity

import (
	"context"
	"errors"
	"testing"

	"LabelDesk/errs"
	"LabelDesk/internal/testutil"
	"LabelDesk/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockStateFollowsProtectedSet(t *testing.T) {
	for _, status := range model.AllStatuses() {
		status := status
		t.Run(string(status), func(t *testing.T) {
			s := testutil.NewStore(t)
			label := testutil.Label(t, s, "Nightshift", "")
			primary := testutil.Artist(t, s, "Primary", label.ID)
			featured := testutil.Artist(t, s, "Featured", label.ID)
			onTrack := testutil.Artist(t, s, "On Track", label.ID)
			trackFeat := testutil.Artist(t, s, "Track Feature", label.ID)
			testutil.Release(t, s, "Neon Nights", label.ID, status, func(r *model.Release) {
				r.PrimaryArtistIDs = model.IDList{primary.ID}
				r.FeaturedArtistIDs = model.IDList{featured.ID}
				r.Tracks = model.TrackList{
					{TrackNumber: 1, PrimaryArtistIDs: model.IDList{onTrack.ID}},
					{TrackNumber: 2, FeaturedArtistIDs: model.IDList{trackFeat.ID}},
				}
			})

			g := NewGuard(s)
			for _, a := range []*model.Artist{primary, featured, onTrack, trackFeat} {
				st, err := g.LockState(context.Background(), a.ID)
				require.NoError(t, err)
				assert.Equal(t, status.IsProtected(), st.Locked, "artist %s", a.Name)
				if st.Locked {
					assert.Equal(t, "Neon Nights", st.ReleaseTitle)
					assert.Equal(t, status, st.Status)
				}
			}
		})
	}
}

func TestUnreferencedArtistIsFree(t *testing.T) {
	s := testutil.NewStore(t)
	label := testutil.Label(t, s, "Nightshift", "")
	a := testutil.Artist(t, s, "Solo", label.ID)
	testutil.Release(t, s, "Other", label.ID, model.StatusPublished, func(r *model.Release) {
		r.PrimaryArtistIDs = model.IDList{"someone-else"}
	})

	g := NewGuard(s)
	st, err := g.LockState(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, st.Locked)
	assert.NoError(t, g.CheckArtist(context.Background(), a.ID))
}

func TestCheckArtistNamesReleaseAndStatus(t *testing.T) {
	s := testutil.NewStore(t)
	label := testutil.Label(t, s, "Nightshift", "")
	a := testutil.Artist(t, s, "A", label.ID)
	rel := testutil.Release(t, s, "Neon Nights", label.ID, model.StatusPending, func(r *model.Release) {
		r.Tracks = model.TrackList{
			{TrackNumber: 1, Title: "Glow"},
			{TrackNumber: 2, Title: "Fade", FeaturedArtistIDs: model.IDList{a.ID}},
		}
	})

	err := NewGuard(s).CheckArtist(context.Background(), a.ID)
	require.Error(t, err)
	var lock *errs.IntegrityLockError
	require.True(t, errors.As(err, &lock))
	assert.Equal(t, rel.ID, lock.ReleaseID)
	assert.Equal(t, "Neon Nights", lock.ReleaseTitle)
	assert.Equal(t, "Pending", lock.Status)
	assert.Contains(t, err.Error(), "Neon Nights")
}

func TestCheckLabelInspectsOwnRosterOnly(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	parent := testutil.Label(t, s, "Parent", "")
	child := testutil.Label(t, s, "Child", parent.ID)
	free := testutil.Artist(t, s, "Free", parent.ID)
	lockedInChild := testutil.Artist(t, s, "Busy", child.ID)
	testutil.Release(t, s, "Live", child.ID, model.StatusPublished, func(r *model.Release) {
		r.PrimaryArtistIDs = model.IDList{lockedInChild.ID}
	})

	g := NewGuard(s)
	assert.NoError(t, g.CheckLabel(ctx, parent.ID))

	err := g.CheckLabel(ctx, child.ID)
	require.True(t, errs.IsIntegrityLock(err))
	var lock *errs.IntegrityLockError
	require.True(t, errors.As(err, &lock))
	assert.Equal(t, "label", lock.Entity)
	assert.Equal(t, lockedInChild.ID, lock.ArtistID)
	assert.Equal(t, "Published", lock.Status)

	_, states, err := g.RosterLocks(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, states[free.ID].Locked)
}

func TestLockStatePicksFirstCreatedRelease(t *testing.T) {
	s := testutil.NewStore(t)
	label := testutil.Label(t, s, "Nightshift", "")
	a := testutil.Artist(t, s, "A", label.ID)
	first := testutil.Release(t, s, "First", label.ID, model.StatusPublished, func(r *model.Release) {
		r.PrimaryArtistIDs = model.IDList{a.ID}
	})
	testutil.Release(t, s, "Second", label.ID, model.StatusNeedsInfo, func(r *model.Release) {
		r.PrimaryArtistIDs = model.IDList{a.ID}
	})

	st, err := NewGuard(s).LockState(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, st.Locked)
	assert.Equal(t, first.ID, st.ReleaseID)
	assert.True(t, st.Status.IsProtected())
}
