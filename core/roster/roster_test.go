package roster

import (
	"context"
	"errors"
	"testing"

	"LabelDesk/cache"
	"LabelDesk/core/auth"
	"LabelDesk/core/hierarchy"
	"LabelDesk/core/integrity"
	"LabelDesk/errs"
	"LabelDesk/internal/testutil"
	"LabelDesk/model"
	"LabelDesk/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *repository.Store
	storage  *testutil.FakeStorage
	resolver *hierarchy.Resolver
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := testutil.NewStore(t)
	f := &fixture{store: s, storage: testutil.NewFakeStorage()}
	f.resolver = hierarchy.NewResolver(s, cache.NewMemoryDescendantCache(0))
	f.svc = NewService(s, f.resolver, integrity.NewGuard(s), WithClock(testutil.Clock()), WithAssetDeleter(f.storage))
	return f
}

func intPtr(n int) *int { return &n }

func TestCreateLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, user, err := f.svc.CreateLabel(ctx, testutil.Owner(), LabelInput{Name: " Nightshift ", RevenueShare: 70})
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, "Nightshift", root.Name)
	assert.Nil(t, root.ParentLabelID)
	assert.Equal(t, model.LabelActive, root.Status)

	manager := testutil.LabelActor(root.ID)
	child, login, err := f.svc.CreateLabel(ctx, manager, LabelInput{
		Name: "Nightshift Dance", ParentLabelID: root.ID, RevenueShare: 60,
		Login: &LoginInput{Name: "Dance Desk", Email: "Dance@Example.com", Password: "correct horse"},
	})
	require.NoError(t, err)
	assert.Equal(t, root.ID, child.ParentID())
	require.NotNil(t, login)
	assert.Equal(t, "dance@example.com", login.Email)
	assert.Equal(t, model.RoleLabel, login.Role)
	assert.Equal(t, child.ID, *login.LabelID)
	assert.True(t, auth.CheckPasswordHash("correct horse", login.PasswordHash))
	assert.ElementsMatch(t, defaultLoginPermissions, login.Permissions)

	desc, err := f.resolver.DescendantLabelIDs(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{child.ID}, desc, "cache is invalidated on create")

	_, _, err = f.svc.CreateLabel(ctx, manager, LabelInput{Name: "Rogue Root"})
	assert.True(t, errs.IsAuthorization(err))

	other, _, err := f.svc.CreateLabel(ctx, testutil.Owner(), LabelInput{Name: "Elsewhere"})
	require.NoError(t, err)
	_, _, err = f.svc.CreateLabel(ctx, manager, LabelInput{Name: "Intruder", ParentLabelID: other.ID})
	assert.True(t, errs.IsAuthorization(err))

	_, _, err = f.svc.CreateLabel(ctx, manager, LabelInput{Name: "Orphan", ParentLabelID: "missing"})
	assert.True(t, errs.IsNotFound(err))

	_, _, err = f.svc.CreateLabel(ctx, testutil.Owner(), LabelInput{Name: "Greedy", RevenueShare: 120})
	assert.True(t, errs.IsValidation(err))

	_, _, err = f.svc.CreateLabel(ctx, manager, LabelInput{
		Name: "Duplicate", ParentLabelID: root.ID,
		Login: &LoginInput{Email: "dance@example.com", Password: "another password"},
	})
	assert.True(t, errs.IsValidation(err))
	labels, err := f.store.Labels().List(ctx)
	require.NoError(t, err)
	assert.Len(t, labels, 3, "a failed login rolls the label back")
}

func TestReparentRejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.Label(t, f.store, "Root", "")
	mid := testutil.Label(t, f.store, "Mid", root.ID)
	leaf := testutil.Label(t, f.store, "Leaf", mid.ID)
	side := testutil.Label(t, f.store, "Side", root.ID)

	_, err := f.svc.ReparentLabel(ctx, testutil.Owner(), mid.ID, leaf.ID)
	assert.True(t, errs.IsValidation(err))
	_, err = f.svc.ReparentLabel(ctx, testutil.Owner(), mid.ID, mid.ID)
	assert.True(t, errs.IsValidation(err))
	stored, err := f.store.Labels().GetByID(ctx, mid.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, stored.ParentID())

	moved, err := f.svc.ReparentLabel(ctx, testutil.LabelActor(root.ID), leaf.ID, side.ID)
	require.NoError(t, err)
	assert.Equal(t, side.ID, moved.ParentID())

	_, err = f.svc.ReparentLabel(ctx, testutil.LabelActor(root.ID), side.ID, "")
	assert.True(t, errs.IsAuthorization(err))
	top, err := f.svc.ReparentLabel(ctx, testutil.Owner(), side.ID, "")
	require.NoError(t, err)
	assert.Nil(t, top.ParentLabelID)
}

func TestUpdateLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.Label(t, f.store, "Root", "")
	sub := testutil.Label(t, f.store, "Sub", root.ID)

	name := "Sub Records"
	share := 55.0
	updated, err := f.svc.UpdateLabel(ctx, testutil.LabelActor(root.ID), sub.ID, LabelPatch{Name: &name, RevenueShare: &share, ArtistCap: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, "Sub Records", updated.Name)
	assert.Equal(t, 55.0, updated.RevenueShare)
	assert.Equal(t, 10, *updated.ArtistCap)

	_, err = f.svc.UpdateLabel(ctx, testutil.LabelActor(sub.ID), sub.ID, LabelPatch{RevenueShare: &share})
	assert.True(t, errs.IsAuthorization(err), "a label does not set its own share")

	suspended := model.LabelSuspended
	_, err = f.svc.UpdateLabel(ctx, testutil.Staff(), sub.ID, LabelPatch{Status: &suspended, ClearArtistCap: true})
	require.NoError(t, err)
	stored, err := f.store.Labels().GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LabelSuspended, stored.Status)
	assert.Nil(t, stored.ArtistCap)
}

func TestDeleteLabelCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.Label(t, f.store, "Root", "")
	target := testutil.Label(t, f.store, "Target", root.ID)
	child := testutil.Label(t, f.store, "Child", target.ID)
	grandchild := testutil.Label(t, f.store, "Grandchild", child.ID)
	sibling := testutil.Label(t, f.store, "Sibling", root.ID)

	a1 := testutil.Artist(t, f.store, "Own", target.ID)
	a2 := testutil.Artist(t, f.store, "Deep", grandchild.ID)
	keep := testutil.Artist(t, f.store, "Keep", sibling.ID)
	testutil.Release(t, f.store, "Old", target.ID, model.StatusRejected, func(r *model.Release) {
		r.PrimaryArtistIDs = model.IDList{a1.ID}
	})
	testutil.Release(t, f.store, "Sketch", grandchild.ID, model.StatusDraft, func(r *model.Release) {
		r.PrimaryArtistIDs = model.IDList{a2.ID}
		r.Artwork = model.UploadedAsset("https://cdn.test/artwork/sketch/sketch_cover.jpg")
	})
	testutil.User(t, f.store, "target-login", target.ID, model.RoleLabel)
	testutil.User(t, f.store, "deep-login", grandchild.ID, model.RoleLabel)
	testutil.User(t, f.store, "sibling-login", sibling.ID, model.RoleLabel)

	report, err := f.svc.DeleteLabel(ctx, testutil.LabelActor(root.ID), target.ID)
	require.NoError(t, err)
	assert.Equal(t, &CascadeReport{Labels: 3, Artists: 2, Releases: 2, Users: 2, Assets: 1}, report)

	for _, id := range []string{target.ID, child.ID, grandchild.ID} {
		_, err := f.store.Labels().GetByID(ctx, id)
		assert.True(t, errs.IsNotFound(err), "label %s", id)
	}
	artists, err := f.store.Artists().ListByLabels(ctx, []string{target.ID, child.ID, grandchild.ID, sibling.ID})
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, keep.ID, artists[0].ID)
	users, err := f.store.Users().ListByLabels(ctx, []string{target.ID, grandchild.ID, sibling.ID})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	releases, err := f.store.Releases().ListByLabels(ctx, []string{target.ID, grandchild.ID})
	require.NoError(t, err)
	assert.Empty(t, releases)
	assert.Equal(t, []string{"https://cdn.test/artwork/sketch/sketch_cover.jpg"}, f.storage.Deleted)

	desc, err := f.resolver.DescendantLabelIDs(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sibling.ID}, desc)
}

func TestDeleteLabelBlockedByLocks(t *testing.T) {
	for _, lockedIn := range []string{"own", "descendant"} {
		t.Run(lockedIn, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			target := testutil.Label(t, f.store, "Target", "")
			child := testutil.Label(t, f.store, "Child", target.ID)
			owner := target
			if lockedIn == "descendant" {
				owner = child
			}
			busy := testutil.Artist(t, f.store, "Busy", owner.ID)
			testutil.Release(t, f.store, "Live Album", owner.ID, model.StatusPublished, func(r *model.Release) {
				r.Tracks = model.TrackList{{TrackNumber: 1, PrimaryArtistIDs: model.IDList{busy.ID}}}
			})

			_, err := f.svc.DeleteLabel(ctx, testutil.Owner(), target.ID)
			require.Error(t, err)
			var lock *errs.IntegrityLockError
			require.True(t, errors.As(err, &lock))
			assert.Equal(t, "Live Album", lock.ReleaseTitle)
			assert.Equal(t, "Published", lock.Status)

			for _, id := range []string{target.ID, child.ID} {
				_, err := f.store.Labels().GetByID(ctx, id)
				assert.NoError(t, err, "nothing is deleted")
			}
		})
	}
}

func TestDeleteLabelAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.Label(t, f.store, "Root", "")

	_, err := f.svc.DeleteLabel(ctx, testutil.LabelActor(root.ID), root.ID)
	assert.True(t, errs.IsAuthorization(err))
	_, err = f.svc.DeleteLabel(ctx, testutil.Owner(), "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestCreateArtistRespectsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	label := testutil.Label(t, f.store, "Tiny", "")
	label.ArtistCap = intPtr(1)
	require.NoError(t, f.store.Labels().Update(ctx, label))
	actor := testutil.LabelActor(label.ID)

	a, err := f.svc.CreateArtist(ctx, actor, ArtistInput{Name: "First", LabelID: label.ID, ExternalIDs: model.StringMap{"spotify": "abc"}})
	require.NoError(t, err)
	assert.Equal(t, model.ArtistSolo, a.Type)
	assert.Equal(t, "abc", a.ExternalIDs["spotify"])

	_, err = f.svc.CreateArtist(ctx, actor, ArtistInput{Name: "Second", LabelID: label.ID})
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.CreateArtist(ctx, actor, ArtistInput{Name: "Odd", LabelID: label.ID, Type: "Orchestra"})
	assert.True(t, errs.IsValidation(err))

	other := testutil.Label(t, f.store, "Other", "")
	_, err = f.svc.CreateArtist(ctx, actor, ArtistInput{Name: "Poached", LabelID: other.ID})
	assert.True(t, errs.IsAuthorization(err))
}

func TestCreateArtistOnSuspendedLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	label := testutil.Label(t, f.store, "Paused", "")
	label.Status = model.LabelSuspended
	require.NoError(t, f.store.Labels().Update(ctx, label))

	_, err := f.svc.CreateArtist(ctx, testutil.Owner(), ArtistInput{Name: "Waiting", LabelID: label.ID})
	assert.True(t, errs.IsValidation(err))
}

func TestDeleteFeaturedArtistOnPendingRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	label := testutil.Label(t, f.store, "Nightshift", "")
	a := testutil.Artist(t, f.store, "A", label.ID)
	rel := testutil.Release(t, f.store, "Neon Nights", label.ID, model.StatusPending, func(r *model.Release) {
		r.Tracks = model.TrackList{
			{TrackNumber: 1, Title: "Glow"},
			{TrackNumber: 2, Title: "Fade", FeaturedArtistIDs: model.IDList{a.ID}},
		}
	})
	actor := testutil.LabelActor(label.ID)

	err := f.svc.DeleteArtist(ctx, actor, a.ID)
	require.Error(t, err)
	var lock *errs.IntegrityLockError
	require.True(t, errors.As(err, &lock))
	assert.Equal(t, rel.ID, lock.ReleaseID)
	assert.Equal(t, "Neon Nights", lock.ReleaseTitle)
	assert.Equal(t, "Pending", lock.Status)
	_, err = f.store.Artists().GetByID(ctx, a.ID)
	assert.NoError(t, err)

	name := "Renamed"
	_, err = f.svc.UpdateArtist(ctx, actor, a.ID, ArtistPatch{Name: &name})
	assert.True(t, errs.IsIntegrityLock(err))

	rel.Status = model.StatusRejected
	require.NoError(t, f.store.Releases().Update(ctx, rel))
	updated, err := f.svc.UpdateArtist(ctx, actor, a.ID, ArtistPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	require.NoError(t, f.svc.DeleteArtist(ctx, actor, a.ID))
	_, err = f.store.Artists().GetByID(ctx, a.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestUpdateArtistMovesWithinAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.Label(t, f.store, "Root", "")
	sub := testutil.Label(t, f.store, "Sub", root.ID)
	other := testutil.Label(t, f.store, "Other", "")
	a := testutil.Artist(t, f.store, "Mover", root.ID)
	actor := testutil.LabelActor(root.ID)

	moved, err := f.svc.UpdateArtist(ctx, actor, a.ID, ArtistPatch{LabelID: &sub.ID})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, moved.LabelID)

	_, err = f.svc.UpdateArtist(ctx, actor, a.ID, ArtistPatch{LabelID: &other.ID})
	assert.True(t, errs.IsAuthorization(err))
}

func TestArtistsViewCarriesLocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.Label(t, f.store, "Root", "")
	sub := testutil.Label(t, f.store, "Sub", root.ID)
	free := testutil.Artist(t, f.store, "Free", root.ID)
	busy := testutil.Artist(t, f.store, "Busy", sub.ID)
	testutil.Release(t, f.store, "Live", sub.ID, model.StatusNeedsInfo, func(r *model.Release) {
		r.FeaturedArtistIDs = model.IDList{busy.ID}
	})

	views, err := f.svc.Artists(ctx, testutil.LabelActor(root.ID), root.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	locks := map[string]bool{}
	for _, v := range views {
		locks[v.ID] = v.Lock.Locked
	}
	assert.False(t, locks[free.ID])
	assert.True(t, locks[busy.ID])

	state, err := f.svc.ArtistLock(ctx, testutil.LabelActor(sub.ID), busy.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNeedsInfo, state.Status)

	_, err = f.svc.Artists(ctx, testutil.LabelActor(sub.ID), root.ID)
	assert.True(t, errs.IsAuthorization(err))
}

func TestTreeScopedToActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.Label(t, f.store, "Root", "")
	sub := testutil.Label(t, f.store, "Sub", root.ID)
	testutil.Label(t, f.store, "Other", "")

	all, err := f.svc.Tree(ctx, testutil.Staff())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.Tree(ctx, testutil.LabelActor(sub.ID))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, sub.ID, mine[0].Label.ID)
}
