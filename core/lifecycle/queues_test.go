package lifecycle

import (
	"context"
	"testing"

	"LabelDesk/errs"
	"LabelDesk/internal/testutil"
	"LabelDesk/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(releases []*model.Release) []string {
	out := make([]string, 0, len(releases))
	for _, r := range releases {
		out = append(out, r.ID)
	}
	return out
}

func TestQueueVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := testutil.Label(t, f.store, "Nightshift Sub", f.label.ID)
	other := testutil.Label(t, f.store, "Elsewhere", "")

	pending := f.release(t, model.StatusPending)
	needsInfo := f.release(t, model.StatusNeedsInfo)
	draft := testutil.Release(t, f.store, "Sketch", sub.ID, model.StatusDraft)
	foreign := testutil.Release(t, f.store, "Foreign", other.ID, model.StatusPending)

	incoming, err := f.ctrl.IncomingQueue(ctx, testutil.Staff())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{pending.ID, foreign.ID}, ids(incoming))

	corrections, err := f.ctrl.CorrectionQueue(ctx, testutil.Staff())
	require.NoError(t, err)
	assert.Equal(t, []string{needsInfo.ID}, ids(corrections))

	mine, err := f.ctrl.LabelReleases(ctx, testutil.LabelActor(f.label.ID))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{pending.ID, needsInfo.ID, draft.ID}, ids(mine))

	labelCorrections, err := f.ctrl.CorrectionQueue(ctx, testutil.LabelActor(f.label.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{needsInfo.ID}, ids(labelCorrections))

	_, err = f.ctrl.IncomingQueue(ctx, testutil.LabelActor(f.label.ID))
	assert.True(t, errs.IsAuthorization(err))
}

func TestGetChecksAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.Label(t, f.store, "Elsewhere", "")
	rel := f.release(t, model.StatusDraft)

	got, err := f.ctrl.Get(ctx, testutil.LabelActor(f.label.ID), rel.ID)
	require.NoError(t, err)
	assert.Equal(t, rel.Title, got.Title)

	_, err = f.ctrl.Get(ctx, testutil.LabelActor(other.ID), rel.ID)
	assert.True(t, errs.IsAuthorization(err))
}
