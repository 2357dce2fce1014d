package lifecycle

import (
	"context"

	"LabelDesk/core/auth"
	"LabelDesk/errs"
	"LabelDesk/model"
)

// IncomingQueue lists releases awaiting review. NeedsInfo releases are
// excluded; they wait in the correction queue.
func (c *Controller) IncomingQueue(ctx context.Context, actor model.Actor) ([]*model.Release, error) {
	if err := auth.RequireStaff(actor, "view incoming queue"); err != nil {
		return nil, err
	}
	return c.store.Releases().ListByStatus(ctx, model.StatusPending)
}

// CorrectionQueue lists releases sent back for more information. Staff see
// every such release, label users the ones under their authority.
func (c *Controller) CorrectionQueue(ctx context.Context, actor model.Actor) ([]*model.Release, error) {
	if actor.IsStaff() {
		return c.store.Releases().ListByStatus(ctx, model.StatusNeedsInfo)
	}
	releases, err := c.LabelReleases(ctx, actor)
	if err != nil {
		return nil, err
	}
	var out []*model.Release
	for _, rel := range releases {
		if rel.Status == model.StatusNeedsInfo {
			out = append(out, rel)
		}
	}
	return out, nil
}

// LabelReleases lists every release of the actor's label and its sub-labels,
// whatever their status.
func (c *Controller) LabelReleases(ctx context.Context, actor model.Actor) ([]*model.Release, error) {
	if actor.Role != model.RoleLabel || actor.LabelID == "" {
		return nil, errs.Unauthorized("list label releases", "role %s does not act for a label", actor.Role)
	}
	return c.resolver.VisibleReleases(ctx, actor.LabelID)
}

// Get returns one release if actor may see it.
func (c *Controller) Get(ctx context.Context, actor model.Actor, releaseID string) (*model.Release, error) {
	rel, err := c.store.Releases().GetByID(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if err := c.resolver.Authorize(ctx, actor, rel.LabelID, "view release"); err != nil {
		return nil, err
	}
	return rel, nil
}
