package lifecycle

import "LabelDesk/model"

// side says who drives a transition.
type side int

const (
	labelSide side = iota
	staffSide
)

// rule is one row of the transition table. A rule with no from statuses
// applies to releases that do not exist yet.
type rule struct {
	from        []model.ReleaseStatus
	to          model.ReleaseStatus
	by          side
	noteNeeded  bool
	needsAssets bool
	purge       bool
}

var rules = []rule{
	{to: model.StatusDraft, by: labelSide},
	{to: model.StatusPending, by: labelSide, needsAssets: true},
	{from: []model.ReleaseStatus{model.StatusDraft}, to: model.StatusPending, by: labelSide, needsAssets: true},
	{from: []model.ReleaseStatus{model.StatusPending, model.StatusNeedsInfo}, to: model.StatusNeedsInfo, by: staffSide, noteNeeded: true},
	{from: []model.ReleaseStatus{model.StatusPending, model.StatusNeedsInfo}, to: model.StatusPublished, by: staffSide},
	{from: []model.ReleaseStatus{model.StatusPending, model.StatusNeedsInfo, model.StatusApproved}, to: model.StatusRejected, by: staffSide, purge: true},
	{from: []model.ReleaseStatus{model.StatusPublished}, to: model.StatusTakedown, by: staffSide, noteNeeded: true, purge: true},
	{from: []model.ReleaseStatus{model.StatusNeedsInfo}, to: model.StatusPending, by: labelSide, needsAssets: true},
}

func (r rule) appliesFrom(from model.ReleaseStatus) bool {
	for _, f := range r.from {
		if f == from {
			return true
		}
	}
	return false
}

// lookup finds the rule for an existing release moving from → to.
func lookup(from, to model.ReleaseStatus) (rule, bool) {
	for _, r := range rules {
		if r.to == to && r.appliesFrom(from) {
			return r, true
		}
	}
	return rule{}, false
}

// lookupNew finds the rule for creating a release directly in status to.
func lookupNew(to model.ReleaseStatus) (rule, bool) {
	for _, r := range rules {
		if r.to == to && len(r.from) == 0 {
			return r, true
		}
	}
	return rule{}, false
}

// Allowed lists the statuses reachable from from.
func Allowed(from model.ReleaseStatus) []model.ReleaseStatus {
	var out []model.ReleaseStatus
	for _, r := range rules {
		if r.appliesFrom(from) {
			out = append(out, r.to)
		}
	}
	return out
}
