// Package hierarchy resolves the label forest: descendant sets, visibility of
// artists and releases under a label, and acyclicity of parent links.
package hierarchy

import (
	"context"

	"LabelDesk/errs"
	"LabelDesk/logger"
	"LabelDesk/model"
	"LabelDesk/repository"
)

// DescendantCache memoizes descendant sets across requests. Implementations
// live in the cache package. Get reports the cache generation it read, and Set
// only stores under that generation, so a set computed before Invalidate is
// never served after it.
type DescendantCache interface {
	Get(ctx context.Context, labelID string) (ids []string, gen string, ok bool)
	Set(ctx context.Context, gen, labelID string, ids []string)
	Invalidate(ctx context.Context) error
}

// Resolver answers hierarchy questions against the entity store.
type Resolver struct {
	store *repository.Store
	cache DescendantCache
}

// NewResolver 创建层级解析器. cache may be nil.
func NewResolver(store *repository.Store, cache DescendantCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// WithStore binds the resolver to another store, typically a transaction.
// The bound resolver skips the cache so it only sees the transaction's snapshot.
func (r *Resolver) WithStore(s *repository.Store) *Resolver {
	return &Resolver{store: s}
}

// Invalidate drops cached descendant sets after a label mutation.
func (r *Resolver) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		logger.Warn("层级缓存失效失败", logger.ErrorField(err))
	}
}

// arena indexes every label by id together with its children.
type arena struct {
	labels   map[string]*model.Label
	children map[string][]string
	order    []string
}

func (r *Resolver) loadArena(ctx context.Context) (*arena, error) {
	labels, err := r.store.Labels().List(ctx)
	if err != nil {
		return nil, err
	}
	a := &arena{
		labels:   make(map[string]*model.Label, len(labels)),
		children: make(map[string][]string),
		order:    make([]string, 0, len(labels)),
	}
	for _, l := range labels {
		a.labels[l.ID] = l
		a.order = append(a.order, l.ID)
		if p := l.ParentID(); p != "" {
			a.children[p] = append(a.children[p], l.ID)
		}
	}
	return a, nil
}

// descendants walks downward from labelID with an explicit worklist. The
// visited set keeps the walk finite even if storage holds a cycle.
func (a *arena) descendants(labelID string) []string {
	visited := map[string]bool{labelID: true}
	var out []string
	queue := append([]string(nil), a.children[labelID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, id)
		queue = append(queue, a.children[id]...)
	}
	return out
}

// DescendantLabelIDs returns every label below labelID at any depth, excluding
// labelID itself, in breadth-first order. An unknown id yields an empty set.
func (r *Resolver) DescendantLabelIDs(ctx context.Context, labelID string) ([]string, error) {
	var gen string
	if r.cache != nil {
		ids, g, ok := r.cache.Get(ctx, labelID)
		if ok {
			return ids, nil
		}
		gen = g
	}
	a, err := r.loadArena(ctx)
	if err != nil {
		return nil, err
	}
	ids := a.descendants(labelID)
	if r.cache != nil {
		r.cache.Set(ctx, gen, labelID, ids)
	}
	return ids, nil
}

// Scope is the subtree rooted at a label, computed once per request so that
// artists and releases are resolved against the same label set.
type Scope struct {
	LabelID  string
	LabelIDs []string // LabelID first, then descendants
	members  map[string]bool
	store    *repository.Store
}

// Scope computes the subtree rooted at labelID.
func (r *Resolver) Scope(ctx context.Context, labelID string) (*Scope, error) {
	desc, err := r.DescendantLabelIDs(ctx, labelID)
	if err != nil {
		return nil, err
	}
	ids := append([]string{labelID}, desc...)
	members := make(map[string]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}
	return &Scope{LabelID: labelID, LabelIDs: ids, members: members, store: r.store}, nil
}

// Contains reports whether labelID is the scope root or one of its descendants.
func (s *Scope) Contains(labelID string) bool {
	return s.members[labelID]
}

// Artists lists every artist owned by a label in the scope.
func (s *Scope) Artists(ctx context.Context) ([]*model.Artist, error) {
	return s.store.Artists().ListByLabels(ctx, s.LabelIDs)
}

// Releases lists every release of a label in the scope.
func (s *Scope) Releases(ctx context.Context) ([]*model.Release, error) {
	return s.store.Releases().ListByLabels(ctx, s.LabelIDs)
}

// VisibleArtists returns all artists under labelID and its descendants.
func (r *Resolver) VisibleArtists(ctx context.Context, labelID string) ([]*model.Artist, error) {
	scope, err := r.Scope(ctx, labelID)
	if err != nil {
		return nil, err
	}
	return scope.Artists(ctx)
}

// VisibleReleases returns all releases under labelID and its descendants.
func (r *Resolver) VisibleReleases(ctx context.Context, labelID string) ([]*model.Release, error) {
	scope, err := r.Scope(ctx, labelID)
	if err != nil {
		return nil, err
	}
	return scope.Releases(ctx)
}

// ValidateParent checks that making parentID the parent of labelID keeps the
// forest acyclic. labelID may be empty for a label that does not exist yet.
// The proposed ancestor chain is walked with a visited set; reaching labelID
// or revisiting an id rejects the link.
func (r *Resolver) ValidateParent(ctx context.Context, labelID, parentID string) error {
	if parentID == "" {
		return nil
	}
	if parentID == labelID {
		return errs.Validation("parentLabelId", "a label cannot be its own parent")
	}
	a, err := r.loadArena(ctx)
	if err != nil {
		return err
	}
	if _, ok := a.labels[parentID]; !ok {
		return errs.NotFound("label", parentID)
	}

	visited := make(map[string]bool)
	for cur := parentID; cur != ""; {
		if labelID != "" && cur == labelID {
			return errs.Validation("parentLabelId", "label %s is a descendant of %s; the link would create a cycle", parentID, labelID)
		}
		if visited[cur] {
			return errs.Validation("parentLabelId", "ancestor chain of %s already contains a cycle at %s", parentID, cur)
		}
		visited[cur] = true
		l, ok := a.labels[cur]
		if !ok {
			break
		}
		cur = l.ParentID()
	}
	return nil
}

// IsWithin reports whether labelID equals ancestorID or sits below it.
func (r *Resolver) IsWithin(ctx context.Context, ancestorID, labelID string) (bool, error) {
	if ancestorID == "" || labelID == "" {
		return false, nil
	}
	if ancestorID == labelID {
		return true, nil
	}
	a, err := r.loadArena(ctx)
	if err != nil {
		return false, err
	}
	visited := make(map[string]bool)
	for cur := labelID; cur != "" && !visited[cur]; {
		if cur == ancestorID {
			return true, nil
		}
		visited[cur] = true
		l, ok := a.labels[cur]
		if !ok {
			return false, nil
		}
		cur = l.ParentID()
	}
	return false, nil
}

// Authorize checks that actor may act on labelID. Owners and staff act on
// every label; label users act on their own label and its descendants.
func (r *Resolver) Authorize(ctx context.Context, actor model.Actor, labelID, action string) error {
	if actor.IsStaff() {
		return nil
	}
	if actor.Role != model.RoleLabel || actor.LabelID == "" {
		return errs.Unauthorized(action, "role %s cannot act for labels", actor.Role)
	}
	within, err := r.IsWithin(ctx, actor.LabelID, labelID)
	if err != nil {
		return err
	}
	if !within {
		return errs.Unauthorized(action, "label %s is outside the authority of label %s", labelID, actor.LabelID)
	}
	return nil
}

// Node is one label of the rendered forest.
type Node struct {
	Label    *model.Label `json:"label"`
	Children []*Node      `json:"children,omitempty"`
}

// Tree renders the forest. Roots are labels without a parent or whose parent
// no longer exists; labels only reachable through a cycle are left out.
func (r *Resolver) Tree(ctx context.Context) ([]*Node, error) {
	a, err := r.loadArena(ctx)
	if err != nil {
		return nil, err
	}
	visited := make(map[string]bool)
	var build func(id string) *Node
	build = func(id string) *Node {
		visited[id] = true
		n := &Node{Label: a.labels[id]}
		for _, child := range a.children[id] {
			if !visited[child] {
				n.Children = append(n.Children, build(child))
			}
		}
		return n
	}

	var roots []*Node
	for _, id := range a.order {
		l := a.labels[id]
		if _, hasParent := a.labels[l.ParentID()]; l.ParentID() == "" || !hasParent {
			roots = append(roots, build(id))
		}
	}
	return roots, nil
}
