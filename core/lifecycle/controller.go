// Package lifecycle drives releases through their statuses: who may move a
// release where, which notes are recorded and which transitions purge assets.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"LabelDesk/core/auth"
	"LabelDesk/core/hierarchy"
	"LabelDesk/errs"
	"LabelDesk/logger"
	"LabelDesk/metrics"
	"LabelDesk/model"
	"LabelDesk/repository"

	"github.com/google/uuid"
)

// AssetDeleter removes an uploaded asset from storage.
type AssetDeleter interface {
	Delete(ctx context.Context, url string) error
}

// Controller applies the transition table against the entity store.
type Controller struct {
	store    *repository.Store
	resolver *hierarchy.Resolver
	deleter  AssetDeleter
	metrics  *metrics.EngineMetrics
	now      func() time.Time
	newID    func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMetrics records transitions and purges.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithIDGenerator replaces the uuid generator used for new releases.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newID = gen }
}

// NewController 创建发行生命周期控制器
func NewController(store *repository.Store, resolver *hierarchy.Resolver, deleter AssetDeleter, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		resolver: resolver,
		deleter:  deleter,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create stores a new release as Draft, or as Pending when submit is set.
// The release must not carry staged assets. The stored copy is returned.
func (c *Controller) Create(ctx context.Context, actor model.Actor, rel *model.Release, submit bool) (*model.Release, error) {
	to := model.StatusDraft
	if submit {
		to = model.StatusPending
	}
	var out *model.Release
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		created, err := c.create(ctx, tx, actor, rel, to)
		out = created
		return err
	})
	if err != nil {
		c.metrics.RecordTransitionError(string(to), errorType(err))
		return nil, err
	}
	c.metrics.RecordTransition("", string(to))
	logger.Info("发行已创建",
		logger.String("releaseId", out.ID),
		logger.String("title", out.Title),
		logger.String("status", string(out.Status)),
		logger.String("actor", actor.UserID))
	return out, nil
}

func (c *Controller) create(ctx context.Context, tx *repository.Store, actor model.Actor, rel *model.Release, to model.ReleaseStatus) (*model.Release, error) {
	r, _ := lookupNew(to)
	if err := checkContent(rel); err != nil {
		return nil, err
	}
	if _, err := tx.Labels().GetByID(ctx, rel.LabelID); err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, tx, actor, r, rel.LabelID); err != nil {
		return nil, err
	}
	if r.needsAssets {
		if err := checkSubmittable(rel); err != nil {
			return nil, err
		}
	}

	out := rel.Clone()
	if out.ID == "" {
		out.ID = c.newID()
	}
	now := c.now()
	out.Status = to
	out.Notes = nil
	out.CreatedAt = now
	out.UpdatedAt = now
	if err := tx.Releases().Create(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition moves a stored release to status to. message is prepended as an
// interaction note when non-empty; NeedsInfo and Takedown require one.
// Rejected and Takedown purge the release's uploaded assets after the new
// status is stored; delete failures are logged and never undo the transition.
func (c *Controller) Transition(ctx context.Context, actor model.Actor, releaseID string, to model.ReleaseStatus, message string) (*model.Release, error) {
	var (
		out  *model.Release
		from model.ReleaseStatus
		r    rule
	)
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		rel, err := tx.Releases().GetByID(ctx, releaseID)
		if err != nil {
			return err
		}
		from = rel.Status
		r, err = c.apply(ctx, tx, actor, rel, to, message)
		if err != nil {
			return err
		}
		if err := tx.Releases().Update(ctx, rel); err != nil {
			return err
		}
		out = rel
		return nil
	})
	if err != nil {
		c.metrics.RecordTransitionError(string(to), errorType(err))
		logger.Debug("发行状态变更被拒绝",
			logger.String("releaseId", releaseID),
			logger.String("to", string(to)),
			logger.ErrorField(err))
		return nil, err
	}

	c.metrics.RecordTransition(string(from), string(to))
	logger.Info("发行状态已变更",
		logger.String("releaseId", out.ID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
		logger.String("actor", actor.UserID))

	if r.purge {
		c.purge(ctx, out)
	}
	return out, nil
}

// apply validates the transition of rel to status to and mutates rel in place.
func (c *Controller) apply(ctx context.Context, tx *repository.Store, actor model.Actor, rel *model.Release, to model.ReleaseStatus, message string) (rule, error) {
	if !to.Valid() {
		return rule{}, errs.Validation("status", "unknown status %q", to)
	}
	r, ok := lookup(rel.Status, to)
	if !ok {
		return rule{}, errs.Validation("status", "illegal transition from %s to %s", rel.Status, to)
	}
	if err := c.authorize(ctx, tx, actor, r, rel.LabelID); err != nil {
		return rule{}, err
	}
	message = strings.TrimSpace(message)
	if r.noteNeeded && message == "" {
		return rule{}, errs.Validation("message", "a message is required to move a release to %s", to)
	}
	if r.needsAssets {
		if err := checkSubmittable(rel); err != nil {
			return rule{}, err
		}
	}

	now := c.now()
	rel.Status = to
	rel.UpdatedAt = now
	if message != "" {
		note := model.InteractionNote{AuthorName: actor.Name, AuthorRole: actor.Role, Message: message, Timestamp: now}
		rel.Notes = append(model.NoteList{note}, rel.Notes...)
	}
	return r, nil
}

func (c *Controller) authorize(ctx context.Context, tx *repository.Store, actor model.Actor, r rule, labelID string) error {
	action := "move release to " + string(r.to)
	if r.by == staffSide {
		if err := auth.RequireStaff(actor, action); err != nil {
			return err
		}
		return auth.RequirePermission(actor, model.PermReviewReleases, action)
	}
	if r.to == model.StatusPending {
		if err := auth.RequirePermission(actor, model.PermSubmitReleases, action); err != nil {
			return err
		}
	}
	return c.resolver.WithStore(tx).Authorize(ctx, actor, labelID, action)
}

// purge deletes every uploaded asset of rel, logging and counting failures.
func (c *Controller) purge(ctx context.Context, rel *model.Release) {
	urls := rel.UploadedAssetURLs()
	if c.deleter == nil {
		if len(urls) > 0 {
			logger.Warn("未配置存储，跳过资源清理", logger.String("releaseId", rel.ID), logger.Int("assets", len(urls)))
		}
		return
	}
	failed := 0
	for _, url := range urls {
		err := c.deleter.Delete(ctx, url)
		c.metrics.RecordPurgeDelete(err)
		if err != nil {
			failed++
			logger.Warn("删除发行资源失败",
				logger.String("releaseId", rel.ID),
				logger.String("url", url),
				logger.ErrorField(err))
		}
	}
	logger.Info("发行资源清理完成",
		logger.String("releaseId", rel.ID),
		logger.Int("assets", len(urls)),
		logger.Int("failed", failed))
}

// SaveDraft stores metadata edits to a release in Draft or NeedsInfo.
func (c *Controller) SaveDraft(ctx context.Context, actor model.Actor, rel *model.Release) (*model.Release, error) {
	return c.Save(ctx, actor, rel, false)
}

// Save persists a release built by the staging pipeline. A release that does
// not exist yet is created; an existing Draft or NeedsInfo release has its
// content replaced while status, notes and creation time are kept. With
// submit set the release also moves to Pending.
func (c *Controller) Save(ctx context.Context, actor model.Actor, rel *model.Release, submit bool) (*model.Release, error) {
	var (
		out     *model.Release
		from    model.ReleaseStatus
		created bool
	)
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		existing, err := c.existing(ctx, tx, rel.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			to := model.StatusDraft
			if submit {
				to = model.StatusPending
			}
			out, err = c.create(ctx, tx, actor, rel, to)
			created = true
			return err
		}

		from = existing.Status
		if from != model.StatusDraft && from != model.StatusNeedsInfo {
			return errs.Validation("status", "release in status %s cannot be edited", from)
		}
		if err := c.resolver.WithStore(tx).Authorize(ctx, actor, existing.LabelID, "edit release"); err != nil {
			return err
		}
		if err := checkContent(rel); err != nil {
			return err
		}
		if rel.LabelID != existing.LabelID {
			if _, err := tx.Labels().GetByID(ctx, rel.LabelID); err != nil {
				return err
			}
			if err := c.resolver.WithStore(tx).Authorize(ctx, actor, rel.LabelID, "move release"); err != nil {
				return err
			}
		}

		next := rel.Clone()
		next.Status = existing.Status
		next.Notes = existing.Notes
		next.CreatedAt = existing.CreatedAt
		next.UpdatedAt = c.now()
		if submit {
			if _, err := c.apply(ctx, tx, actor, next, model.StatusPending, ""); err != nil {
				return err
			}
		}
		if err := tx.Releases().Update(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		if submit {
			c.metrics.RecordTransitionError(string(model.StatusPending), errorType(err))
		}
		return nil, err
	}

	switch {
	case created:
		c.metrics.RecordTransition("", string(out.Status))
	case from != out.Status:
		c.metrics.RecordTransition(string(from), string(out.Status))
	}
	logger.Info("发行已保存",
		logger.String("releaseId", out.ID),
		logger.String("status", string(out.Status)),
		logger.Bool("created", created),
		logger.String("actor", actor.UserID))
	return out, nil
}

func (c *Controller) existing(ctx context.Context, tx *repository.Store, id string) (*model.Release, error) {
	if id == "" {
		return nil, nil
	}
	rel, err := tx.Releases().GetByID(ctx, id)
	if errs.IsNotFound(err) {
		return nil, nil
	}
	return rel, err
}

// checkContent rejects releases that cannot be stored at all.
func checkContent(rel *model.Release) error {
	if strings.TrimSpace(rel.Title) == "" {
		return errs.Validation("title", "a release needs a title")
	}
	if rel.LabelID == "" {
		return errs.Validation("labelId", "a release must belong to a label")
	}
	if rel.HasStagedAssets() {
		return errs.Validation("assets", "staged assets must be uploaded before the release is saved")
	}
	return nil
}

// checkSubmittable enforces the Pending preconditions.
func checkSubmittable(rel *model.Release) error {
	if len(rel.PrimaryArtistIDs) == 0 {
		return errs.Validation("primaryArtistIds", "a submitted release needs at least one primary artist")
	}
	if !rel.AssetsComplete() {
		return errs.Validation("assets", "artwork and the audio of every track must be uploaded before submission")
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errs.IsValidation(err):
		return "validation"
	case errs.IsAuthorization(err):
		return "authorization"
	case errs.IsNotFound(err):
		return "not_found"
	case errs.IsIntegrityLock(err):
		return "integrity_lock"
	default:
		return "upstream"
	}
}
