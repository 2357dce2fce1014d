// Package roster mutates labels, their logins and their artists under the
// hierarchy's authority rules and the integrity locks held by releases.
package roster

import (
	"context"
	"strings"
	"time"

	"LabelDesk/core/auth"
	"LabelDesk/core/hierarchy"
	"LabelDesk/core/integrity"
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

// Service applies label and artist mutations.
type Service struct {
	store    *repository.Store
	resolver *hierarchy.Resolver
	guard    *integrity.Guard
	deleter  AssetDeleter
	metrics  *metrics.EngineMetrics
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAssetDeleter purges uploaded assets of releases removed by a cascade.
func WithAssetDeleter(d AssetDeleter) Option {
	return func(s *Service) { s.deleter = d }
}

// NewService 创建厂牌/艺人管理服务
func NewService(store *repository.Store, resolver *hierarchy.Resolver, guard *integrity.Guard, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
		guard:    guard,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginInput describes a login created together with a label.
type LoginInput struct {
	Name        string               `json:"name"`
	Email       string               `json:"email"`
	Password    string               `json:"password"`
	Permissions model.PermissionList `json:"permissions,omitempty"`
}

// LabelInput describes a new label.
type LabelInput struct {
	Name          string      `json:"name"`
	ParentLabelID string      `json:"parentLabelId,omitempty"`
	RevenueShare  float64     `json:"revenueShare"`
	ArtistCap     *int        `json:"artistCap,omitempty"`
	Login         *LoginInput `json:"login,omitempty"`
}

// LabelPatch lists label fields to change; nil fields are left alone.
type LabelPatch struct {
	Name           *string            `json:"name,omitempty"`
	RevenueShare   *float64           `json:"revenueShare,omitempty"`
	ArtistCap      *int               `json:"artistCap,omitempty"`
	ClearArtistCap bool               `json:"clearArtistCap,omitempty"`
	Status         *model.LabelStatus `json:"status,omitempty"`
}

// CascadeReport counts what a label delete removed.
type CascadeReport struct {
	Labels   int `json:"labels"`
	Artists  int `json:"artists"`
	Releases int `json:"releases"`
	Users    int `json:"users"`
	Assets   int `json:"assets"`
}

var defaultLoginPermissions = model.PermissionList{model.PermSubmitReleases, model.PermManageArtists}

func validateLabelFields(name string, share float64, artistCap *int) error {
	if strings.TrimSpace(name) == "" {
		return errs.Validation("name", "a label needs a name")
	}
	if share < 0 || share > 100 {
		return errs.Validation("revenueShare", "revenue share must be between 0 and 100, got %v", share)
	}
	if artistCap != nil && *artistCap < 0 {
		return errs.Validation("artistCap", "artist cap cannot be negative")
	}
	return nil
}

// CreateLabel creates a root label (owners only) or a sub-label under a label
// within the actor's authority, optionally with a login for the new label.
func (s *Service) CreateLabel(ctx context.Context, actor model.Actor, in LabelInput) (*model.Label, *model.User, error) {
	if err := validateLabelFields(in.Name, in.RevenueShare, in.ArtistCap); err != nil {
		return nil, nil, err
	}
	var (
		label *model.Label
		user  *model.User
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		res := s.resolver.WithStore(tx)
		if in.ParentLabelID == "" {
			if actor.Role != model.RoleOwner {
				return errs.Unauthorized("create label", "only the owner creates root labels")
			}
		} else {
			if err := res.ValidateParent(ctx, "", in.ParentLabelID); err != nil {
				return err
			}
			if err := s.authorizeLabel(ctx, tx, actor, in.ParentLabelID, "create label"); err != nil {
				return err
			}
		}

		now := s.now()
		label = &model.Label{
			ID:           s.newID(),
			Name:         strings.TrimSpace(in.Name),
			RevenueShare: in.RevenueShare,
			ArtistCap:    in.ArtistCap,
			Status:       model.LabelActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if in.ParentLabelID != "" {
			parent := in.ParentLabelID
			label.ParentLabelID = &parent
		}
		if err := tx.Labels().Create(ctx, label); err != nil {
			return err
		}
		if in.Login == nil {
			return nil
		}
		var err error
		user, err = s.createLogin(ctx, tx, label.ID, *in.Login, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.resolver.Invalidate(ctx)
	logger.Info("厂牌已创建",
		logger.String("labelId", label.ID),
		logger.String("parentId", label.ParentID()),
		logger.Bool("withLogin", user != nil),
		logger.String("actor", actor.UserID))
	return label, user, nil
}

func (s *Service) createLogin(ctx context.Context, tx *repository.Store, labelID string, in LoginInput, now time.Time) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.Validation("login.email", "a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, errs.Validation("login.password", "password must be at least 8 characters")
	}
	if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
		return nil, errs.Validation("login.email", "email %s is already registered", email)
	} else if !errs.IsNotFound(err) {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, errs.Upstream("hash password", err)
	}
	perms := in.Permissions
	if len(perms) == 0 {
		perms = defaultLoginPermissions
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	u := &model.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleLabel,
		LabelID:      &labelID,
		Permissions:  append(model.PermissionList(nil), perms...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateLabel edits label metadata. Revenue share and status are set from
// above: staff or an ancestor label, never the label itself.
func (s *Service) UpdateLabel(ctx context.Context, actor model.Actor, labelID string, patch LabelPatch) (*model.Label, error) {
	var out *model.Label
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		label, err := tx.Labels().GetByID(ctx, labelID)
		if err != nil {
			return err
		}
		if err := s.authorizeLabel(ctx, tx, actor, labelID, "update label"); err != nil {
			return err
		}
		if (patch.RevenueShare != nil || patch.Status != nil) && !actor.IsStaff() && actor.LabelID == labelID {
			return errs.Unauthorized("update label", "revenue share and status are set by a parent label or staff")
		}

		if patch.Name != nil {
			label.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.RevenueShare != nil {
			label.RevenueShare = *patch.RevenueShare
		}
		if patch.ClearArtistCap {
			label.ArtistCap = nil
		} else if patch.ArtistCap != nil {
			c := *patch.ArtistCap
			label.ArtistCap = &c
		}
		if patch.Status != nil {
			if *patch.Status != model.LabelActive && *patch.Status != model.LabelSuspended {
				return errs.Validation("status", "unknown label status %q", *patch.Status)
			}
			label.Status = *patch.Status
		}
		if err := validateLabelFields(label.Name, label.RevenueShare, label.ArtistCap); err != nil {
			return err
		}
		label.UpdatedAt = s.now()
		if err := tx.Labels().Update(ctx, label); err != nil {
			return err
		}
		out = label
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("厂牌已更新", logger.String("labelId", labelID), logger.String("actor", actor.UserID))
	return out, nil
}

// ReparentLabel moves a label under newParentID ("" makes it a root). Links
// that would close a cycle are rejected.
func (s *Service) ReparentLabel(ctx context.Context, actor model.Actor, labelID, newParentID string) (*model.Label, error) {
	var out *model.Label
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		label, err := tx.Labels().GetByID(ctx, labelID)
		if err != nil {
			return err
		}
		if err := s.authorizeLabel(ctx, tx, actor, labelID, "move label"); err != nil {
			return err
		}
		if actor.LabelID == labelID && !actor.IsStaff() {
			return errs.Unauthorized("move label", "a label cannot move itself")
		}
		if newParentID == "" {
			if actor.Role != model.RoleOwner {
				return errs.Unauthorized("move label", "only the owner creates root labels")
			}
			label.ParentLabelID = nil
		} else {
			res := s.resolver.WithStore(tx)
			if err := res.ValidateParent(ctx, labelID, newParentID); err != nil {
				return err
			}
			if err := res.Authorize(ctx, actor, newParentID, "move label"); err != nil {
				return err
			}
			parent := newParentID
			label.ParentLabelID = &parent
		}
		label.UpdatedAt = s.now()
		if err := tx.Labels().Update(ctx, label); err != nil {
			return err
		}
		out = label
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.resolver.Invalidate(ctx)
	logger.Info("厂牌已移动",
		logger.String("labelId", labelID),
		logger.String("parentId", newParentID),
		logger.String("actor", actor.UserID))
	return out, nil
}

// DeleteLabel removes a label with its sub-labels, their users, artists and
// releases. Each label's own roster is checked against integrity locks, the
// label first and then its descendants level by level; any lock aborts the
// whole delete. Uploaded assets of removed releases are purged afterwards.
func (s *Service) DeleteLabel(ctx context.Context, actor model.Actor, labelID string) (*CascadeReport, error) {
	report := &CascadeReport{}
	var urls []string
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Labels().GetByID(ctx, labelID); err != nil {
			return err
		}
		if err := s.authorizeLabel(ctx, tx, actor, labelID, "delete label"); err != nil {
			return err
		}
		if actor.LabelID == labelID && !actor.IsStaff() {
			return errs.Unauthorized("delete label", "a label cannot delete itself")
		}

		guard := s.guard.WithStore(tx)
		descendants, err := s.resolver.WithStore(tx).DescendantLabelIDs(ctx, labelID)
		if err != nil {
			return err
		}
		ids := append([]string{labelID}, descendants...)
		for _, id := range ids {
			if err := guard.CheckLabel(ctx, id); err != nil {
				return err
			}
		}

		releases, err := tx.Releases().ListByLabels(ctx, ids)
		if err != nil {
			return err
		}
		artists, err := tx.Artists().ListByLabels(ctx, ids)
		if err != nil {
			return err
		}
		users, err := tx.Users().ListByLabels(ctx, ids)
		if err != nil {
			return err
		}
		for _, rel := range releases {
			urls = append(urls, rel.UploadedAssetURLs()...)
		}

		if err := tx.Releases().DeleteByLabels(ctx, ids); err != nil {
			return err
		}
		if err := tx.Artists().DeleteByLabels(ctx, ids); err != nil {
			return err
		}
		if err := tx.Users().DeleteByLabels(ctx, ids); err != nil {
			return err
		}
		if err := tx.Labels().DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		report.Labels = len(ids)
		report.Artists = len(artists)
		report.Releases = len(releases)
		report.Users = len(users)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.resolver.Invalidate(ctx)
	report.Assets = s.purge(ctx, urls)

	s.metrics.RecordCascade("label", report.Labels)
	s.metrics.RecordCascade("artist", report.Artists)
	s.metrics.RecordCascade("release", report.Releases)
	s.metrics.RecordCascade("user", report.Users)
	logger.Info("厂牌已级联删除",
		logger.String("labelId", labelID),
		logger.Int("labels", report.Labels),
		logger.Int("artists", report.Artists),
		logger.Int("releases", report.Releases),
		logger.Int("users", report.Users),
		logger.String("actor", actor.UserID))
	return report, nil
}

// purge deletes urls best effort and returns how many succeeded.
func (s *Service) purge(ctx context.Context, urls []string) int {
	if s.deleter == nil {
		return 0
	}
	deleted := 0
	for _, url := range urls {
		err := s.deleter.Delete(ctx, url)
		s.metrics.RecordPurgeDelete(err)
		if err != nil {
			logger.Warn("级联删除资源失败", logger.String("url", url), logger.ErrorField(err))
			continue
		}
		deleted++
	}
	return deleted
}

func (s *Service) authorizeLabel(ctx context.Context, tx *repository.Store, actor model.Actor, labelID, action string) error {
	if !actor.IsStaff() {
		if err := auth.RequirePermission(actor, model.PermManageLabels, action); err != nil {
			return err
		}
	}
	return s.resolver.WithStore(tx).Authorize(ctx, actor, labelID, action)
}

// Tree renders the labels under the actor's authority.
func (s *Service) Tree(ctx context.Context, actor model.Actor) ([]*hierarchy.Node, error) {
	forest, err := s.resolver.Tree(ctx)
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() {
		return forest, nil
	}
	if actor.Role != model.RoleLabel || actor.LabelID == "" {
		return nil, errs.Unauthorized("view labels", "role %s does not act for a label", actor.Role)
	}
	if n := findNode(forest, actor.LabelID); n != nil {
		return []*hierarchy.Node{n}, nil
	}
	return nil, errs.NotFound("label", actor.LabelID)
}

func findNode(nodes []*hierarchy.Node, id string) *hierarchy.Node {
	stack := append([]*hierarchy.Node(nil), nodes...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Label.ID == id {
			return n
		}
		stack = append(stack, n.Children...)
	}
	return nil
}
