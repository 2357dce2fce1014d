package repository

import (
	"context"

	"LabelDesk/errs"
	"LabelDesk/model"

	"gorm.io/gorm"
)

// ReleaseRepository 发行数据访问接口
type ReleaseRepository interface {
	Create(ctx context.Context, release *model.Release) error
	GetByID(ctx context.Context, id string) (*model.Release, error)
	Update(ctx context.Context, release *model.Release) error
	Delete(ctx context.Context, id string) error
	ListByLabels(ctx context.Context, labelIDs []string) ([]*model.Release, error)
	ListByStatus(ctx context.Context, statuses ...model.ReleaseStatus) ([]*model.Release, error)
	// ListReferencingArtist returns releases in one of statuses that credit the
	// artist at release level or on any track, in creation order.
	ListReferencingArtist(ctx context.Context, artistID string, statuses ...model.ReleaseStatus) ([]*model.Release, error)
	DeleteByLabels(ctx context.Context, labelIDs []string) error
}

type gormReleaseRepository struct {
	db *gorm.DB
}

func (r *gormReleaseRepository) Create(ctx context.Context, release *model.Release) error {
	return errs.Upstream("create release", r.db.WithContext(ctx).Create(release).Error)
}

func (r *gormReleaseRepository) GetByID(ctx context.Context, id string) (*model.Release, error) {
	var release model.Release
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&release).Error; err != nil {
		return nil, translate("get release", "release", id, err)
	}
	return &release, nil
}

// Update 保存发行，last write wins
func (r *gormReleaseRepository) Update(ctx context.Context, release *model.Release) error {
	return errs.Upstream("update release", r.db.WithContext(ctx).Save(release).Error)
}

func (r *gormReleaseRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Release{})
	if res.Error != nil {
		return errs.Upstream("delete release", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("release", id)
	}
	return nil
}

func (r *gormReleaseRepository) ListByLabels(ctx context.Context, labelIDs []string) ([]*model.Release, error) {
	if len(labelIDs) == 0 {
		return nil, nil
	}
	var releases []*model.Release
	err := r.db.WithContext(ctx).
		Where("label_id IN ?", labelIDs).
		Order("created_at ASC, id ASC").
		Find(&releases).Error
	return releases, errs.Upstream("list releases", err)
}

func (r *gormReleaseRepository) ListByStatus(ctx context.Context, statuses ...model.ReleaseStatus) ([]*model.Release, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	var releases []*model.Release
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC, id ASC").
		Find(&releases).Error
	return releases, errs.Upstream("list releases by status", err)
}

// ListReferencingArtist scans releases in the given statuses. Artist credits
// live in JSON columns, so the match happens in memory.
func (r *gormReleaseRepository) ListReferencingArtist(ctx context.Context, artistID string, statuses ...model.ReleaseStatus) ([]*model.Release, error) {
	candidates, err := r.ListByStatus(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	var matched []*model.Release
	for _, rel := range candidates {
		if rel.References(artistID) {
			matched = append(matched, rel)
		}
	}
	return matched, nil
}

func (r *gormReleaseRepository) DeleteByLabels(ctx context.Context, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("label_id IN ?", labelIDs).Delete(&model.Release{}).Error
	return errs.Upstream("delete releases", err)
}
