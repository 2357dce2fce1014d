package repository

import (
	"context"

	"LabelDesk/errs"
	"LabelDesk/model"

	"gorm.io/gorm"
)

// ArtistRepository 艺人数据访问接口
type ArtistRepository interface {
	Create(ctx context.Context, artist *model.Artist) error
	GetByID(ctx context.Context, id string) (*model.Artist, error)
	Update(ctx context.Context, artist *model.Artist) error
	Delete(ctx context.Context, id string) error
	ListByLabels(ctx context.Context, labelIDs []string) ([]*model.Artist, error)
	CountByLabel(ctx context.Context, labelID string) (int64, error)
	DeleteByLabels(ctx context.Context, labelIDs []string) error
}

type gormArtistRepository struct {
	db *gorm.DB
}

func (r *gormArtistRepository) Create(ctx context.Context, artist *model.Artist) error {
	return errs.Upstream("create artist", r.db.WithContext(ctx).Create(artist).Error)
}

func (r *gormArtistRepository) GetByID(ctx context.Context, id string) (*model.Artist, error) {
	var artist model.Artist
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&artist).Error; err != nil {
		return nil, translate("get artist", "artist", id, err)
	}
	return &artist, nil
}

func (r *gormArtistRepository) Update(ctx context.Context, artist *model.Artist) error {
	return errs.Upstream("update artist", r.db.WithContext(ctx).Save(artist).Error)
}

// Delete 删除艺人
func (r *gormArtistRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Artist{})
	if res.Error != nil {
		return errs.Upstream("delete artist", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("artist", id)
	}
	return nil
}

// ListByLabels 获取指定厂牌集合下的全部艺人
func (r *gormArtistRepository) ListByLabels(ctx context.Context, labelIDs []string) ([]*model.Artist, error) {
	if len(labelIDs) == 0 {
		return nil, nil
	}
	var artists []*model.Artist
	err := r.db.WithContext(ctx).
		Where("label_id IN ?", labelIDs).
		Order("created_at ASC, id ASC").
		Find(&artists).Error
	return artists, errs.Upstream("list artists", err)
}

func (r *gormArtistRepository) CountByLabel(ctx context.Context, labelID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Artist{}).
		Where("label_id = ?", labelID).
		Count(&count).Error
	return count, errs.Upstream("count artists", err)
}

func (r *gormArtistRepository) DeleteByLabels(ctx context.Context, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("label_id IN ?", labelIDs).Delete(&model.Artist{}).Error
	return errs.Upstream("delete artists", err)
}
