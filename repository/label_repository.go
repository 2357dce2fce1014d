package repository

import (
	"context"

	"LabelDesk/errs"
	"LabelDesk/model"

	"gorm.io/gorm"
)

// LabelRepository 厂牌数据访问接口
type LabelRepository interface {
	Create(ctx context.Context, label *model.Label) error
	GetByID(ctx context.Context, id string) (*model.Label, error)
	Update(ctx context.Context, label *model.Label) error
	// List returns every label in creation order.
	List(ctx context.Context) ([]*model.Label, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type gormLabelRepository struct {
	db *gorm.DB
}

// Create 创建厂牌
func (r *gormLabelRepository) Create(ctx context.Context, label *model.Label) error {
	return errs.Upstream("create label", r.db.WithContext(ctx).Create(label).Error)
}

// GetByID 根据ID获取厂牌
func (r *gormLabelRepository) GetByID(ctx context.Context, id string) (*model.Label, error) {
	var label model.Label
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&label).Error
	if err != nil {
		return nil, translate("get label", "label", id, err)
	}
	return &label, nil
}

// Update 更新厂牌
func (r *gormLabelRepository) Update(ctx context.Context, label *model.Label) error {
	res := r.db.WithContext(ctx).Save(label)
	return errs.Upstream("update label", res.Error)
}

func (r *gormLabelRepository) List(ctx context.Context) ([]*model.Label, error) {
	var labels []*model.Label
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&labels).Error
	return labels, errs.Upstream("list labels", err)
}

func (r *gormLabelRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Label{}).Error
	return errs.Upstream("delete labels", err)
}
