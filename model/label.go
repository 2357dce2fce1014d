package model

import "time"

// LabelStatus 厂牌状态
type LabelStatus string

const (
	LabelActive    LabelStatus = "Active"
	LabelSuspended LabelStatus = "Suspended"
)

// Label is a distribution partner. ParentLabelID links a sub-label to its
// parent; labels without a parent are roots owned by a top-level partner.
type Label struct {
	ID            string      `json:"id" gorm:"primaryKey;size:36"`
	Name          string      `json:"name" gorm:"size:200;not null"`
	ParentLabelID *string     `json:"parentLabelId,omitempty" gorm:"size:36;index"`
	RevenueShare  float64     `json:"revenueShare" gorm:"not null;default:0"`
	ArtistCap     *int        `json:"artistCap,omitempty"`
	Status        LabelStatus `json:"status" gorm:"size:20;not null;default:'Active'"`
	CreatedAt     time.Time   `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt     time.Time   `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName 指定表名
func (Label) TableName() string {
	return "labels"
}

// ParentID returns the parent label id or "" for a root.
func (l *Label) ParentID() string {
	if l.ParentLabelID == nil {
		return ""
	}
	return *l.ParentLabelID
}
