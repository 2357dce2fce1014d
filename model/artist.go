package model

import "time"

// ArtistType 艺人类型
type ArtistType string

const (
	ArtistSolo     ArtistType = "Solo"
	ArtistBand     ArtistType = "Band"
	ArtistProducer ArtistType = "Producer"
	ArtistComposer ArtistType = "Composer"
	ArtistDJ       ArtistType = "DJ"
)

// Artist belongs to exactly one label for visibility and authority, whatever
// releases reference it.
type Artist struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	LabelID     string     `json:"labelId" gorm:"size:36;index;not null"`
	Type        ArtistType `json:"type" gorm:"size:20"`
	ExternalIDs StringMap  `json:"externalIds,omitempty" gorm:"type:text"` // e.g. spotify, appleMusic
	Email       *string    `json:"email,omitempty" gorm:"size:255"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName 指定表名
func (Artist) TableName() string {
	return "artists"
}

// Valid reports whether t is a declared artist type.
func (t ArtistType) Valid() bool {
	switch t {
	case ArtistSolo, ArtistBand, ArtistProducer, ArtistComposer, ArtistDJ:
		return true
	}
	return false
}
