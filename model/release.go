package model

import (
	"database/sql/driver"
	"time"
)

// ReleaseStatus is the lifecycle state of a release.
type ReleaseStatus string

const (
	StatusDraft     ReleaseStatus = "Draft"
	StatusPending   ReleaseStatus = "Pending"
	StatusNeedsInfo ReleaseStatus = "NeedsInfo"
	StatusRejected  ReleaseStatus = "Rejected"
	// Approved and Processed belong to the delivery pipeline; no reviewed
	// transition produces them yet.
	StatusApproved  ReleaseStatus = "Approved"
	StatusProcessed ReleaseStatus = "Processed"
	StatusPublished ReleaseStatus = "Published"
	StatusTakedown  ReleaseStatus = "Takedown"
	StatusCancelled ReleaseStatus = "Cancelled"
)

// AllStatuses lists every declared status.
func AllStatuses() []ReleaseStatus {
	return []ReleaseStatus{
		StatusDraft, StatusPending, StatusNeedsInfo, StatusRejected, StatusApproved,
		StatusProcessed, StatusPublished, StatusTakedown, StatusCancelled,
	}
}

// ProtectedStatuses are the statuses that freeze the artists a release references.
func ProtectedStatuses() []ReleaseStatus {
	return []ReleaseStatus{StatusPending, StatusNeedsInfo, StatusApproved, StatusProcessed, StatusPublished}
}

// IsProtected reports whether a release in this status locks its artists.
func (s ReleaseStatus) IsProtected() bool {
	for _, p := range ProtectedStatuses() {
		if s == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves this status.
func (s ReleaseStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusTakedown || s == StatusCancelled
}

// Valid reports whether s is a declared status.
func (s ReleaseStatus) Valid() bool {
	for _, v := range AllStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// InteractionNote is an immutable audit record attached to a release.
type InteractionNote struct {
	AuthorName string    `json:"authorName"`
	AuthorRole Role      `json:"authorRole"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// NoteList is stored newest first.
type NoteList []InteractionNote

// Scan 实现 sql.Scanner 接口
func (l *NoteList) Scan(value interface{}) error {
	*l = nil
	return scanJSON(value, l)
}

// Value 实现 driver.Valuer 接口
func (l NoteList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON([]InteractionNote(l))
}

// Release is an album or single moving through review and publication.
type Release struct {
	ID                string        `json:"id" gorm:"primaryKey;size:36"`
	Title             string        `json:"title" gorm:"size:255;not null"`
	LabelID           string        `json:"labelId" gorm:"size:36;index;not null"`
	PrimaryArtistIDs  IDList        `json:"primaryArtistIds" gorm:"type:text"`
	FeaturedArtistIDs IDList        `json:"featuredArtistIds" gorm:"type:text"`
	Tracks            TrackList     `json:"tracks" gorm:"type:text"`
	Artwork           AssetRef      `json:"artwork" gorm:"type:varchar(1024)"`
	Status            ReleaseStatus `json:"status" gorm:"size:20;index;not null"`
	Notes             NoteList      `json:"notes" gorm:"type:text"`
	UPC               string        `json:"upc,omitempty" gorm:"size:20"`
	Genre             string        `json:"genre,omitempty" gorm:"size:100"`
	ReleaseDate       *time.Time    `json:"releaseDate,omitempty"`
	CreatedAt         time.Time     `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt         time.Time     `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName 指定表名
func (Release) TableName() string {
	return "releases"
}

// References reports whether the artist is credited on the release or any track.
func (r *Release) References(artistID string) bool {
	if r.PrimaryArtistIDs.Contains(artistID) || r.FeaturedArtistIDs.Contains(artistID) {
		return true
	}
	for i := range r.Tracks {
		if r.Tracks[i].References(artistID) {
			return true
		}
	}
	return false
}

// AssetsComplete reports whether artwork and every track's audio are uploaded
// and the release has at least one track.
func (r *Release) AssetsComplete() bool {
	if !r.Artwork.IsUploaded() || len(r.Tracks) == 0 {
		return false
	}
	for i := range r.Tracks {
		if !r.Tracks[i].Audio.IsUploaded() {
			return false
		}
	}
	return true
}

// HasStagedAssets reports whether any reference is still local.
func (r *Release) HasStagedAssets() bool {
	if r.Artwork.IsStaged() {
		return true
	}
	for i := range r.Tracks {
		if r.Tracks[i].Audio.IsStaged() {
			return true
		}
	}
	return false
}

// UploadedAssetURLs returns the artwork and track audio URLs that exist in storage.
func (r *Release) UploadedAssetURLs() []string {
	var urls []string
	for i := range r.Tracks {
		if r.Tracks[i].Audio.IsUploaded() {
			urls = append(urls, r.Tracks[i].Audio.URL)
		}
	}
	if r.Artwork.IsUploaded() {
		urls = append(urls, r.Artwork.URL)
	}
	return urls
}

// Clone returns a deep copy so callers never alias store-owned slices.
func (r *Release) Clone() *Release {
	c := *r
	c.PrimaryArtistIDs = append(IDList(nil), r.PrimaryArtistIDs...)
	c.FeaturedArtistIDs = append(IDList(nil), r.FeaturedArtistIDs...)
	c.Notes = append(NoteList(nil), r.Notes...)
	c.Tracks = make(TrackList, len(r.Tracks))
	for i, t := range r.Tracks {
		t.PrimaryArtistIDs = append(IDList(nil), t.PrimaryArtistIDs...)
		t.FeaturedArtistIDs = append(IDList(nil), t.FeaturedArtistIDs...)
		if t.Audio.Local != nil {
			local := *t.Audio.Local
			t.Audio.Local = &local
		}
		c.Tracks[i] = t
	}
	if r.Artwork.Local != nil {
		local := *r.Artwork.Local
		c.Artwork.Local = &local
	}
	if r.ReleaseDate != nil {
		d := *r.ReleaseDate
		c.ReleaseDate = &d
	}
	return &c
}
