package model

import (
	"database/sql/driver"
	"fmt"
)

// Track is a single recording on a release. Tracks live inside their release
// and are numbered densely from 1.
type Track struct {
	TrackNumber       int      `json:"trackNumber"`
	DiscNumber        int      `json:"discNumber"`
	Title             string   `json:"title"`
	ISRC              string   `json:"isrc,omitempty"`
	DurationSeconds   int      `json:"duration"`
	Explicit          bool     `json:"explicit"`
	PrimaryArtistIDs  IDList   `json:"primaryArtistIds"`
	FeaturedArtistIDs IDList   `json:"featuredArtistIds"`
	Audio             AssetRef `json:"audio"`
}

// References reports whether the artist is credited on the track.
func (t *Track) References(artistID string) bool {
	return t.PrimaryArtistIDs.Contains(artistID) || t.FeaturedArtistIDs.Contains(artistID)
}

// TrackList 自定义类型用于 GORM JSON 字段的自动扫描
type TrackList []Track

// Scan 实现 sql.Scanner 接口
func (l *TrackList) Scan(value interface{}) error {
	*l = nil
	return scanJSON(value, l)
}

// Value 实现 driver.Valuer 接口. Staged audio is refused.
func (l TrackList) Value() (driver.Value, error) {
	for i := range l {
		if l[i].Audio.IsStaged() {
			return nil, fmt.Errorf("track %d: %w", l[i].TrackNumber, ErrStagedAsset)
		}
	}
	if l == nil {
		return "[]", nil
	}
	return valueJSON([]Track(l))
}

// Renumber assigns dense 1-based track numbers in list order.
func (l TrackList) Renumber() {
	for i := range l {
		l[i].TrackNumber = i + 1
	}
}
