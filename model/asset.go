package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// AssetKind is the state of an asset reference.
type AssetKind int

const (
	AssetEmpty    AssetKind = iota // nothing selected yet
	AssetStaged                    // local file selected, not uploaded
	AssetUploaded                  // committed to storage, URL known
)

// stagedSentinel is how a staged reference is rendered in API payloads.
const stagedSentinel = "staged"

// ErrStagedAsset is returned when a staged reference reaches the persistence layer.
var ErrStagedAsset = errors.New("staged asset cannot be persisted before upload")

// StagedFile is a local file selected for upload.
type StagedFile struct {
	Path        string `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// AssetRef is artwork or audio attached to a release. Only Empty and Uploaded
// references can be stored; Staged exists only inside a draft.
type AssetRef struct {
	Kind  AssetKind
	URL   string
	Local *StagedFile
}

func EmptyAsset() AssetRef { return AssetRef{} }

func StagedAsset(f StagedFile) AssetRef {
	return AssetRef{Kind: AssetStaged, Local: &f}
}

func UploadedAsset(url string) AssetRef {
	if url == "" {
		return AssetRef{}
	}
	return AssetRef{Kind: AssetUploaded, URL: url}
}

func (a AssetRef) IsEmpty() bool    { return a.Kind == AssetEmpty }
func (a AssetRef) IsStaged() bool   { return a.Kind == AssetStaged }
func (a AssetRef) IsUploaded() bool { return a.Kind == AssetUploaded }

func (a AssetRef) String() string {
	switch a.Kind {
	case AssetStaged:
		return stagedSentinel
	case AssetUploaded:
		return a.URL
	default:
		return ""
	}
}

// Scan 实现 sql.Scanner 接口
func (a *AssetRef) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = AssetRef{}
	case []byte:
		*a = UploadedAsset(string(v))
	case string:
		*a = UploadedAsset(v)
	default:
		return fmt.Errorf("unsupported asset column type %T", value)
	}
	return nil
}

// Value 实现 driver.Valuer 接口
func (a AssetRef) Value() (driver.Value, error) {
	if a.Kind == AssetStaged {
		return nil, ErrStagedAsset
	}
	return a.URL, nil
}

// MarshalJSON renders the reference as "", "staged" or the URL.
func (a AssetRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the rendering of MarshalJSON. A "staged" value decodes
// to a staged reference without a local file.
func (a *AssetRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == stagedSentinel {
		*a = AssetRef{Kind: AssetStaged}
		return nil
	}
	*a = UploadedAsset(s)
	return nil
}
