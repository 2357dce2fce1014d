// Package staging builds releases from local files: it validates artwork and
// audio, keeps them staged on disk and commits them to storage in one pass.
package staging

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"LabelDesk/errs"
	"LabelDesk/model"

	"github.com/go-audio/wav"
)

// artworkTypes maps accepted image types to the extension used in storage.
var artworkTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Draft is a private working copy of one release plus its staged files.
// A Draft serialises its own edits; commits hold the lock for their duration.
type Draft struct {
	mu      sync.Mutex
	release *model.Release
}

func newDraft(rel *model.Release) *Draft {
	return &Draft{release: rel.Clone()}
}

// ID returns the id of the release being edited.
func (d *Draft) ID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release.ID
}

// Release returns a copy of the current working state.
func (d *Draft) Release() *model.Release {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release.Clone()
}

// Edit applies metadata changes. Asset references are restored by track
// position afterwards; they change only through staging and commits.
func (d *Draft) Edit(fn func(r *model.Release)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	artwork := d.release.Artwork
	audio := make([]model.AssetRef, len(d.release.Tracks))
	for i, t := range d.release.Tracks {
		audio[i] = t.Audio
	}
	fn(d.release)
	d.release.Artwork = artwork
	for i := range d.release.Tracks {
		if i < len(audio) {
			d.release.Tracks[i].Audio = audio[i]
		} else {
			d.release.Tracks[i].Audio = model.EmptyAsset()
		}
	}
	d.release.Tracks.Renumber()
}

// AddTrack appends a track and returns its index. The track number is
// assigned from its position and any audio reference is cleared.
func (d *Draft) AddTrack(t model.Track) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	t.Audio = model.EmptyAsset()
	if t.DiscNumber == 0 {
		t.DiscNumber = 1
	}
	d.release.Tracks = append(d.release.Tracks, t)
	d.release.Tracks.Renumber()
	return len(d.release.Tracks) - 1
}

// RemoveTrack drops the track at index and renumbers the rest densely from 1.
func (d *Draft) RemoveTrack(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.release.Tracks) {
		return errs.Validation("trackIndex", "track index %d out of range", index)
	}
	d.release.Tracks = append(d.release.Tracks[:index], d.release.Tracks[index+1:]...)
	d.release.Tracks.Renumber()
	return nil
}

// StageArtwork validates an image file and marks the artwork as staged.
func (d *Draft) StageArtwork(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.Validation("artwork", "cannot open %s: %v", filepath.Base(path), err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	contentType := http.DetectContentType(head[:n])
	if _, ok := artworkTypes[contentType]; !ok {
		return errs.Validation("artwork", "%s is not a supported image (%s)", filepath.Base(path), contentType)
	}
	info, err := f.Stat()
	if err != nil {
		return errs.Validation("artwork", "cannot stat %s: %v", filepath.Base(path), err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.release.Artwork = model.StagedAsset(model.StagedFile{
		Path:        path,
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
	})
	return nil
}

// StageAudio validates a .wav file for the track at trackIndex, records its
// duration in whole seconds and marks the audio as staged. An untitled track
// takes its title from the filename.
func (d *Draft) StageAudio(path string, trackIndex int) error {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return errs.Validation("audio", "%s is not a .wav file", filepath.Base(path))
	}
	seconds, size, err := probeWAV(path)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if trackIndex < 0 || trackIndex >= len(d.release.Tracks) {
		return errs.Validation("trackIndex", "track index %d out of range", trackIndex)
	}
	t := &d.release.Tracks[trackIndex]
	t.DurationSeconds = seconds
	if strings.TrimSpace(t.Title) == "" {
		t.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	t.Audio = model.StagedAsset(model.StagedFile{
		Path:        path,
		Filename:    filepath.Base(path),
		ContentType: "audio/wav",
		Size:        size,
	})
	return nil
}

// probeWAV decodes the header of a wav file and returns its duration rounded
// to whole seconds together with the file size.
func probeWAV(path string) (int, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errs.Validation("audio", "cannot open %s: %v", filepath.Base(path), err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return 0, 0, errs.Validation("audio", "%s is not a valid WAV file", filepath.Base(path))
	}
	if err := decoder.FwdToPCM(); err != nil {
		return 0, 0, errs.Validation("audio", "%s has no PCM data: %v", filepath.Base(path), err)
	}
	bytesPerSecond := int64(decoder.SampleRate) * int64(decoder.NumChans) * int64(decoder.BitDepth/8)
	if bytesPerSecond == 0 {
		return 0, 0, errs.Validation("audio", "%s has an empty format header", filepath.Base(path))
	}
	info, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	seconds := math.Round(float64(decoder.PCMLen()) / float64(bytesPerSecond))
	return int(seconds), info.Size(), nil
}
