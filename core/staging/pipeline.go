package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"LabelDesk/errs"
	"LabelDesk/logger"
	"LabelDesk/metrics"
	"LabelDesk/model"

	"github.com/google/uuid"
)

// Uploader stores one asset and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, size int64, contentType, prefix, filename string, onProgress func(done, total int64)) (string, error)
}

// Releases loads and persists releases on behalf of an actor.
// *lifecycle.Controller implements it.
type Releases interface {
	Get(ctx context.Context, actor model.Actor, releaseID string) (*model.Release, error)
	Save(ctx context.Context, actor model.Actor, rel *model.Release, submit bool) (*model.Release, error)
}

// ProgressFunc receives overall commit progress in percent, 0 to 100.
type ProgressFunc func(percent float64)

const artworkShare = 20.0

// Pipeline stages drafts and commits them through the uploader.
type Pipeline struct {
	uploader Uploader
	releases Releases
	metrics  *metrics.EngineMetrics
	newID    func() string
}

// NewPipeline 创建资源暂存流水线. m may be nil.
func NewPipeline(uploader Uploader, releases Releases, m *metrics.EngineMetrics) *Pipeline {
	return &Pipeline{uploader: uploader, releases: releases, metrics: m, newID: uuid.NewString}
}

// NewDraft starts a release that does not exist in the store yet.
func (p *Pipeline) NewDraft(labelID, title string) *Draft {
	return newDraft(&model.Release{
		ID:      p.newID(),
		Title:   title,
		LabelID: labelID,
		Status:  model.StatusDraft,
		Artwork: model.EmptyAsset(),
	})
}

// LoadDraft opens a stored release for editing. Only Draft and NeedsInfo
// releases can be edited.
func (p *Pipeline) LoadDraft(ctx context.Context, actor model.Actor, releaseID string) (*Draft, error) {
	rel, err := p.releases.Get(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	if rel.Status != model.StatusDraft && rel.Status != model.StatusNeedsInfo {
		return nil, errs.Validation("status", "release in status %s cannot be edited", rel.Status)
	}
	return newDraft(rel), nil
}

// progress keeps reported percentages monotonic. Upload callbacks may arrive
// from several goroutines; fn is only ever called by one of them at a time.
type progress struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last float64
}

func (pr *progress) report(pct float64) {
	if pct > 100 {
		pct = 100
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pct < pr.last {
		return
	}
	pr.last = pct
	if pr.fn != nil {
		pr.fn(pct)
	}
}

// band returns an upload progress callback mapped onto [lo, hi].
func (pr *progress) band(lo, hi float64) func(done, total int64) {
	return func(done, total int64) {
		if total <= 0 {
			return
		}
		frac := float64(done) / float64(total)
		if frac > 1 {
			frac = 1
		}
		pr.report(lo + (hi-lo)*frac)
	}
}

// Commit uploads every staged asset of d, artwork first and then tracks in
// order, swaps the references for the returned URLs and persists the release.
// The release is submitted to Pending only when submit is set and its assets
// are complete. If any upload fails or ctx is cancelled the draft is left
// exactly as staged and nothing is persisted. Re-running a commit overwrites
// earlier uploads because filenames are deterministic.
func (p *Pipeline) Commit(ctx context.Context, actor model.Actor, d *Draft, submit bool, onProgress ProgressFunc) (*model.Release, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	work := d.release.Clone()
	pr := &progress{fn: onProgress}
	pr.report(0)

	if work.Artwork.IsStaged() {
		filename := ArtworkFilename(work.Title, work.Artwork.Local.ContentType)
		url, err := p.upload(ctx, "artwork", work.Artwork.Local, "artwork/"+work.ID, filename, pr.band(0, artworkShare))
		if err != nil {
			return nil, err
		}
		work.Artwork = model.UploadedAsset(url)
	}
	pr.report(artworkShare)

	var staged []int
	for i := range work.Tracks {
		if work.Tracks[i].Audio.IsStaged() {
			staged = append(staged, i)
		}
	}
	names := trackFilenames(work.Tracks)
	share := (100 - artworkShare) / float64(max(len(staged), 1))
	for n, i := range staged {
		lo := artworkShare + share*float64(n)
		t := &work.Tracks[i]
		url, err := p.upload(ctx, "audio", t.Audio.Local, "audio/"+work.ID, names[i], pr.band(lo, lo+share))
		if err != nil {
			return nil, err
		}
		t.Audio = model.UploadedAsset(url)
		pr.report(lo + share)
	}

	saved, err := p.releases.Save(ctx, actor, work, submit && work.AssetsComplete())
	if err != nil {
		return nil, err
	}
	d.release = saved.Clone()
	pr.report(100)

	logger.Info("草稿已提交",
		logger.String("releaseId", saved.ID),
		logger.String("status", string(saved.Status)),
		logger.Int("uploadedTracks", len(staged)))
	return saved, nil
}

// trackFilenames names every track's audio file. Tracks whose titles slug to
// the same name get their track number appended so uploads never collide.
func trackFilenames(tracks model.TrackList) []string {
	names := make([]string, len(tracks))
	seen := make(map[string]int, len(tracks))
	for i := range tracks {
		seen[TrackFilename(tracks[i].Title)]++
	}
	for i := range tracks {
		name := TrackFilename(tracks[i].Title)
		if seen[name] > 1 {
			name = fmt.Sprintf("%s_%d.wav", strings.TrimSuffix(name, ".wav"), tracks[i].TrackNumber)
		}
		names[i] = name
	}
	return names
}

func (p *Pipeline) upload(ctx context.Context, kind string, file *model.StagedFile, prefix, filename string, onProgress func(done, total int64)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.Upstream("commit "+kind, fmt.Errorf("commit cancelled: %w", err))
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return "", errs.Upstream("open staged "+kind, err)
	}
	defer f.Close()

	size := file.Size
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	start := time.Now()
	url, err := p.uploader.Upload(ctx, f, size, file.ContentType, prefix, filename, onProgress)
	p.metrics.RecordUpload(kind, size, time.Since(start), err)
	if err != nil {
		logger.Warn("资源上传失败",
			logger.String("kind", kind),
			logger.String("filename", filename),
			logger.ErrorField(err))
		return "", errs.Upstream("upload "+filename, err)
	}
	logger.Debug("资源上传完成", logger.String("url", url), logger.Int64("bytes", size))
	return url, nil
}
