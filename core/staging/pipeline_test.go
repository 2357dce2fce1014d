package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"LabelDesk/core/hierarchy"
	"LabelDesk/core/lifecycle"
	"LabelDesk/errs"
	"LabelDesk/internal/testutil"
	"LabelDesk/model"
	"LabelDesk/repository"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRate = 8000

// writeWAV writes a silent 16-bit mono wav of the given length.
func writeWAV(t *testing.T, dir, name string, seconds float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	enc := wav.NewEncoder(out, sampleRate, 16, 1, 1)
	samples := make([]int, int(seconds*sampleRate))
	buf := &audio.IntBuffer{Data: samples, Format: &audio.Format{SampleRate: sampleRate, NumChannels: 1}, SourceBitDepth: 16}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 3000)...)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

type env struct {
	store    *repository.Store
	storage  *testutil.FakeStorage
	pipeline *Pipeline
	ctrl     *lifecycle.Controller
	label    *model.Label
	artist   *model.Artist
	actor    model.Actor
	dir      string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := testutil.NewStore(t)
	e := &env{store: s, storage: testutil.NewFakeStorage(), dir: t.TempDir()}
	e.label = testutil.Label(t, s, "Nightshift", "")
	e.artist = testutil.Artist(t, s, "Aurora Vale", e.label.ID)
	e.actor = testutil.LabelActor(e.label.ID)
	e.ctrl = lifecycle.NewController(s, hierarchy.NewResolver(s, nil), e.storage, lifecycle.WithClock(testutil.Clock()))
	e.pipeline = NewPipeline(e.storage, e.ctrl, nil)
	return e
}

// neonNights stages the Neon Nights release: JPEG artwork, "Glow" on track 1
// and a second track titled from its file.
func (e *env) neonNights(t *testing.T) *Draft {
	t.Helper()
	d := e.pipeline.NewDraft(e.label.ID, "Neon Nights")
	d.Edit(func(r *model.Release) { r.PrimaryArtistIDs = model.IDList{e.artist.ID} })
	require.NoError(t, d.StageArtwork(writeJPEG(t, e.dir, "cover-final.jpeg")))
	d.AddTrack(model.Track{Title: "Glow"})
	d.AddTrack(model.Track{})
	require.NoError(t, d.StageAudio(writeWAV(t, e.dir, "glow-master.wav", 3), 0))
	require.NoError(t, d.StageAudio(writeWAV(t, e.dir, "Midnight Drive.WAV", 2.6), 1))
	return d
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Neon Nights":        "neon_nights",
		"  Glow  ":           "glow",
		"AC/DC -- Live!":     "ac_dc_live_",
		"Beyoncé":            "beyonc_",
		"":                   "untitled",
		"***":                "_",
		"track   02 (remix)": "track_02_remix_",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), "slug of %q", in)
	}
	assert.Equal(t, "neon_nights_cover.jpg", ArtworkFilename("Neon Nights", "image/jpeg"))
	assert.Equal(t, "glow.wav", TrackFilename("Glow"))
}

func TestStageArtworkValidatesImage(t *testing.T) {
	e := newEnv(t)
	d := e.pipeline.NewDraft(e.label.ID, "Neon Nights")

	text := filepath.Join(e.dir, "notes.jpg")
	require.NoError(t, os.WriteFile(text, []byte("definitely not an image"), 0o644))
	err := d.StageArtwork(text)
	assert.True(t, errs.IsValidation(err))
	assert.True(t, d.Release().Artwork.IsEmpty())

	require.NoError(t, d.StageArtwork(writeJPEG(t, e.dir, "cover.jpg")))
	art := d.Release().Artwork
	require.True(t, art.IsStaged())
	assert.Equal(t, "image/jpeg", art.Local.ContentType)
}

func TestStageAudio(t *testing.T) {
	e := newEnv(t)
	d := e.pipeline.NewDraft(e.label.ID, "Neon Nights")
	d.AddTrack(model.Track{Title: "Glow"})
	d.AddTrack(model.Track{})

	mp3 := filepath.Join(e.dir, "glow.mp3")
	require.NoError(t, os.WriteFile(mp3, []byte("ID3"), 0o644))
	assert.True(t, errs.IsValidation(d.StageAudio(mp3, 0)))

	fake := filepath.Join(e.dir, "broken.wav")
	require.NoError(t, os.WriteFile(fake, []byte("not riff data at all"), 0o644))
	assert.True(t, errs.IsValidation(d.StageAudio(fake, 0)))

	assert.True(t, errs.IsValidation(d.StageAudio(writeWAV(t, e.dir, "x.wav", 1), 5)))

	require.NoError(t, d.StageAudio(writeWAV(t, e.dir, "glow-master.wav", 3), 0))
	require.NoError(t, d.StageAudio(writeWAV(t, e.dir, "Midnight Drive.wav", 2.6), 1))

	rel := d.Release()
	assert.Equal(t, "Glow", rel.Tracks[0].Title, "existing titles are kept")
	assert.Equal(t, 3, rel.Tracks[0].DurationSeconds)
	assert.True(t, rel.Tracks[0].Audio.IsStaged())
	assert.Equal(t, "Midnight Drive", rel.Tracks[1].Title)
	assert.Equal(t, 3, rel.Tracks[1].DurationSeconds)
}

func TestRemoveTrackRenumbers(t *testing.T) {
	e := newEnv(t)
	d := e.pipeline.NewDraft(e.label.ID, "Neon Nights")
	d.AddTrack(model.Track{Title: "One"})
	d.AddTrack(model.Track{Title: "Two"})
	d.AddTrack(model.Track{Title: "Three"})

	require.NoError(t, d.RemoveTrack(0))
	rel := d.Release()
	require.Len(t, rel.Tracks, 2)
	assert.Equal(t, "Two", rel.Tracks[0].Title)
	assert.Equal(t, 1, rel.Tracks[0].TrackNumber)
	assert.Equal(t, 2, rel.Tracks[1].TrackNumber)

	assert.True(t, errs.IsValidation(d.RemoveTrack(2)))
}

func TestEditKeepsAssetReferences(t *testing.T) {
	e := newEnv(t)
	d := e.pipeline.NewDraft(e.label.ID, "Neon Nights")
	require.NoError(t, d.StageArtwork(writeJPEG(t, e.dir, "cover.jpg")))

	d.Edit(func(r *model.Release) {
		r.Genre = "Synthwave"
		r.Artwork = model.UploadedAsset("https://elsewhere.test/x.jpg")
	})
	rel := d.Release()
	assert.Equal(t, "Synthwave", rel.Genre)
	assert.True(t, rel.Artwork.IsStaged())
}

func TestCommitNeonNights(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d := e.neonNights(t)

	var reported []float64
	rel, err := e.pipeline.Commit(ctx, e.actor, d, true, func(p float64) { reported = append(reported, p) })
	require.NoError(t, err)

	assert.Equal(t, []string{"neon_nights_cover.jpg", "glow.wav", "midnight_drive.wav"}, e.storage.Filenames())
	assert.Equal(t, "artwork/"+rel.ID, e.storage.Uploads[0].Prefix)
	assert.Equal(t, "audio/"+rel.ID, e.storage.Uploads[1].Prefix)
	assert.Equal(t, "https://cdn.test/artwork/"+rel.ID+"/neon_nights_cover.jpg", rel.Artwork.URL)
	assert.Equal(t, "https://cdn.test/audio/"+rel.ID+"/glow.wav", rel.Tracks[0].Audio.URL)
	assert.False(t, rel.HasStagedAssets())
	assert.Equal(t, model.StatusPending, rel.Status)

	stored, err := e.store.Releases().GetByID(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.True(t, stored.AssetsComplete())

	require.NotEmpty(t, reported)
	assert.Equal(t, 0.0, reported[0])
	assert.Equal(t, 100.0, reported[len(reported)-1])
	for i := 1; i < len(reported); i++ {
		assert.GreaterOrEqual(t, reported[i], reported[i-1], "progress must not go backwards")
	}
	assert.Contains(t, reported, artworkShare)
	assert.Contains(t, reported, 60.0)

	assert.False(t, d.Release().HasStagedAssets(), "draft follows the committed release")
}

func TestProgressFromConcurrentUploadWorkers(t *testing.T) {
	var reported []float64
	pr := &progress{fn: func(pct float64) { reported = append(reported, pct) }}
	onUpload := pr.band(0, 100)

	const workers, reads, chunk = 4, 100, 10
	total := int64(workers * reads * chunk)
	var (
		mu   sync.Mutex
		done int64
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < reads; i++ {
				mu.Lock()
				done += chunk
				n := done
				mu.Unlock()
				onUpload(n, total)
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, reported)
	assert.True(t, sort.Float64sAreSorted(reported), "progress must not go backwards")
	assert.Equal(t, 100.0, reported[len(reported)-1])
}

func TestCommitIncompleteStaysDraft(t *testing.T) {
	e := newEnv(t)
	d := e.pipeline.NewDraft(e.label.ID, "Neon Nights")
	d.Edit(func(r *model.Release) { r.PrimaryArtistIDs = model.IDList{e.artist.ID} })
	d.AddTrack(model.Track{Title: "Glow"})
	require.NoError(t, d.StageAudio(writeWAV(t, e.dir, "glow.wav", 1), 0))

	rel, err := e.pipeline.Commit(context.Background(), e.actor, d, true, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, rel.Status, "no artwork means the release is not submitted")
	assert.Equal(t, []string{"glow.wav"}, e.storage.Filenames())
}

func TestCommitUploadFailureLeavesDraftStaged(t *testing.T) {
	e := newEnv(t)
	d := e.neonNights(t)
	before := d.Release()
	e.storage.FailOn["midnight_drive.wav"] = errors.New("bucket unavailable")

	_, err := e.pipeline.Commit(context.Background(), e.actor, d, true, nil)
	require.Error(t, err)
	assert.True(t, errs.IsUpstream(err))
	assert.Contains(t, err.Error(), "bucket unavailable")

	assert.Equal(t, before, d.Release())
	_, err = e.store.Releases().GetByID(context.Background(), before.ID)
	assert.True(t, errs.IsNotFound(err), "nothing is persisted")

	delete(e.storage.FailOn, "midnight_drive.wav")
	rel, err := e.pipeline.Commit(context.Background(), e.actor, d, true, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rel.Status)
}

func TestCommitCancelledLeavesDraftStaged(t *testing.T) {
	e := newEnv(t)
	d := e.neonNights(t)
	before := d.Release()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := e.pipeline.Commit(ctx, e.actor, d, true, func(p float64) {
		if p >= artworkShare {
			cancel()
		}
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, before, d.Release())
	_, err = e.store.Releases().GetByID(context.Background(), before.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestLoadDraftAndResubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stored := testutil.Release(t, e.store, "Neon Nights", e.label.ID, model.StatusNeedsInfo, func(r *model.Release) {
		r.PrimaryArtistIDs = model.IDList{e.artist.ID}
		r.Artwork = model.UploadedAsset("https://cdn.test/artwork/x/neon_nights_cover.jpg")
		r.Tracks = model.TrackList{{TrackNumber: 1, Title: "Glow"}}
		r.Notes = model.NoteList{{AuthorName: "Riley Reviewer", Message: "audio missing"}}
	})

	d, err := e.pipeline.LoadDraft(ctx, e.actor, stored.ID)
	require.NoError(t, err)
	require.NoError(t, d.StageAudio(writeWAV(t, e.dir, "glow.wav", 2), 0))

	rel, err := e.pipeline.Commit(ctx, e.actor, d, true, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rel.Status)
	assert.Len(t, rel.Notes, 1)
	assert.Equal(t, []string{"glow.wav"}, e.storage.Filenames())

	published := testutil.Release(t, e.store, "Live", e.label.ID, model.StatusPublished)
	_, err = e.pipeline.LoadDraft(ctx, e.actor, published.ID)
	assert.True(t, errs.IsValidation(err))
}

func TestTrackFilenamesDisambiguateDuplicates(t *testing.T) {
	names := trackFilenames(model.TrackList{
		{TrackNumber: 1, Title: "Intro"},
		{TrackNumber: 2, Title: "Glow"},
		{TrackNumber: 3, Title: "  INTRO "},
	})
	assert.Equal(t, []string{"intro_1.wav", "glow.wav", "intro_3.wav"}, names)
}
