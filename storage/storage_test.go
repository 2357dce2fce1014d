package storage

import (
	"sync"
	"testing"
	"time"

	"LabelDesk/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, publicURL string) *MinioStorage {
	t.Helper()
	m, err := NewMinioStorage(&config.Config{
		MinioEndpoint:  "minio.internal:9000",
		MinioAccessKey: "key",
		MinioSecretKey: "secret",
		MinioBucket:    "labeldesk",
		MinioPublicURL: publicURL,
	})
	require.NoError(t, err)
	return m
}

func TestObjectURLRoundTrip(t *testing.T) {
	m := newTestStorage(t, "https://cdn.example.com/")
	url := m.ObjectURL("audio/rel-1/glow.wav")
	assert.Equal(t, "https://cdn.example.com/labeldesk/audio/rel-1/glow.wav", url)

	key, err := m.ObjectKey(url)
	require.NoError(t, err)
	assert.Equal(t, "audio/rel-1/glow.wav", key)

	key, err = m.ObjectKey("http://minio.internal:9000/labeldesk/artwork/rel-1/neon_nights_cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, "artwork/rel-1/neon_nights_cover.jpg", key)

	_, err = m.ObjectKey("https://elsewhere.test/other-bucket/x.wav")
	assert.Error(t, err)
}

func TestDefaultPublicURLFollowsEndpoint(t *testing.T) {
	m := newTestStorage(t, "")
	assert.Equal(t, "http://minio.internal:9000/labeldesk/a/b.jpg", m.ObjectURL("a/b.jpg"))
}

func TestNewMinioStorageNeedsEndpoint(t *testing.T) {
	_, err := NewMinioStorage(&config.Config{})
	assert.Error(t, err)
}

func TestProgressReaderCountsBytes(t *testing.T) {
	var seen []int64
	p := &progressReader{total: 10, fn: func(done, total int64) {
		assert.Equal(t, int64(10), total)
		seen = append(seen, done)
	}}
	n, err := p.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, _ = p.Read(make([]byte, 6))
	assert.Equal(t, []int64{4, 10}, seen)
}

func TestProgressReaderConcurrentWorkers(t *testing.T) {
	const workers, reads, chunk = 4, 50, 16
	total := int64(workers * reads * chunk)

	var mu sync.Mutex
	seen := make(map[int64]bool)
	p := &progressReader{total: total, fn: func(done, _ int64) {
		mu.Lock()
		seen[done] = true
		mu.Unlock()
	}}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, chunk)
			for i := 0; i < reads; i++ {
				_, _ = p.Read(buf)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, total, p.done.Load())
	assert.Len(t, seen, workers*reads, "every read reports a distinct running total")
	assert.True(t, seen[total])
}

func TestSummarize(t *testing.T) {
	newest := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	stats := Summarize([]ObjectInfo{
		{Key: "audio/r/glow.wav", Size: 3000, LastModified: newest.Add(-time.Hour)},
		{Key: "artwork/r/neon_nights_cover.jpg", Size: 500, LastModified: newest},
		{Key: "misc/readme.txt", Size: 20},
	})
	assert.Equal(t, int64(3), stats.TotalObjects)
	assert.Equal(t, int64(3520), stats.TotalSize)
	assert.Equal(t, newest, stats.LastModified)
	assert.Equal(t, map[string]int64{"audio": 3000, "image": 500, "other": 20}, stats.SizeByKind)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2*1024*1024))
}
