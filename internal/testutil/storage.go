package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// Upload records one call to FakeStorage.Upload.
type Upload struct {
	Prefix      string
	Filename    string
	ContentType string
	Bytes       int
}

// FakeStorage is an in-memory storage collaborator.
type FakeStorage struct {
	mu       sync.Mutex
	Uploads  []Upload
	Deleted  []string
	FailOn   map[string]error // filename → upload error
	FailDel  map[string]error // url → delete error
	BaseURL  string
	Objects  map[string][]byte
	chunkLen int
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		BaseURL:  "https://cdn.test",
		FailOn:   map[string]error{},
		FailDel:  map[string]error{},
		Objects:  map[string][]byte{},
		chunkLen: 1024,
	}
}

// Upload reads r in chunks, reporting progress after each chunk.
func (f *FakeStorage) Upload(ctx context.Context, r io.Reader, size int64, contentType, prefix, filename string, onProgress func(done, total int64)) (string, error) {
	if err := f.failure(filename); err != nil {
		return "", err
	}
	var buf []byte
	chunk := make([]byte, f.chunkLen)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if n > 0 && onProgress != nil {
			onProgress(int64(len(buf)), size)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	url := f.BaseURL + "/" + strings.Trim(prefix, "/") + "/" + filename

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads = append(f.Uploads, Upload{Prefix: prefix, Filename: filename, ContentType: contentType, Bytes: len(buf)})
	f.Objects[url] = buf
	return url, nil
}

func (f *FakeStorage) failure(filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FailOn[filename]
}

// Delete records the URL and returns the configured failure, if any.
func (f *FakeStorage) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, url)
	if err, ok := f.FailDel[url]; ok {
		return err
	}
	delete(f.Objects, url)
	return nil
}

// Filenames returns uploaded filenames in call order.
func (f *FakeStorage) Filenames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.Uploads))
	for _, u := range f.Uploads {
		names = append(names, u.Filename)
	}
	return names
}
