package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"LabelDesk/config"
	"LabelDesk/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage uploads release assets to a MinIO bucket and deletes them by URL.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
}

// NewMinioStorage 创建 MinIO 存储. No request is made until first use.
func NewMinioStorage(cfg *config.Config) (*MinioStorage, error) {
	if cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is not configured")
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	public := strings.TrimRight(cfg.MinioPublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.MinioEndpoint
	}
	return &MinioStorage{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion, publicURL: public}, nil
}

// Bucket returns the bucket name.
func (m *MinioStorage) Bucket() string { return m.bucket }

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinioStorage) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Info("存储桶已存在", logger.String("bucket", m.bucket))
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("成功创建存储桶", logger.String("bucket", m.bucket))
	return nil
}

// ObjectURL returns the public URL of key.
func (m *MinioStorage) ObjectURL(key string) string {
	return m.publicURL + "/" + m.bucket + "/" + strings.TrimLeft(key, "/")
}

// ObjectKey maps a URL produced by ObjectURL back to its object key.
func (m *MinioStorage) ObjectKey(rawURL string) (string, error) {
	base := m.publicURL + "/" + m.bucket + "/"
	if strings.HasPrefix(rawURL, base) {
		key, err := url.PathUnescape(strings.TrimPrefix(rawURL, base))
		if err != nil {
			return "", fmt.Errorf("invalid object url %q: %w", rawURL, err)
		}
		return key, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid object url %q: %w", rawURL, err)
	}
	path := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(path, m.bucket+"/") {
		return "", fmt.Errorf("url %q is not in bucket %s", rawURL, m.bucket)
	}
	return strings.TrimPrefix(path, m.bucket+"/"), nil
}

// progressReader is handed to PutObject, which reads from it as many bytes as
// it has uploaded. Multipart uploads read from several workers at once, so fn
// may be called concurrently and out of order.
type progressReader struct {
	total int64
	done  atomic.Int64
	fn    func(done, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	done := p.done.Add(int64(len(b)))
	if p.fn != nil {
		p.fn(done, p.total)
	}
	return len(b), nil
}

// Upload stores r under prefix/filename and returns its public URL. An
// existing object with the same key is overwritten.
func (m *MinioStorage) Upload(ctx context.Context, r io.Reader, size int64, contentType, prefix, filename string, onProgress func(done, total int64)) (string, error) {
	key := strings.Trim(prefix, "/") + "/" + filename
	opts := minio.PutObjectOptions{ContentType: contentType}
	if onProgress != nil {
		opts.Progress = &progressReader{total: size, fn: onProgress}
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, opts)
	if err != nil {
		return "", fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}
	logger.Debug("对象已上传", logger.String("key", key), logger.Int64("size", info.Size))
	return m.ObjectURL(key), nil
}

// Delete removes the object behind url.
func (m *MinioStorage) Delete(ctx context.Context, rawURL string) error {
	key, err := m.ObjectKey(rawURL)
	if err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", key, err)
	}
	return nil
}
