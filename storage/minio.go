package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIO stores each key as one object in an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// MinIOConfig holds MinIO backend configuration.
type MinIOConfig struct {
	// Endpoint is the MinIO server address (e.g. "localhost:9000").
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Bucket is required. It must already exist.
	Bucket string

	// Prefix places all objects under a virtual directory.
	Prefix string

	// Client is an optional pre-configured client. When set, Endpoint and
	// the credentials are ignored.
	Client *minio.Client
}

// NewMinIO creates a MinIO-backed Backend.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: minio bucket is required")
	}
	client := cfg.Client
	if client == nil {
		if cfg.Endpoint == "" {
			return nil, errors.New("storage: minio endpoint is required when client is not provided")
		}
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: create minio client: %w", err)
		}
	}
	return &MinIO{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (m *MinIO) objectName(key string) string {
	if m.prefix == "" {
		return key
	}
	return path.Join(m.prefix, key)
}

func (m *MinIO) keyOf(object string) string {
	if m.prefix == "" {
		return object
	}
	return strings.TrimPrefix(object, m.prefix+"/")
}

func (m *MinIO) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_ = obj.Close()
	}()

	// GetObject is lazy; a missing key only surfaces on first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (m *MinIO) Set(ctx context.Context, key string, val []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, m.objectName(key),
		bytes.NewReader(val), int64(len(val)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	return err
}

func (m *MinIO) Remove(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, m.objectName(key), minio.RemoveObjectOptions{})
}

func (m *MinIO) ListKeys(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if m.prefix != "" {
		opts.Prefix = m.prefix + "/"
	}
	var keys []string
	for object := range m.client.ListObjects(ctx, m.bucket, opts) {
		if object.Err != nil {
			return nil, object.Err
		}
		keys = append(keys, m.keyOf(object.Key))
	}
	return keys, nil
}

// RemoveMany uses the batch delete API and returns the first failure.
func (m *MinIO) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objectsCh <- minio.ObjectInfo{Key: m.objectName(k)}
	}
	close(objectsCh)

	var first error
	for rerr := range m.client.RemoveObjects(ctx, m.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil && first == nil {
			first = fmt.Errorf("storage: remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return first
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
