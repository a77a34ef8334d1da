package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ashermasroor/SlowRvbBass/config"
	"github.com/ashermasroor/SlowRvbBass/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DurableStore is the long-lived blob store. Uploads overwrite, so repeating one is safe.
type DurableStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	PublicURL(name string) string
}

// MinioStore implements DurableStore against any S3-compatible endpoint.
type MinioStore struct {
	client     *minio.Client
	bucketName string
	publicBase string
}

// NewMinioStore creates the S3 client from configuration. It does not contact the server.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
		Region: cfg.StorageRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &MinioStore{
		client:     client,
		bucketName: cfg.StorageBucket,
		publicBase: cfg.StoragePublicBase,
	}, nil
}

// Bucket returns the configured bucket name.
func (m *MinioStore) Bucket() string {
	return m.bucketName
}

// EnsureBucket checks the bucket exists and creates it when missing.
func (m *MinioStore) EnsureBucket(ctx context.Context, region string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucketName, err)
	}
	if exists {
		logger.Info("Bucket already exists", logger.String("bucket", m.bucketName))
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.bucketName, err)
	}
	logger.Info("Created bucket", logger.String("bucket", m.bucketName))
	return nil
}

// Upload writes data under name, replacing any existing object.
func (m *MinioStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	info, err := m.client.PutObject(ctx, m.bucketName, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	logger.Info("Uploaded object",
		logger.String("bucket", m.bucketName),
		logger.String("object", name),
		logger.Int64("size", info.Size),
		logger.String("etag", info.ETag))
	return nil
}

// PublicURL derives the public-read URL of an object without contacting the server.
func (m *MinioStore) PublicURL(name string) string {
	return PublicObjectURL(m.publicBase, m.bucketName, name)
}

// PublicObjectURL joins base, bucket and object name into a URL, escaping each path segment.
func PublicObjectURL(base, bucket, name string) string {
	segments := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
