package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the S3-compatible endpoint settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	LinkTTL   time.Duration
}

// ExportStore uploads CSV exports and hands out time-limited download links.
type ExportStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

func NewExportStore(cfg Config) (*ExportStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportStore{client: client, bucket: cfg.Bucket, ttl: ttl, now: time.Now}, nil
}

func (s *ExportStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Upload stores the CSV under a per-guild key and returns a presigned GET link.
func (s *ExportStore) Upload(ctx context.Context, guildID string, data []byte) (string, error) {
	object := ObjectName(guildID, s.now())
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	link, err := s.client.PresignedGetObject(ctx, s.bucket, object, s.ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign export: %w", err)
	}
	return link.String(), nil
}

// ObjectName is the bucket key of an export taken at t.
func ObjectName(guildID string, t time.Time) string {
	return fmt.Sprintf("exports/%s/%s.csv", guildID, t.UTC().Format("20060102T150405Z"))
}
