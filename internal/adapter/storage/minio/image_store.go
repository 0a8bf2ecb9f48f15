package minio

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/bunnyexe1/AUTHENTIX/internal/app/config"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStore keeps listing images in object storage. The returned URL is
// the opaque image reference recorded both on the ledger and in the
// catalog.
type ImageStore struct {
	client *minio.Client
	bucket string
	log    logger.Logger
}

func NewImageStore(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctx, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &ImageStore{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Upload stores image bytes under a generated key and returns its URL.
func (s *ImageStore) Upload(ctx context.Context, originalFileName string, data []byte) (string, error) {
	ext := filepath.Ext(originalFileName)
	objectKey := fmt.Sprintf("images/%s%s", uuid.New().String(), ext)

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, info.Key)
	s.log.Infof("Uploaded listing image %s (%d bytes)", url, info.Size)
	return url, nil
}
