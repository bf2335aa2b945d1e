// Package storage implements core.ReportStorage on S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/pkg/log"
	"github.com/tuemi-io/tuemi/pkg/options"
)

var _ core.ReportStorage = (*MinIO)(nil)

type MinIO struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New returns the storage configured by opts, or Nop when S3 is disabled.
func New(opts *options.S3Options) (core.ReportStorage, error) {
	if !opts.Enabled {
		return Nop{}, nil
	}
	return NewMinIO(opts)
}

// NewMinIO creates an S3 client. No request is made until the first call.
func NewMinIO(opts *options.S3Options) (*MinIO, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIO{
		client:     client,
		bucketName: opts.BucketName,
		region:     opts.Region,
	}, nil
}

func (p *MinIO) CheckBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", p.bucketName)
		if err := p.client.MakeBucket(ctx, p.bucketName, minio.MakeBucketOptions{Region: p.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (p *MinIO) PutJSON(ctx context.Context, key string, body []byte) error {
	_, err := p.client.PutObject(ctx, p.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (p *MinIO) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))

	presignedURL, err := p.client.PresignedGetObject(ctx, p.bucketName, key, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return presignedURL.String(), nil
}

// Nop is used when object storage is disabled. Every call reports core.ErrUnavailable.
type Nop struct{}

var _ core.ReportStorage = Nop{}

func (Nop) CheckBucket(context.Context) error { return nil }

func (Nop) PutJSON(context.Context, string, []byte) error {
	return fmt.Errorf("object storage disabled: %w", core.ErrUnavailable)
}

func (Nop) PresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", fmt.Errorf("object storage disabled: %w", core.ErrUnavailable)
}
