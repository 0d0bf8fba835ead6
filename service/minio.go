package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/contractlens/contractlens/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportCache keeps downloaded analysis reports in a MinIO bucket
type ReportCache struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewReportCache(cfg *config.MinioConfig) (*ReportCache, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &ReportCache{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// ReportObjectName is where the report for a contract is stored
func ReportObjectName(contractID string) string {
	return "reports/" + contractID + ".pdf"
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *ReportCache) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.config.Region})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Put stores a report
func (s *ReportCache) Put(ctx context.Context, contractID string, report *Report) error {
	_, err := s.client.PutObject(ctx, s.bucket, ReportObjectName(contractID),
		bytes.NewReader(report.Data), int64(len(report.Data)),
		minio.PutObjectOptions{
			ContentType: report.ContentType,
			UserMetadata: map[string]string{
				"filename": report.Filename,
			},
		})
	if err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}

	return nil
}

// Exists reports whether a report for the contract is cached
func (s *ReportCache) Exists(ctx context.Context, contractID string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, ReportObjectName(contractID), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat report: %w", err)
	}
	return true, nil
}

// PresignedURL generates a presigned URL for a cached report
func (s *ReportCache) PresignedURL(ctx context.Context, contractID string) (string, error) {
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	url, err := s.client.PresignedGetObject(ctx, s.bucket, ReportObjectName(contractID), expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}
