// Package storage uploads export artifacts to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactStore is the narrow upload surface the worker depends on
type ArtifactStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// S3Store uploads artifacts to one bucket
type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Store builds an uploader from the default AWS credential chain
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}, nil
}

// Upload puts one object and returns its HTTPS URL
func (s *S3Store) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// ExportKey is the object key for an export workbook
func ExportKey(clientID, jobID, channel string) string {
	return fmt.Sprintf("%s/exports/%s_%s.xlsx", clientID, jobID, channel)
}

// FailedRowsKey is the object key for a job's failed-row artifact
func FailedRowsKey(clientID, jobID string) string {
	return fmt.Sprintf("%s/logs/%s_failed_rows.csv", clientID, jobID)
}
