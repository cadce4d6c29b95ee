package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

const (
	snapshotContentType  = "application/json"
	snapshotCacheControl = "no-cache, no-store, must-revalidate"
)

type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3SnapshotRepository overwrites a single JSON object with the latest stats.
type S3SnapshotRepository struct {
	client PutObjectAPI
	bucket string
	key    string
}

func NewS3SnapshotRepository(client PutObjectAPI, bucket, key string) *S3SnapshotRepository {
	return &S3SnapshotRepository{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// Enabled reports whether a bucket is configured.
func (r *S3SnapshotRepository) Enabled() bool {
	return r != nil && r.bucket != ""
}

// Publish is a no-op when no bucket is configured.
func (r *S3SnapshotRepository) Publish(ctx context.Context, stats *model.Stats) error {
	if !r.Enabled() {
		return nil
	}

	body, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if _, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(r.bucket),
		Key:          aws.String(r.key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(snapshotContentType),
		CacheControl: aws.String(snapshotCacheControl),
	}); err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", r.bucket, r.key, err)
	}

	return nil
}
