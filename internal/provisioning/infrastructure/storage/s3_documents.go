// Package storage checks uploaded documents in S3 compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
)

// Config locates the document bucket.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// HeadObjectAPI is the part of the S3 client used here.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3DocumentStore implements the document checker on an S3 bucket.
type S3DocumentStore struct {
	client HeadObjectAPI
	bucket string
	logger *slog.Logger
}

// NewS3Client builds an S3 client. A custom endpoint switches to path style
// addressing for S3 compatible stores.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3DocumentStore creates a document store over client.
func NewS3DocumentStore(client HeadObjectAPI, bucket string, logger *slog.Logger) *S3DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3DocumentStore{client: client, bucket: bucket, logger: logger}
}

// DocumentExists reports whether key exists in the bucket. An empty key never exists.
func (s *S3DocumentStore) DocumentExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}

	s.logger.ErrorContext(ctx, "failed to check document", "key", key, "error", err)
	return false, fmt.Errorf("%w: head object %s: %v", sharedDomain.ErrDependency, key, err)
}
