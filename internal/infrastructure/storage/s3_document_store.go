// Package storage provides document store implementations for invoice files.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicware/backend/internal/application/ingestion"
	infraconfig "github.com/clinicware/backend/internal/infrastructure/config"
)

// Ensure S3DocumentStore implements DocumentStore
var _ ingestion.DocumentStore = (*S3DocumentStore)(nil)

// S3DocumentStore stores invoice documents in an S3 bucket. It is
// compatible with any S3-compatible backend (AWS S3, MinIO, etc.)
type S3DocumentStore struct {
	client     *s3.Client
	bucket     string
	tempPrefix string
	logger     *zap.Logger
}

// S3DocumentStoreOption is a functional option for configuring S3DocumentStore
type S3DocumentStoreOption func(*S3DocumentStore)

// WithLogger sets a custom logger for S3DocumentStore
func WithLogger(logger *zap.Logger) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.logger = logger
	}
}

// NewS3DocumentStore creates a new S3DocumentStore from configuration.
// It supports any S3-compatible storage backend.
func NewS3DocumentStore(cfg *infraconfig.StorageConfig, opts ...S3DocumentStoreOption) (*S3DocumentStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "ap-south-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	// Static credentials are optional; without them the default chain
	// (env vars, instance profile) applies.
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3DocumentStore{
		client:     client,
		bucket:     cfg.Bucket,
		tempPrefix: tempPrefixOrDefault(cfg.TempPrefix),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Storage bucket created successfully", zap.String("bucket", s.bucket))
	return nil
}

// SaveTemp writes the raw upload to the temp area and returns its key.
func (s *S3DocumentStore) SaveTemp(ctx context.Context, tenantID uuid.UUID, filename string, data []byte) (string, error) {
	key := TempDocumentKey(s.tempPrefix, tenantID, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	return key, nil
}

// Read returns the stored bytes for a key.
func (s *S3DocumentStore) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("storage key is required")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body %s: %w", key, err)
	}
	return data, nil
}

// Promote copies the object from the temp key to the durable key, then
// removes the temp copy. The copy completing first means a promotion
// failure never loses the file.
func (s *S3DocumentStore) Promote(ctx context.Context, tempKey, durableKey string) error {
	if tempKey == "" || durableKey == "" {
		return errors.New("both temp and durable keys are required")
	}

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(url.PathEscape(s.bucket + "/" + tempKey)),
		Key:        aws.String(durableKey),
	})
	if err != nil {
		return fmt.Errorf("failed to promote object %s: %w", tempKey, err)
	}

	if err := s.Delete(ctx, tempKey); err != nil {
		// The durable copy exists; a stale temp object is only clutter.
		s.logger.Warn("Failed to remove temp object after promotion",
			zap.String("temp_key", tempKey),
			zap.Error(err),
		)
	}
	return nil
}

// Delete removes an object. Missing keys are not an error; S3 treats
// deleting a nonexistent key as success.
func (s *S3DocumentStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetBucket returns the bucket name
func (s *S3DocumentStore) GetBucket() string {
	return s.bucket
}

// TempDocumentKey builds the temp-area key for a fresh upload. A random
// component keeps concurrent uploads of the same filename apart.
func TempDocumentKey(tempPrefix string, tenantID uuid.UUID, filename string) string {
	return path.Join(tempPrefix, tenantID.String(),
		fmt.Sprintf("%s-%s", uuid.New().String()[:8], path.Base(filename)))
}

func tempPrefixOrDefault(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "tmp/uploads"
	}
	return prefix
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(path.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
