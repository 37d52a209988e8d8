// Package blobstore keeps copies of generated images in an S3-compatible
// bucket. The hosted URLs OpenAI returns expire after a short while, so the
// bytes are copied here and served through presigned GETs.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/acetime/acetime/internal/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignExpiry = 15 * time.Minute

// Config points at the bucket. Endpoint is set for S3-compatible stores such
// as MinIO and left empty for AWS itself.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Store wraps the S3 client. A nil *Store is a valid disabled store: the
// application runs without a bucket configured and generated images keep
// only their hosted URL.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Custom endpoints are bucket-in-path stores.
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// Enabled reports whether a bucket is configured.
func (s *Store) Enabled() bool {
	return s != nil
}

// RandomKey returns a fresh storage key, partitioned by date so bucket
// listings stay navigable.
func RandomKey() string {
	d := time.Now()
	return fmt.Sprintf("images/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Put uploads the object under the key.
func (s *Store) Put(ctx context.Context, key string, contentType string, body io.Reader) error {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{ //nolint:exhaustruct // this is better for readability
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	}); err != nil {
		return errors.Wrap(err, "put object")
	}
	return nil
}

// PresignGet returns a time-limited URL for downloading the object.
func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{ //nolint:exhaustruct // this is better for readability
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", errors.Wrap(err, "presign get")
	}
	return request.URL, nil
}

// PresignPut returns a fresh key and a time-limited URL for uploading to it.
func (s *Store) PresignPut(ctx context.Context) (string, string, error) {
	key := RandomKey()
	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{ //nolint:exhaustruct // this is better for readability
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", errors.Wrap(err, "presign put")
	}
	return key, request.URL, nil
}
