package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/templui/discord-onboarding/internal/config"
)

// S3Archive stores audit exports (purged kick schedules) in an S3-compatible
// bucket. Works with AWS S3, MinIO, Cloudflare R2 and similar services.
type S3Archive struct {
	client  *s3.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string // Optional: for S3-compatible services
	Prefix    string // Optional: key prefix inside the bucket
}

// New creates the archive from app config.
func New(ctx context.Context, c *cfg.Config) (*S3Archive, error) {
	slog.Info("initializing S3 archive",
		"bucket", c.S3Bucket,
		"region", c.S3Region,
		"endpoint", c.S3Endpoint,
	)
	return NewS3Archive(ctx, S3Config{
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Endpoint:  c.S3Endpoint,
	})
}

func NewS3Archive(ctx context.Context, sc S3Config) (*S3Archive, error) {
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(sc.Region))

	if sc.AccessKey != "" && sc.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if sc.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(sc.Endpoint)
			o.UsePathStyle = true // Required for MinIO and some S3-compatible services
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	archive := &S3Archive{
		client:  client,
		bucket:  sc.Bucket,
		prefix:  strings.Trim(sc.Prefix, "/"),
		timeout: 30 * time.Second,
	}

	err = archive.ensureBucket(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return archive, nil
}

func (a *S3Archive) ensureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", a.bucket, err)
	}

	slog.Info("created S3 bucket", "bucket", a.bucket)
	return nil
}

// Archive uploads body as a JSON object under key.
func (a *S3Archive) Archive(ctx context.Context, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	fullKey := a.Key(key)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", fullKey, err)
	}

	slog.Debug("archive uploaded", "bucket", a.bucket, "key", fullKey, "bytes", len(body))
	return nil
}

// Key returns the object key for key with the configured prefix.
func (a *S3Archive) Key(key string) string {
	if a.prefix == "" {
		return key
	}
	return a.prefix + "/" + strings.TrimPrefix(key, "/")
}
