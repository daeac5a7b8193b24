// Package archive keeps a copy of every uploaded spreadsheet in an S3
// compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/voterlookup/epic-extractor/internal/config"
	"go.uber.org/zap"
)

const uploadsPrefix = "uploads"

// Archiver stores uploaded files. A nil Archiver is valid and stores nothing.
type Archiver interface {
	Store(ctx context.Context, jobID uuid.UUID, filename string, content []byte) (string, error)
}

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	region          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithRegion(region string) MinioOpts {
	return func(c *minioConfig) {
		c.region = region
	}
}

func WithCredentials(accessKey, secretAccessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
		c.secretAccessKey = secretAccessKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}

// OptsFrom translates the archive configuration into client options.
func OptsFrom(cfg *config.ArchiveConfig) []MinioOpts {
	return []MinioOpts{
		WithEndpoint(cfg.Endpoint),
		WithBucket(cfg.Bucket),
		WithRegion(cfg.Region),
		WithCredentials(cfg.AccessKey, cfg.SecretKey),
		WithSSL(cfg.UseSSL),
	}
}

type MinioArchiver struct {
	cfg    *minioConfig
	client *minio.Client
	now    func() time.Time
}

func NewMinioArchiver(opts ...MinioOpts) (*MinioArchiver, error) {
	cfg := &minioConfig{bucket: "epic-uploads"}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is empty")
	}

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
		Region: cfg.region,
	})
	if err != nil {
		return nil, err
	}

	return &MinioArchiver{cfg: cfg, client: client, now: time.Now}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *MinioArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.cfg.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %q: %w", a.cfg.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.cfg.bucket, minio.MakeBucketOptions{Region: a.cfg.region}); err != nil {
		return fmt.Errorf("creating bucket %q: %w", a.cfg.bucket, err)
	}
	zap.S().Named("archive").Infow("bucket created", "bucket", a.cfg.bucket)
	return nil
}

// Store uploads content and returns the object name it was stored under.
func (a *MinioArchiver) Store(ctx context.Context, jobID uuid.UUID, filename string, content []byte) (string, error) {
	object := ObjectName(jobID, filename, a.now())
	_, err := a.client.PutObject(ctx, a.cfg.bucket, object, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType(filename),
		UserMetadata: map[string]string{
			"job-id": jobID.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", object, err)
	}
	return object, nil
}

// ObjectName places uploads under a per day prefix, keyed by job.
func ObjectName(jobID uuid.UUID, filename string, at time.Time) string {
	return path.Join(uploadsPrefix, at.UTC().Format("2006/01/02"), jobID.String()+"-"+path.Base(filename))
}

func contentType(filename string) string {
	switch path.Ext(filename) {
	case ".csv":
		return "text/csv"
	case ".xls":
		return "application/vnd.ms-excel"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}
