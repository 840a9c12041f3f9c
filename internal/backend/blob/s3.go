package blob

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
)

// S3Config is the configuration of the S3 connection.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// ForcePathStyle is required by most S3 compatible servers.
	ForcePathStyle bool
}

// NewS3Uploader returns an S3 uploader. Without static credentials the
// default AWS credential chain is used.
func NewS3Uploader(cfg S3Config) (*s3manager.Uploader, error) {
	conf := &aws.Config{
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Region != "" {
		conf.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		conf.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		conf.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(conf)
	if err != nil {
		return nil, fmt.Errorf("could not create aws session: %w", err)
	}

	return s3manager.NewUploader(sess), nil
}

// S3StoreConfig is the configuration for the S3 blob store.
type S3StoreConfig struct {
	Uploader s3manageriface.UploaderAPI
	Bucket   string
	Prefix   string
	Logger   log.Logger
}

func (c *S3StoreConfig) defaults() error {
	if c.Uploader == nil {
		return fmt.Errorf("uploader is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "blob.S3Store"})
	return nil
}

// S3Store stores blobs on an S3 bucket.
type S3Store struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
	logger   log.Logger
}

// NewS3Store returns a new S3 blob store.
func NewS3Store(cfg S3StoreConfig) (*S3Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &S3Store{
		uploader: cfg.Uploader,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		logger:   cfg.Logger,
	}, nil
}

// Upload uploads the blob and returns its object URL.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	objKey := path.Join(s.prefix, key)

	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objKey),
		ContentType: aws.String(contentType),
		Body:        r,
	})
	if err != nil {
		return "", fmt.Errorf("could not upload %s to bucket %s: %w", objKey, s.bucket, err)
	}

	s.logger.Debugf("Uploaded blob %s to %s", objKey, out.Location)
	return out.Location, nil
}

var _ backend.BlobStore = &S3Store{}
