package objstore

import (
	"bytes"
	"context"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	// Endpoint is host[:port] of the service, e.g. "s3.amazonaws.com".
	Endpoint string
	// Region is optional for most services.
	Region string
	// Bucket is the bucket name.
	Bucket string

	AccessKeyID     string
	SecretAccessKey string

	// Insecure disables TLS; useful against a local MinIO.
	Insecure bool
}

// S3 is a Bucket backed by an S3-compatible object store.
type S3 struct {
	log    *zap.Logger
	client *minio.Client
	bucket string
}

var _ Bucket = (*S3)(nil)

// NewS3 creates a client for cfg.Bucket. No request is made until the first
// operation.
func NewS3(log *zap.Logger, cfg S3Config) (*S3, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Bucket == "" {
		return nil, Error.New("s3: bucket name is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return &S3{
		log:    log.Named("s3").With(zap.String("bucket", cfg.Bucket)),
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Name implements Bucket.
func (s *S3) Name() string { return s.bucket }

// Scheme implements Bucket.
func (s *S3) Scheme() string { return "s3" }

// List implements Bucket.
func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, Error.Wrap(obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	s.log.Debug("listed", zap.String("prefix", prefix), zap.Int("keys", len(keys)))
	return keys, nil
}

// Exists implements Bucket.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, Error.Wrap(err)
}

// Get implements Bucket.
func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(key, err)
	}
	defer func() { _ = obj.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, s.wrap(key, err)
	}
	return buf.Bytes(), nil
}

// Save implements Bucket.
func (s *S3) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return Error.Wrap(err)
}

// Delete implements Bucket.
func (s *S3) Delete(ctx context.Context, key string) error {
	return Error.Wrap(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}))
}

// Download implements Bucket.
func (s *S3) Download(ctx context.Context, key, localPath string) error {
	return s.wrap(key, s.client.FGetObject(ctx, s.bucket, key, localPath, minio.GetObjectOptions{}))
}

// Upload implements Bucket.
func (s *S3) Upload(ctx context.Context, key, localPath string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{})
	return Error.Wrap(err)
}

func (s *S3) wrap(key string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return ErrNotExist.New("%s", key)
	}
	return Error.Wrap(err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
