package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MediaStore uploads staged local files to an S3 compatible bucket and
// returns the public URL for the stored object.
type MediaStore struct {
	api       *s3.Client
	bucket    string
	publicURL string
	keyPrefix string
}

// Option configures a MediaStore
type Option func(*MediaStore) *MediaStore

// WithKeyPrefix namespaces every object key under the given prefix
func WithKeyPrefix(prefix string) Option {
	return func(m *MediaStore) *MediaStore {
		m.keyPrefix = strings.Trim(prefix, "/")
		return m
	}
}

// NewMediaStoreFromEnv initialises a MediaStore using environment variables.
//
// Required environment variables:
//   - MEDIA_S3_ENDPOINT: host:port or full URL to the S3 endpoint.
//   - MEDIA_S3_ACCESS_KEY / MEDIA_S3_SECRET_KEY: static credentials.
//   - MEDIA_S3_BUCKET: target bucket.
//
// Optional environment variables:
//   - MEDIA_S3_REGION (default "us-east-1").
//   - MEDIA_S3_PUBLIC_URL: base URL for serving objects, defaults to
//     endpoint/bucket.
//   - MEDIA_S3_DISABLE_TLS (bool; default false).
//   - MEDIA_S3_FORCE_PATH_STYLE (bool; default true).
func NewMediaStoreFromEnv(opts ...Option) (*MediaStore, error) {
	endpoint := strings.TrimSpace(os.Getenv("MEDIA_S3_ENDPOINT"))
	accessKey := os.Getenv("MEDIA_S3_ACCESS_KEY")
	secretKey := os.Getenv("MEDIA_S3_SECRET_KEY")
	bucket := os.Getenv("MEDIA_S3_BUCKET")
	region := os.Getenv("MEDIA_S3_REGION")
	if region == "" {
		region = "us-east-1"
	}

	if endpoint == "" {
		return nil, errors.New("MEDIA_S3_ENDPOINT is required")
	}
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("MEDIA_S3_ACCESS_KEY and MEDIA_S3_SECRET_KEY are required")
	}
	if bucket == "" {
		return nil, errors.New("MEDIA_S3_BUCKET is required")
	}

	disableTLS, _ := strconv.ParseBool(os.Getenv("MEDIA_S3_DISABLE_TLS"))
	forcePathStyle := true
	if v := strings.TrimSpace(os.Getenv("MEDIA_S3_FORCE_PATH_STYLE")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			forcePathStyle = parsed
		}
	}

	scheme := "https"
	if disableTLS {
		scheme = "http"
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	publicURL := strings.TrimSpace(os.Getenv("MEDIA_S3_PUBLIC_URL"))
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(endpoint, "/"), bucket)
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = forcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	store := &MediaStore{
		api:       client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}

	for _, opt := range opts {
		store = opt(store)
	}

	return store, nil
}

// Upload puts the file at localPath into the bucket under a random key
// and returns the public URL of the stored object. The staged file is
// removed after a successful upload.
func (m *MediaStore) Upload(ctx context.Context, localPath string) (string, error) {
	if m == nil {
		return "", errors.New("nil media store")
	}
	if localPath == "" {
		return "", errors.New("local path required")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat staged file: %w", err)
	}

	key := m.objectKey(localPath)
	size := info.Size()
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = m.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &m.bucket,
		Key:           &key,
		Body:          f,
		ContentLength: &size,
		ContentType:   &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	// staged uploads are throwaway copies
	_ = os.Remove(localPath)

	return m.objectURL(key), nil
}

func (m *MediaStore) objectKey(localPath string) string {
	name := uuid.New().String() + filepath.Ext(localPath)
	if m.keyPrefix == "" {
		return name
	}
	return m.keyPrefix + "/" + name
}

func (m *MediaStore) objectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return m.publicURL + "/" + strings.Join(parts, "/")
}
