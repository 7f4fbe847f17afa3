package s3client

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bstardust/geomap/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config locates the bucket maps are published to
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Client stores objects under Config.Prefix in one bucket
type Client struct {
	client *minio.Client
	config Config
}

var _ S3Interface = (*Client)(nil)

// New connects to the endpoint and checks that the bucket exists
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	endpoint := trimScheme(cfg.Endpoint)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client for %s: %w", endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s: %w", cfg.Bucket, ErrBucketNotFound)
	}

	logger.Info("Connected to bucket %s at %s", cfg.Bucket, endpoint)

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

func (cfg Config) validate() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("S3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return fmt.Errorf("S3 bucket name is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return fmt.Errorf("S3 access key and secret key are required")
	}
	return nil
}

// trimScheme removes the protocol prefix minio does not accept
func trimScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}

// UploadFile stores reader under objectKey with the given user metadata
func (c *Client) UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	objectKey = c.getObjectKey(objectKey)

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}

	info, err := c.client.PutObject(ctx, c.config.Bucket, objectKey, reader, size, opts)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	logger.Debug("Uploaded file to %s (%d bytes, etag: %s)", objectKey, info.Size, info.ETag)
	return nil
}

// ObjectExists reports whether objectKey is stored
func (c *Client) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	objectKey = c.getObjectKey(objectKey)

	_, err := c.client.StatObject(ctx, c.config.Bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if code, ok := errorCode(err); ok && code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if object exists: %w", err)
	}

	return true, nil
}

// ListObjects lists objects under prefix. Returned keys are relative to the
// client prefix, so they can be passed back to the other methods.
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	fullPrefix := c.getObjectKey(prefix)
	if prefix == "" && c.config.Prefix != "" {
		fullPrefix += "/"
	}

	var objects []Object
	objectCh := c.client.ListObjects(ctx, c.config.Bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		objects = append(objects, Object{
			Key:          c.relativeKey(object.Key),
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}

	return objects, nil
}

// DeleteObject removes objectKey
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	objectKey = c.getObjectKey(objectKey)

	err := c.client.RemoveObject(ctx, c.config.Bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	logger.Debug("Deleted object %s", objectKey)
	return nil
}

// GetPresignedURL returns a GET URL for objectKey valid for expiry
func (c *Client) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	objectKey = c.getObjectKey(objectKey)

	url, err := c.client.PresignedGetObject(ctx, c.config.Bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// getObjectKey returns the full object key with prefix
func (c *Client) getObjectKey(key string) string {
	return joinKey(c.config.Prefix, key)
}

// relativeKey strips the client prefix from a full key
func (c *Client) relativeKey(key string) string {
	prefix := strings.Trim(c.config.Prefix, "/")
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}

// joinKey joins prefix and key with exactly one slash. Object keys always
// use forward slashes.
func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimPrefix(key, "/")
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return path.Join(prefix, key)
}

// GetBucketName returns the bucket name
func (c *Client) GetBucketName() string {
	return c.config.Bucket
}

// GetEndpoint returns the endpoint
func (c *Client) GetEndpoint() string {
	return c.config.Endpoint
}

// GetPrefix returns the prefix
func (c *Client) GetPrefix() string {
	return c.config.Prefix
}
