package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/bstardust/geomap/internal/fileinfo"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/retry"
	"github.com/bstardust/geomap/pkg/s3client"
)

// S3Sink uploads maps to a bucket and hands out presigned links
type S3Sink struct {
	client s3client.S3Interface
	expiry time.Duration
	retry  retry.Config
}

// NewS3Sink creates a sink over client. Links stay valid for expiry.
func NewS3Sink(client s3client.S3Interface, expiry time.Duration) *S3Sink {
	return &S3Sink{
		client: client,
		expiry: expiry,
		retry:  retry.Default(),
	}
}

// Publish uploads html and returns a presigned URL for it
func (s *S3Sink) Publish(ctx context.Context, name string, html []byte) (*Artifact, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	metadata := map[string]string{
		"generator": "geomap",
		"size":      strconv.Itoa(len(html)),
	}
	err := retry.Do(ctx, fmt.Sprintf("upload %s", name), func() error {
		return s.client.UploadFile(ctx, bytes.NewReader(html), name, int64(len(html)),
			metadata, fileinfo.DetectContentType(name))
	}, s.retry)
	if err != nil {
		if s3client.IsAuthError(err) {
			return nil, fmt.Errorf("failed to publish map, check the S3 credentials: %s", s3client.FormatError(err))
		}
		return nil, fmt.Errorf("failed to publish map: %w", err)
	}

	url, err := s.client.GetPresignedURL(ctx, name, s.expiry)
	if err != nil {
		return nil, err
	}

	logger.Info("Map uploaded to bucket %s as %s", s.client.GetBucketName(), name)
	return &Artifact{
		Name:     name,
		Location: url,
		Size:     int64(len(html)),
		Modified: time.Now(),
	}, nil
}

// List returns the maps in the bucket, newest first
func (s *S3Sink) List(ctx context.Context) ([]Artifact, error) {
	objects, err := s.client.ListObjects(ctx, "")
	if err != nil {
		return nil, err
	}

	var out []Artifact
	for _, obj := range objects {
		if !ValidName(obj.Key) {
			continue
		}
		out = append(out, Artifact{
			Name:     obj.Key,
			Location: fmt.Sprintf("s3://%s/%s", s.client.GetBucketName(), joinPrefix(s.client.GetPrefix(), obj.Key)),
			Size:     obj.Size,
			Modified: obj.LastModified,
		})
	}
	sortNewestFirst(out)
	return out, nil
}

// Remove deletes a map from the bucket
func (s *S3Sink) Remove(ctx context.Context, name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	exists, err := s.client.ObjectExists(ctx, name)
	if err == nil && exists {
		err = retry.Do(ctx, fmt.Sprintf("delete %s", name), func() error {
			return s.client.DeleteObject(ctx, name)
		}, s.retry)
	}
	// a missing bucket or a key deleted concurrently reads as a missing map
	if (err == nil && !exists) || s3client.IsNotFoundError(err) {
		return fmt.Errorf("map %s: %w", name, fs.ErrNotExist)
	}
	return err
}

func joinPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.Trim(prefix, "/") + "/" + key
}
