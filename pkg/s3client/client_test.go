package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing endpoint", Config{Bucket: "maps", AccessKey: "a", SecretKey: "b"}, "endpoint is required"},
		{"missing bucket", Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, "bucket name is required"},
		{"missing secret", Config{Endpoint: "localhost:9000", Bucket: "maps", AccessKey: "a"}, "secret key are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(context.Background(), tt.cfg)
			assert.Nil(t, client)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTrimScheme(t *testing.T) {
	assert.Equal(t, "s3.example.com", trimScheme("https://s3.example.com"))
	assert.Equal(t, "localhost:9000", trimScheme("http://localhost:9000"))
	assert.Equal(t, "localhost:9000", trimScheme("localhost:9000"))
}

func TestObjectKeys(t *testing.T) {
	tests := []struct {
		prefix, key, full string
	}{
		{"", "map.html", "map.html"},
		{"maps", "map.html", "maps/map.html"},
		{"maps/", "/map.html", "maps/map.html"},
		{"/team/maps/", "2024/map.html", "team/maps/2024/map.html"},
		{"maps", "", "maps"},
	}

	for _, tt := range tests {
		c := &Client{config: Config{Prefix: tt.prefix}}
		assert.Equal(t, tt.full, c.getObjectKey(tt.key), "prefix %q key %q", tt.prefix, tt.key)
	}

	c := &Client{config: Config{Prefix: "maps/"}}
	assert.Equal(t, "map.html", c.relativeKey("maps/map.html"))
	assert.Equal(t, "2024/map.html", c.relativeKey(c.getObjectKey("2024/map.html")))

	c = &Client{}
	assert.Equal(t, "map.html", c.relativeKey("map.html"))
}

func TestErrorClassification(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	denied := minio.ErrorResponse{Code: "AccessDenied", Message: "Access Denied."}

	assert.True(t, IsNotFoundError(fmt.Errorf("stat: %w", notFound)))
	assert.True(t, IsNotFoundError(ErrBucketNotFound))
	assert.False(t, IsNotFoundError(denied))
	assert.False(t, IsNotFoundError(nil))

	assert.True(t, IsAuthError(fmt.Errorf("upload: %w", denied)))
	assert.True(t, IsAuthError(errors.New("401 unauthorized")))
	assert.False(t, IsAuthError(notFound))
	assert.False(t, IsAuthError(nil))

	assert.Equal(t, "Access Denied. (AccessDenied)", FormatError(denied))
	denied.BucketName = "photo-maps"
	assert.Equal(t, "Access Denied. on bucket photo-maps (AccessDenied)", FormatError(fmt.Errorf("put: %w", denied)))
	assert.Equal(t, "boom", FormatError(errors.New("boom")))
	assert.Empty(t, FormatError(nil))
}

// Integration tests require a running S3-compatible server
// You can use MinIO in Docker for local testing:
// docker run -p 9000:9000 -p 9001:9001 minio/minio server /data --console-address ":9001"
func TestIntegration_MapLifecycle(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := New(ctx, Config{
		Endpoint:  getEnvOrDefault("TEST_S3_ENDPOINT", "localhost:9000"),
		Region:    getEnvOrDefault("TEST_S3_REGION", "us-east-1"),
		Bucket:    getEnvOrDefault("TEST_S3_BUCKET", "test-bucket"),
		AccessKey: getEnvOrDefault("TEST_S3_ACCESS_KEY", "minioadmin"),
		SecretKey: getEnvOrDefault("TEST_S3_SECRET_KEY", "minioadmin"),
		UseSSL:    os.Getenv("TEST_S3_USE_SSL") == "true",
		Prefix:    "integration-test",
	})
	require.NoError(t, err, "Failed to create S3 client")

	defer func() {
		objects, err := client.ListObjects(context.Background(), "")
		if err == nil {
			for _, obj := range objects {
				client.DeleteObject(context.Background(), obj.Key)
			}
		}
	}()

	body := []byte("<html><body>map</body></html>")
	key := "map_result-test.html"
	require.NoError(t, client.UploadFile(ctx, bytes.NewReader(body), key, int64(len(body)),
		map[string]string{"generator": "geomap"}, "text/html; charset=utf-8"))

	exists, err := client.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	objects, err := client.ListObjects(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, key, objects[0].Key)
	assert.Equal(t, int64(len(body)), objects[0].Size)

	url, err := client.GetPresignedURL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "integration-test/"+key)

	require.NoError(t, client.DeleteObject(ctx, key))
	exists, err = client.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
