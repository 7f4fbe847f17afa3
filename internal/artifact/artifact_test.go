package artifact

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bstardust/geomap/pkg/s3client"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock S3 client
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	body, _ := io.ReadAll(reader)
	args := m.Called(ctx, string(body), objectKey, size, metadata, contentType)
	return args.Error(0)
}

func (m *MockS3Client) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	args := m.Called(ctx, objectKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockS3Client) ListObjects(ctx context.Context, prefix string) ([]s3client.Object, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]s3client.Object), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}

func (m *MockS3Client) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectKey, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockS3Client) GetBucketName() string {
	return "photo-maps"
}

func (m *MockS3Client) GetEndpoint() string {
	return "localhost:9000"
}

func (m *MockS3Client) GetPrefix() string {
	return "maps"
}

func TestNewName(t *testing.T) {
	name := NewName(time.Date(2024, 5, 17, 9, 30, 15, 250_000_000, time.UTC))
	assert.Equal(t, "map_result-20240517-093015.250.html", name)
	assert.True(t, ValidName(name))
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("map_result-1.html"))
	assert.True(t, ValidName("trip.HTML"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("../secret.html"))
	assert.False(t, ValidName("dir/map.html"))
	assert.False(t, ValidName(`dir\map.html`))
	assert.False(t, ValidName(".hidden.html"))
	assert.False(t, ValidName("map.txt"))
}

func TestDiskSink(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewDiskSink(dir)
	require.NoError(t, err)

	art, err := sink.Publish(ctx, "map_result-a.html", []byte("<html>a</html>"))
	require.NoError(t, err)
	assert.Equal(t, "map_result-a.html", art.Name)
	assert.True(t, strings.HasPrefix(art.Location, "file://"))
	assert.Equal(t, int64(14), art.Size)

	data, err := os.ReadFile(filepath.Join(dir, "map_result-a.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>a</html>", string(data))

	_, err = sink.Publish(ctx, "map_result-b.html", []byte("<html>b</html>"))
	require.NoError(t, err)
	older := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "map_result-a.html"), older, older))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.html"), nil, 0o644))

	list, err := sink.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "map_result-b.html", list[0].Name)
	assert.Equal(t, "map_result-a.html", list[1].Name)

	require.NoError(t, sink.Remove(ctx, "map_result-a.html"))
	assert.ErrorIs(t, sink.Remove(ctx, "map_result-a.html"), fs.ErrNotExist)
	assert.ErrorIs(t, sink.Remove(ctx, "../out/map_result-b.html"), ErrInvalidName)

	_, err = sink.Publish(ctx, "../escape.html", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestS3Sink_Publish(t *testing.T) {
	ctx := context.Background()
	client := new(MockS3Client)
	client.On("UploadFile", ctx, "<html></html>", "map_result-x.html", int64(13),
		map[string]string{"generator": "geomap", "size": "13"}, "text/html; charset=utf-8").Return(nil)
	client.On("GetPresignedURL", ctx, "map_result-x.html", time.Hour).
		Return("https://localhost:9000/photo-maps/maps/map_result-x.html?X-Amz-Signature=abc", nil)

	sink := NewS3Sink(client, time.Hour)
	art, err := sink.Publish(ctx, "map_result-x.html", []byte("<html></html>"))
	require.NoError(t, err)
	assert.Contains(t, art.Location, "X-Amz-Signature")
	client.AssertExpectations(t)
}

func TestS3Sink_PublishAuthError(t *testing.T) {
	ctx := context.Background()
	client := new(MockS3Client)
	denied := minio.ErrorResponse{Code: "AccessDenied", Message: "Access Denied."}
	client.On("UploadFile", ctx, mock.Anything, "map_result-x.html", mock.Anything, mock.Anything, mock.Anything).
		Return(denied)

	_, err := NewS3Sink(client, time.Hour).Publish(ctx, "map_result-x.html", []byte("x"))
	assert.ErrorContains(t, err, "check the S3 credentials")
	client.AssertNumberOfCalls(t, "UploadFile", 1)
	client.AssertNotCalled(t, "GetPresignedURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestS3Sink_ListAndRemove(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	client := new(MockS3Client)
	client.On("ListObjects", ctx, "").Return([]s3client.Object{
		{Key: "map_result-old.html", Size: 10, LastModified: now.Add(-time.Hour)},
		{Key: "nested/map.html", Size: 5, LastModified: now},
		{Key: "map_result-new.html", Size: 20, LastModified: now},
	}, nil)
	client.On("ObjectExists", ctx, "map_result-old.html").Return(true, nil)
	client.On("ObjectExists", ctx, "map_result-gone.html").Return(false, nil)
	client.On("DeleteObject", ctx, "map_result-old.html").Return(nil)

	sink := NewS3Sink(client, time.Hour)
	list, err := sink.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "map_result-new.html", list[0].Name)
	assert.Equal(t, "s3://photo-maps/maps/map_result-new.html", list[0].Location)

	require.NoError(t, sink.Remove(ctx, "map_result-old.html"))
	assert.ErrorIs(t, sink.Remove(ctx, "map_result-gone.html"), fs.ErrNotExist)
	client.AssertNumberOfCalls(t, "DeleteObject", 1)
}

func TestS3Sink_RemoveNotFound(t *testing.T) {
	ctx := context.Background()
	noBucket := minio.ErrorResponse{Code: "NoSuchBucket", Message: "The specified bucket does not exist", BucketName: "photo-maps"}
	noKey := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	denied := minio.ErrorResponse{Code: "AccessDenied", Message: "Access Denied."}

	client := new(MockS3Client)
	client.On("ObjectExists", ctx, "map_result-a.html").Return(false, noBucket)
	client.On("ObjectExists", ctx, "map_result-b.html").Return(true, nil)
	client.On("DeleteObject", ctx, "map_result-b.html").Return(noKey)
	client.On("ObjectExists", ctx, "map_result-c.html").Return(false, denied)

	sink := NewS3Sink(client, time.Hour)
	assert.ErrorIs(t, sink.Remove(ctx, "map_result-a.html"), fs.ErrNotExist)
	assert.ErrorIs(t, sink.Remove(ctx, "map_result-b.html"), fs.ErrNotExist)

	err := sink.Remove(ctx, "map_result-c.html")
	assert.False(t, errors.Is(err, fs.ErrNotExist))
	var resp minio.ErrorResponse
	assert.ErrorAs(t, err, &resp)
	client.AssertNumberOfCalls(t, "DeleteObject", 1)
}

func TestS3Sink_ListError(t *testing.T) {
	client := new(MockS3Client)
	client.On("ListObjects", mock.Anything, "").Return(nil, errors.New("no such bucket"))

	_, err := NewS3Sink(client, time.Hour).List(context.Background())
	assert.Error(t, err)
}

func TestBrowserCommand(t *testing.T) {
	name, args := browserCommand("linux", "file:///tmp/map.html")
	assert.Equal(t, "xdg-open", name)
	assert.Equal(t, []string{"file:///tmp/map.html"}, args)

	name, _ = browserCommand("darwin", "x")
	assert.Equal(t, "open", name)

	name, args = browserCommand("windows", "x")
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, []string{"url.dll,FileProtocolHandler", "x"}, args)
}
