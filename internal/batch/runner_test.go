package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bstardust/geomap/internal/adapter/photoset"
	"github.com/bstardust/geomap/internal/exif"
	"github.com/bstardust/geomap/internal/exif/exiftest"
	"github.com/bstardust/geomap/internal/metadata"
	"github.com/bstardust/geomap/internal/progress"
	"github.com/bstardust/geomap/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock photo source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListFiles() []*photoset.MediaFile {
	args := m.Called()
	return args.Get(0).([]*photoset.MediaFile)
}

func (m *MockSource) OpenFile(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Mock geocoder
type MockReverser struct {
	mock.Mock
}

func (m *MockReverser) Reverse(ctx context.Context, lat, lon float64) string {
	args := m.Called(ctx, lat, lon)
	return args.String(0)
}

func readCloser(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}

func TestRunner_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	files := []*photoset.MediaFile{
		{Path: "trip/located.jpg", Name: "located.jpg"},
		{Path: "trip/plain.png", Name: "plain.png"},
		{Path: "trip/gone.jpg", Name: "gone.jpg"},
	}

	src := new(MockSource)
	src.On("ListFiles").Return(files)
	src.On("OpenFile", "trip/located.jpg").Return(
		readCloser(exiftest.JPEGWithExif(t, 320, 240, exiftest.Camera().TIFF())), nil)
	src.On("OpenFile", "trip/plain.png").Return(readCloser(exiftest.PNG(t, 32, 32)), nil)
	src.On("OpenFile", "trip/gone.jpg").Return(nil, errors.New("permission denied"))

	geo := new(MockReverser)
	geo.On("Reverse", ctx, mock.AnythingOfType("float64"), mock.AnythingOfType("float64")).
		Return("Pittsburgh, Pennsylvania, United States")

	runner := New(ctx, src, metadata.NewExtractor(exif.DefaultPreviewSize), worker.NewPool(2), progress.New(), geo)
	records, err := runner.Run()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "located.jpg", records[0].Filename)
	require.True(t, records[0].HasCoordinate())
	assert.InDelta(t, 40.4461, records[0].Coordinate.Lat, 1e-4)
	assert.Equal(t, "Pittsburgh, Pennsylvania, United States", records[0].Address)
	assert.Equal(t, "Canon", records[0].CameraMake)

	assert.Equal(t, "plain.png", records[1].Filename)
	assert.False(t, records[1].HasCoordinate())
	assert.NotEmpty(t, records[1].Preview)

	assert.Equal(t, "gone.jpg", records[2].Filename)
	assert.Equal(t, exif.Unknown, records[2].CameraMake)

	assert.ErrorContains(t, runner.Failures(), "permission denied")
	assert.Len(t, Located(records), 1)
	assert.Equal(t, []string{"plain.png", "gone.jpg"}, Unlocated(records))

	stats := runner.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Located)
	assert.Equal(t, 1, stats.NoGPS)
	assert.Equal(t, 1, stats.Errors)

	src.AssertExpectations(t)
	geo.AssertNumberOfCalls(t, "Reverse", 1)
}

func TestRunner_NoGeocoder(t *testing.T) {
	src := new(MockSource)
	src.On("ListFiles").Return([]*photoset.MediaFile{{Path: "a.jpg", Name: "a.jpg"}})
	src.On("OpenFile", "a.jpg").Return(
		readCloser(exiftest.JPEGWithExif(t, 64, 48, exiftest.Camera().TIFF())), nil)

	runner := New(context.Background(), src, metadata.NewExtractor(0), worker.NewPool(1), progress.New(), nil)
	records, err := runner.Run()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].HasCoordinate())
	assert.Empty(t, records[0].Address)
	assert.Empty(t, records[0].Preview)
	assert.NoError(t, runner.Failures())
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := new(MockSource)
	src.On("ListFiles").Return([]*photoset.MediaFile{{Path: "a.jpg", Name: "a.jpg"}})

	runner := New(ctx, src, metadata.NewExtractor(0), worker.NewPool(1), progress.New(), nil)
	_, err := runner.Run()
	assert.ErrorIs(t, err, context.Canceled)
	src.AssertNotCalled(t, "OpenFile", "a.jpg")
}
