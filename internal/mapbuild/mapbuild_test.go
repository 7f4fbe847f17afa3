package mapbuild

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bstardust/geomap/internal/adapter/photoset"
	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/exif/exiftest"
	"github.com/bstardust/geomap/internal/geo"
	"github.com/bstardust/geomap/internal/geocode"
	"github.com/bstardust/geomap/internal/locate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock geocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Lookup(ctx context.Context, q string) (geocode.Place, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(geocode.Place), args.Error(1)
}

func (m *MockGeocoder) Reverse(ctx context.Context, lat, lon float64) string {
	args := m.Called(ctx, lat, lon)
	return args.String(0)
}

// Mock user locator
type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) Locate(ctx context.Context) (*locate.Location, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*locate.Location), args.Error(1)
}

var pittsburghHome = &locate.Location{Lat: 40.4406, Lon: -79.9959, Label: "Pittsburgh, Pennsylvania, United States"}

func newBuilder(t *testing.T, g Geocoder, l Locator) *Builder {
	t.Helper()
	cfg := config.New()
	cfg.Render.TilesDir = t.TempDir()
	b := New(cfg, g, l)
	b.online = func(context.Context) bool { return true }
	return b
}

func renderResult(t *testing.T, res *Result) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, res.Render(&buf))
	return buf.String()
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"coords": ModeCoords, "offline": ModeCoords,
		"places": ModePlaces, "online": ModePlaces,
		"images": ModeImages, " Image ": ModeImages,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("satellite")
	assert.Error(t, err)
}

func TestParseCoordinates(t *testing.T) {
	points, err := ParseCoordinates([]string{"48.85", "", " 51.5 ", "10"}, []string{"2.35", "7", "-0.12"})
	require.NoError(t, err)
	assert.Equal(t, []geo.Point{{Lat: 48.85, Lon: 2.35}, {Lat: 51.5, Lon: -0.12}}, points)

	_, err = ParseCoordinates([]string{"north"}, []string{"2"})
	assert.ErrorContains(t, err, "invalid latitude")
	_, err = ParseCoordinates([]string{"91"}, []string{"2"})
	assert.ErrorContains(t, err, "out of range")

	for _, bad := range [][2]string{{"NaN", "2"}, {"40", "nan"}, {"Inf", "2"}, {"40", "-inf"}, {"+Infinity", "0"}} {
		_, err = ParseCoordinates([]string{bad[0]}, []string{bad[1]})
		assert.ErrorContains(t, err, "not a finite number", "%s, %s", bad[0], bad[1])
	}

	p, err := ParsePair("40.4461,-79.9822")
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 40.4461, Lon: -79.9822}, p)
	_, err = ParsePair("40.4461")
	assert.Error(t, err)
}

func TestFromCoordinates(t *testing.T) {
	b := newBuilder(t, nil, nil)

	_, err := b.FromCoordinates(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoPoints)

	res, err := b.FromCoordinates(context.Background(), []geo.Point{{Lat: 48.85, Lon: 2.35}, {Lat: 51.5, Lon: -0.12}})
	require.NoError(t, err)
	assert.Equal(t, ModeCoords, res.Mode)
	assert.Equal(t, 2, res.Map.Len())
	assert.Nil(t, res.Home)
	assert.Contains(t, renderResult(t, res), "tile.openstreetmap.org")
}

func TestFromPlaces(t *testing.T) {
	ctx := context.Background()
	g := new(MockGeocoder)
	g.On("Lookup", ctx, "Paris").Return(geocode.Place{Name: "Paris", Lat: 48.8566, Lon: 2.3522}, nil)
	g.On("Lookup", ctx, "Atlantis").Return(geocode.Place{}, geocode.ErrNotFound)
	g.On("Lookup", ctx, "London").Return(geocode.Place{Name: "London", Lat: 51.5074, Lon: -0.1278}, nil)

	l := new(MockLocator)
	l.On("Locate", ctx).Return(&locate.Location{Lat: 48.8566, Lon: 2.3522, Label: "Paris, France"}, nil)

	res, err := newBuilder(t, g, l).FromPlaces(ctx, []string{"Paris", "", "Atlantis", "London"})
	require.NoError(t, err)

	assert.Equal(t, ModePlaces, res.Mode)
	assert.Len(t, res.Points, 2)
	assert.Equal(t, "Paris, France", res.Home.Label)
	assert.Equal(t, 2, res.Distances.Count)
	assert.InDelta(t, 343.5, res.Distances.TotalKm, 1.5)
	assert.ErrorIs(t, res.Failures, geocode.ErrNotFound)
	assert.ErrorContains(t, res.Failures, "Atlantis")

	html := renderResult(t, res)
	assert.Contains(t, html, "Location #2")
	assert.Contains(t, html, "Paris, France")

	g.AssertNumberOfCalls(t, "Lookup", 3)
}

func TestFromPlaces_WithoutUserLocation(t *testing.T) {
	ctx := context.Background()
	g := new(MockGeocoder)
	g.On("Lookup", ctx, "Paris").Return(geocode.Place{Lat: 48.8566, Lon: 2.3522}, nil)

	l := new(MockLocator)
	l.On("Locate", ctx).Return(nil, locate.ErrUnavailable)

	res, err := newBuilder(t, g, l).FromPlaces(ctx, []string{"Paris"})
	require.NoError(t, err)
	assert.Nil(t, res.Home)
	assert.Equal(t, 1, res.Map.Len())
	assert.Zero(t, res.Distances.Count)
}

func TestFromPlaces_NothingResolved(t *testing.T) {
	ctx := context.Background()
	g := new(MockGeocoder)
	g.On("Lookup", ctx, "Atlantis").Return(geocode.Place{}, geocode.ErrNotFound)

	_, err := newBuilder(t, g, nil).FromPlaces(ctx, []string{"Atlantis"})
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = newBuilder(t, g, nil).FromPlaces(ctx, []string{" "})
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = newBuilder(t, nil, nil).FromPlaces(ctx, []string{"Paris"})
	assert.Error(t, err)
}

func TestFromImages(t *testing.T) {
	ctx := context.Background()
	uploads := photoset.NewUploads()
	uploads.Add("pittsburgh.jpg", exiftest.JPEGWithExif(t, 320, 240, exiftest.Camera().TIFF()))
	uploads.Add("plain.png", exiftest.PNG(t, 16, 16))

	l := new(MockLocator)
	l.On("Locate", ctx).Return(pittsburghHome, nil)

	res, err := newBuilder(t, nil, l).FromImages(ctx, uploads)
	require.NoError(t, err)

	assert.Equal(t, ModeImages, res.Mode)
	require.Len(t, res.Points, 1)
	assert.InDelta(t, 40.4461, res.Points[0].Lat, 1e-4)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, []string{"plain.png"}, res.Unlocated)
	assert.Equal(t, 1, res.Distances.Count)
	assert.NoError(t, res.Failures)
	assert.Equal(t, 2, res.Extraction.Total)
	assert.Equal(t, 1, res.Extraction.Located)
	assert.Equal(t, 1, res.Extraction.NoGPS)

	html := renderResult(t, res)
	assert.Contains(t, html, "pittsburgh.jpg")
	assert.Contains(t, html, "Canon Canon EOS 5D")
	assert.Contains(t, html, "150.0m")
	assert.Contains(t, html, "320 x 240")
	assert.Contains(t, html, "Photos")
}

func TestFromImages_NoGPS(t *testing.T) {
	uploads := photoset.NewUploads()
	uploads.Add("a.png", exiftest.PNG(t, 8, 8))
	uploads.Add("b.jpg", exiftest.JPEG(t, 8, 8))

	_, err := newBuilder(t, nil, nil).FromImages(context.Background(), uploads)
	var noGPS *NoGPSError
	require.True(t, errors.As(err, &noGPS))
	assert.Equal(t, []string{"a.png", "b.jpg"}, noGPS.Files)
	assert.Contains(t, err.Error(), "a.png, b.jpg")
}

func TestFromImages_Empty(t *testing.T) {
	_, err := newBuilder(t, nil, nil).FromImages(context.Background(), photoset.NewUploads())
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestFromImages_OfflineWithoutTilesUsesOnline(t *testing.T) {
	uploads := photoset.NewUploads()
	uploads.Add("pittsburgh.jpg", exiftest.JPEGWithExif(t, 64, 48, exiftest.Camera().TIFF()))

	b := newBuilder(t, nil, nil)
	b.online = func(context.Context) bool { return false }

	res, err := b.FromImages(context.Background(), uploads)
	require.NoError(t, err)
	assert.Contains(t, renderResult(t, res), "tile.openstreetmap.org")
}
