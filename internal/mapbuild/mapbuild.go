// Package mapbuild turns user input (coordinates, place names or photos)
// into rendered maps.
package mapbuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/bstardust/geomap/internal/adapter/photoset"
	"github.com/bstardust/geomap/internal/batch"
	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/exif"
	"github.com/bstardust/geomap/internal/geo"
	"github.com/bstardust/geomap/internal/geocode"
	"github.com/bstardust/geomap/internal/locate"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/mapview"
	"github.com/bstardust/geomap/internal/metadata"
	"github.com/bstardust/geomap/internal/progress"
	"github.com/bstardust/geomap/internal/worker"
)

// Mode selects how map input is interpreted
type Mode string

// Supported modes
const (
	ModeCoords Mode = "coords"
	ModePlaces Mode = "places"
	ModeImages Mode = "images"
)

// ParseMode accepts the mode names along with the legacy form values
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coords", "offline":
		return ModeCoords, nil
	case "places", "online":
		return ModePlaces, nil
	case "images", "image":
		return ModeImages, nil
	}
	return "", fmt.Errorf("unknown map mode %q", s)
}

// DefaultCenter is the initial view when no better center is known
var DefaultCenter = geo.Point{Lat: 28.0, Lon: 3.0}

const (
	defaultZoom = 5
	homeZoom    = 6
	photoZoom   = 12
)

// ErrNoPoints is returned when the input yields no coordinate at all
var ErrNoPoints = errors.New("no locations provided")

// NoGPSError is returned in image mode when none of the images carries a
// usable GPS position.
type NoGPSError struct {
	Files []string
}

func (e *NoGPSError) Error() string {
	return fmt.Sprintf("no GPS data found in %d image(s): %s", len(e.Files), strings.Join(e.Files, ", "))
}

// Geocoder resolves place names and addresses
type Geocoder interface {
	Lookup(ctx context.Context, q string) (geocode.Place, error)
	Reverse(ctx context.Context, lat, lon float64) string
}

// Locator detects the user's location
type Locator interface {
	Locate(ctx context.Context) (*locate.Location, error)
}

// Result is a built map along with what went into it
type Result struct {
	Mode      Mode
	Map       *mapview.Map
	Points    []geo.Point
	Home      *locate.Location
	Distances geo.Stats
	Records   []*metadata.Record
	Unlocated []string
	// Extraction counts the images read in images mode
	Extraction progress.Stats
	// Failures collects per-item problems that did not stop the build
	Failures error
}

// Render writes the map HTML
func (r *Result) Render(w io.Writer) error {
	return r.Map.Render(w)
}

// Builder builds maps
type Builder struct {
	geocoder    Geocoder
	locator     Locator
	online      func(context.Context) bool
	opts        mapview.Options
	tilesDir    string
	speedKmh    float64
	concurrency int
	previewSize int
	reverse     bool
}

// New creates a builder. geocoder and locator may be nil, disabling place
// mode and distance lines respectively.
func New(cfg *config.Config, geocoder Geocoder, locator Locator) *Builder {
	return &Builder{
		geocoder: geocoder,
		locator:  locator,
		online:   locate.Online,
		opts: mapview.Options{
			Cluster:    cfg.Render.Cluster,
			Heatmap:    cfg.Render.Heatmap,
			Measure:    cfg.Render.Measure,
			Fullscreen: cfg.Render.Fullscreen,
		},
		tilesDir:    cfg.Render.TilesDir,
		speedKmh:    cfg.Render.SpeedKmh,
		concurrency: cfg.Extract.Concurrency,
		previewSize: cfg.Extract.PreviewSize,
		reverse:     cfg.Extract.Reverse,
	}
}

// WithOptions returns a copy of b using opts for the map controls
func (b *Builder) WithOptions(opts mapview.Options) *Builder {
	c := *b
	c.opts = opts
	return &c
}

// Options returns the map controls b renders with
func (b *Builder) Options() mapview.Options {
	return b.opts
}

// FromCoordinates plots bare coordinates on the default view, using the
// offline tile tree when one is installed.
func (b *Builder) FromCoordinates(ctx context.Context, points []geo.Point) (*Result, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	tiles, ok := mapview.OfflineTiles(b.tilesDir)
	if !ok {
		tiles = mapview.OnlineTiles
	}

	m := mapview.New(DefaultCenter, defaultZoom, tiles, b.opts)
	for _, p := range points {
		if err := m.AddPin(p); err != nil {
			return nil, err
		}
	}

	logger.Info("Built map with %d coordinate(s)", len(points))
	return &Result{Mode: ModeCoords, Map: m, Points: points}, nil
}

// FromPlaces geocodes names and plots them, with distances from the user's
// location when it can be detected. Names that cannot be resolved are
// reported in Result.Failures.
func (b *Builder) FromPlaces(ctx context.Context, names []string) (*Result, error) {
	if b.geocoder == nil {
		return nil, errors.New("place mode needs a geocoder")
	}

	var failures *multierror.Error
	var places []geocode.Place
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		place, err := b.geocoder.Lookup(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Could not geocode %q: %v", name, err)
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", name, err))
			continue
		}
		places = append(places, place)
	}
	if len(places) == 0 {
		if err := failures.ErrorOrNil(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPoints, err)
		}
		return nil, ErrNoPoints
	}

	home := b.locateUser(ctx)
	center, zoom := DefaultCenter, defaultZoom
	if home != nil {
		center, zoom = geo.Point{Lat: home.Lat, Lon: home.Lon}, homeZoom
	}

	m := mapview.New(center, zoom, mapview.OnlineTiles, b.opts)
	if err := b.setHome(m, home); err != nil {
		return nil, err
	}

	res := &Result{Mode: ModePlaces, Map: m, Home: home}
	for i, place := range places {
		p := geo.Point{Lat: place.Lat, Lon: place.Lon}
		res.Points = append(res.Points, p)

		err := m.AddPlace(mapview.Place{
			Title:    fmt.Sprintf("Location #%d", i+1),
			Lat:      p.Lat,
			Lon:      p.Lon,
			Distance: b.distance(home, p),
		})
		if err != nil {
			return nil, err
		}
	}

	res.Distances = b.stats(home, res.Points)
	res.Failures = failures.ErrorOrNil()
	logger.Info("Built map with %d place(s)", len(places))
	return res, nil
}

// FromImages extracts every image of src and plots the geotagged ones
// around their centroid.
func (b *Builder) FromImages(ctx context.Context, src photoset.Source) (*Result, error) {
	var reverser batch.Reverser
	if b.reverse && b.geocoder != nil {
		reverser = b.geocoder
	}

	runner := batch.New(ctx, src, metadata.NewExtractor(b.previewSize),
		worker.NewPool(b.concurrency), progress.New(), reverser)
	records, err := runner.Run()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoPoints
	}

	located := batch.Located(records)
	unlocated := batch.Unlocated(records)
	if len(located) == 0 {
		return nil, &NoGPSError{Files: unlocated}
	}

	points := make([]geo.Point, len(located))
	for i, r := range located {
		points[i] = geo.Point{Lat: r.Coordinate.Lat, Lon: r.Coordinate.Lon}
	}
	center, _ := geo.Centroid(points)

	tiles := mapview.OnlineTiles
	if !b.online(ctx) {
		if offline, ok := mapview.OfflineTiles(b.tilesDir); ok {
			tiles = offline
		}
	}

	home := b.locateUser(ctx)
	m := mapview.New(center, photoZoom, tiles, b.opts)
	m.SetGroupName("Photos")
	if err := b.setHome(m, home); err != nil {
		return nil, err
	}

	for i, r := range located {
		if err := m.AddPhoto(photoMarker(r, b.distance(home, points[i]))); err != nil {
			return nil, err
		}
	}

	logger.Info("Built map with %d of %d image(s) located", len(located), len(records))
	return &Result{
		Mode:       ModeImages,
		Map:        m,
		Points:     points,
		Home:       home,
		Distances:  b.stats(home, points),
		Records:    records,
		Unlocated:  unlocated,
		Extraction: runner.Stats(),
		Failures:   runner.Failures(),
	}, nil
}

func (b *Builder) locateUser(ctx context.Context) *locate.Location {
	if b.locator == nil {
		return nil
	}
	home, err := b.locator.Locate(ctx)
	if err != nil {
		logger.Warn("Continuing without your location: %v", err)
		return nil
	}
	return home
}

func (b *Builder) setHome(m *mapview.Map, home *locate.Location) error {
	if home == nil {
		return nil
	}
	return m.SetHome(geo.Point{Lat: home.Lat, Lon: home.Lon}, home.Label)
}

func (b *Builder) distance(home *locate.Location, p geo.Point) *mapview.Distance {
	if home == nil {
		return nil
	}
	km := geo.DistanceKm(geo.Point{Lat: home.Lat, Lon: home.Lon}, p)
	return mapview.NewDistance(km, geo.DriveMinutes(km, b.speedKmh))
}

func (b *Builder) stats(home *locate.Location, points []geo.Point) geo.Stats {
	if home == nil {
		return geo.Stats{}
	}
	return geo.DistanceStats(geo.Point{Lat: home.Lat, Lon: home.Lon}, points)
}

// photoMarker converts a record for display, dropping unknown fields
func photoMarker(r *metadata.Record, d *mapview.Distance) mapview.Photo {
	return mapview.Photo{
		Filename:    r.Filename,
		Lat:         r.Coordinate.Lat,
		Lon:         r.Coordinate.Lon,
		Preview:     r.Preview,
		Address:     r.Address,
		Distance:    d,
		Camera:      known(r.Camera()),
		CaptureTime: known(r.CaptureTime),
		Dimensions:  known(r.Dimensions()),
		Altitude:    known(r.Altitude),
	}
}

func known(s string) string {
	if s == exif.Unknown {
		return ""
	}
	return s
}

// ParseCoordinates pairs up latitude and longitude strings. Pairs with an
// empty side are skipped.
func ParseCoordinates(lats, lons []string) ([]geo.Point, error) {
	n := len(lats)
	if len(lons) < n {
		n = len(lons)
	}

	var points []geo.Point
	for i := 0; i < n; i++ {
		latStr, lonStr := strings.TrimSpace(lats[i]), strings.TrimSpace(lons[i])
		if latStr == "" || lonStr == "" {
			continue
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q", latStr)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q", lonStr)
		}
		if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
			return nil, fmt.Errorf("coordinate %s, %s is not a finite number", latStr, lonStr)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("coordinate %s, %s out of range", latStr, lonStr)
		}
		points = append(points, geo.Point{Lat: lat, Lon: lon})
	}
	return points, nil
}

// ParsePair parses "lat,lon"
func ParsePair(s string) (geo.Point, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("expected lat,lon but got %q", s)
	}
	points, err := ParseCoordinates([]string{lat}, []string{lon})
	if err != nil {
		return geo.Point{}, err
	}
	if len(points) == 0 {
		return geo.Point{}, fmt.Errorf("expected lat,lon but got %q", s)
	}
	return points[0], nil
}
