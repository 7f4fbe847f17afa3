package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	paris  = Point{Lat: 48.8566, Lon: 2.3522}
	london = Point{Lat: 51.5074, Lon: -0.1278}
)

func TestDistanceKm(t *testing.T) {
	assert.InDelta(t, 343.5, DistanceKm(paris, london), 1.5)
	assert.InDelta(t, DistanceKm(paris, london), DistanceKm(london, paris), 1e-9)
	assert.Zero(t, DistanceKm(paris, paris))
	assert.InDelta(t, 20015, DistanceKm(Point{0, 0}, Point{0, 180}), 5)
}

func TestCentroid(t *testing.T) {
	c, ok := Centroid([]Point{{0, 0}, {10, 20}})
	assert.True(t, ok)
	assert.Equal(t, Point{5, 10}, c)

	_, ok = Centroid(nil)
	assert.False(t, ok)
}

func TestDriveMinutes(t *testing.T) {
	assert.InDelta(t, 60, DriveMinutes(60, 60), 1e-9)
	assert.InDelta(t, 30, DriveMinutes(50, 100), 1e-9)
	assert.InDelta(t, 120, DriveMinutes(120, 0), 1e-9)
}

func TestDistanceStats(t *testing.T) {
	s := DistanceStats(paris, []Point{paris, london})
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 343.5, s.TotalKm, 1.5)
	assert.InDelta(t, s.TotalKm/2, s.AverageKm, 1e-9)

	assert.Equal(t, Stats{}, DistanceStats(paris, nil))
}
