// Package geo holds the small amount of spherical geometry the maps need.
package geo

import (
	"math"
)

// earthRadiusKm is the mean Earth radius
const earthRadiusKm = 6371.0088

// DefaultSpeedKmh is the average road speed used for drive-time estimates
const DefaultSpeedKmh = 60.0

// Point is a latitude/longitude pair in decimal degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm returns the great-circle distance between a and b using the
// haversine formula.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid returns the arithmetic mean of points. ok is false for no points.
func Centroid(points []Point) (c Point, ok bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	for _, p := range points {
		c.Lat += p.Lat
		c.Lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: c.Lat / n, Lon: c.Lon / n}, true
}

// DriveMinutes estimates travel time over km at speedKmh. A non-positive
// speed falls back to DefaultSpeedKmh.
func DriveMinutes(km, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return km / speedKmh * 60
}

// Stats summarizes the distances from an origin to a set of points
type Stats struct {
	Count     int
	TotalKm   float64
	AverageKm float64
}

// DistanceStats measures every point from origin
func DistanceStats(origin Point, points []Point) Stats {
	s := Stats{Count: len(points)}
	for _, p := range points {
		s.TotalKm += DistanceKm(origin, p)
	}
	if s.Count > 0 {
		s.AverageKm = s.TotalKm / float64(s.Count)
	}
	return s
}
