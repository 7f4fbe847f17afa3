package exif

import (
	"fmt"

	"github.com/bstardust/geomap/internal/logger"
)

// Coordinate is a decimal-degree position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Valid reports whether the coordinate is inside WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// ExtractCoordinate reads the GPS position from t. All four of latitude,
// latitude ref, longitude and longitude ref must be present and convertible;
// anything less yields ok == false.
func ExtractCoordinate(t Table) (Coordinate, bool) {
	gps, ok := DecodeGPSSubTable(t)
	if !ok {
		return Coordinate{}, false
	}

	latRef, ok := refField(gps, "GPSLatitudeRef")
	if !ok {
		return Coordinate{}, false
	}
	lonRef, ok := refField(gps, "GPSLongitudeRef")
	if !ok {
		return Coordinate{}, false
	}
	latDMS, ok := dmsComponents(gps["GPSLatitude"])
	if !ok {
		return Coordinate{}, false
	}
	lonDMS, ok := dmsComponents(gps["GPSLongitude"])
	if !ok {
		return Coordinate{}, false
	}

	lat, err := SexagesimalToDecimal(latDMS, latRef)
	if err != nil {
		logger.Debug("Bad GPS latitude: %v", err)
		return Coordinate{}, false
	}
	lon, err := SexagesimalToDecimal(lonDMS, lonRef)
	if err != nil {
		logger.Debug("Bad GPS longitude: %v", err)
		return Coordinate{}, false
	}

	c := Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		logger.Debug("GPS coordinate %s out of range", c)
		return Coordinate{}, false
	}
	return c, true
}

func refField(gps Table, name string) (string, bool) {
	s, ok := toText(gps[name])
	if !ok {
		return "", false
	}
	return normalizeRef(s), true
}
