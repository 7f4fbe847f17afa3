// Package locate detects the approximate position of the machine running
// geomap, used as the home marker and distance origin on rendered maps.
package locate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/logger"
)

// ErrUnavailable is returned when no provider could determine a location
var ErrUnavailable = errors.New("location unavailable")

// Location is a detected position
type Location struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Label  string  `json:"label"`
	Source string  `json:"source"`
}

// Provider determines the current location
type Provider interface {
	Name() string
	Locate(ctx context.Context) (*Location, error)
}

// Locator asks each provider in turn and returns the first answer
type Locator struct {
	providers []Provider
	timeout   time.Duration
}

// New builds the default provider chain: GeoClue when enabled, then the
// public IP geolocation services.
func New(cfg config.LocateConfig) *Locator {
	var providers []Provider
	if cfg.GeoClue {
		providers = append(providers, NewGeoClue(DefaultDesktopID))
	}
	providers = append(providers, DefaultIPProviders(nil)...)
	return NewWithProviders(cfg.Timeout, providers...)
}

// NewWithProviders builds a locator over providers. Each provider gets at
// most timeout to answer.
func NewWithProviders(timeout time.Duration, providers ...Provider) *Locator {
	return &Locator{providers: providers, timeout: timeout}
}

// Locate returns the first location any provider reports
func (l *Locator) Locate(ctx context.Context) (*Location, error) {
	logger.Info("Attempting to detect your location")

	var failures []string
	for _, p := range l.providers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logger.Debug("Trying %s", p.Name())
		loc, err := l.try(ctx, p)
		if err != nil {
			logger.Debug("%s failed: %v", p.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}

		loc.Source = p.Name()
		logger.Info("Location detected via %s: %s (%.4f, %.4f)", p.Name(), loc.Label, loc.Lat, loc.Lon)
		return loc, nil
	}

	logger.Warn("Could not detect location")
	if len(failures) == 0 {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(failures, "; "))
}

func (l *Locator) try(ctx context.Context, p Provider) (*Location, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	loc, err := p.Locate(ctx)
	if err != nil {
		return nil, err
	}
	if loc == nil || !validFix(loc.Lat, loc.Lon) {
		return nil, errors.New("no usable coordinates")
	}
	return loc, nil
}

// validFix rejects out-of-range values and the 0,0 placeholder some
// services return for unknown addresses.
func validFix(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// label joins the non-empty place parts, using "Unknown" for missing ones
func label(parts ...string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			p = "Unknown"
		}
		out[i] = p
	}
	return strings.Join(out, ", ")
}

// ProbeAddr is dialed by Online
var ProbeAddr = "8.8.8.8:53"

// Online reports whether the internet is reachable
func Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", ProbeAddr)
	if err != nil {
		logger.Warn("No internet connection: %v", err)
		return false
	}
	conn.Close()
	logger.Debug("Internet connection detected")
	return true
}
