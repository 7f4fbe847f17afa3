// Package geocode resolves place names to coordinates and coordinates to
// addresses through a Nominatim server, with a persistent response cache.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/retry"
	"github.com/muesli/gominatim"
)

// ErrNotFound is returned when a query yields no place
var ErrNotFound = errors.New("place not found")

// Place is a geocoder match
type Place struct {
	Name  string  `json:"display_name"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Class string  `json:"class,omitempty"`
	Type  string  `json:"type,omitempty"`
}

// Backend performs uncached, unthrottled lookups
type Backend interface {
	Search(q string, limit int) ([]Place, error)
	Reverse(lat, lon float64) (string, error)
}

// Client throttles and caches lookups against a Backend
type Client struct {
	backend     Backend
	cache       *Cache
	minInterval time.Duration
	timeout     time.Duration
	retry       retry.Config

	mu   sync.Mutex
	last time.Time
}

// New creates a client for the configured Nominatim server. cache may be nil.
func New(cfg config.GeocodeConfig, cache *Cache) *Client {
	return NewWithBackend(NewNominatim(cfg.Server), cfg, cache)
}

// NewWithBackend creates a client over an arbitrary backend
func NewWithBackend(backend Backend, cfg config.GeocodeConfig, cache *Cache) *Client {
	return &Client{
		backend:     backend,
		cache:       cache,
		minInterval: cfg.MinInterval,
		timeout:     cfg.Timeout,
		retry:       retry.ForHTTP(cfg.Retries),
	}
}

// Search returns up to limit places matching q
func (c *Client) Search(ctx context.Context, q string, limit int) ([]Place, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrNotFound
	}
	if limit < 1 {
		limit = 1
	}

	key := fmt.Sprintf("search:%s:%d", strings.ToLower(q), limit)
	var places []Place
	if c.cached(ctx, key, &places) {
		return places, nil
	}

	err := retry.Do(ctx, fmt.Sprintf("geocode %q", q), func() error {
		return c.call(ctx, func() (err error) {
			places, err = c.backend.Search(q, limit)
			return err
		})
	}, c.retry)
	if err != nil {
		return nil, err
	}
	if len(places) > limit {
		places = places[:limit]
	}

	c.store(ctx, key, places)
	return places, nil
}

// Lookup returns the best match for q
func (c *Client) Lookup(ctx context.Context, q string) (Place, error) {
	places, err := c.Search(ctx, q, 1)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	return places[0], nil
}

// Reverse returns a human-readable address for the position, or "" when the
// service fails or times out.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) string {
	key := fmt.Sprintf("reverse:%.6f,%.6f", lat, lon)
	var address string
	if c.cached(ctx, key, &address) {
		return address
	}

	err := retry.Do(ctx, "reverse geocode", func() error {
		return c.call(ctx, func() (err error) {
			address, err = c.backend.Reverse(lat, lon)
			return err
		})
	}, c.retry)
	if err != nil {
		logger.Warn("Reverse geocoding %.6f,%.6f failed: %v", lat, lon, err)
		return ""
	}

	c.store(ctx, key, address)
	return address
}

func (c *Client) cached(ctx context.Context, key string, v any) bool {
	if c.cache == nil {
		return false
	}
	found, err := c.cache.Get(ctx, key, v)
	if err != nil {
		logger.Warn("Geocode cache read failed: %v", err)
		return false
	}
	if found {
		logger.Debug("Geocode cache hit for %s", key)
	}
	return found
}

func (c *Client) store(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, key, v); err != nil {
		logger.Warn("Geocode cache write failed: %v", err)
	}
}

// call waits for the throttle slot and runs fn with the client timeout. The
// backend cannot be interrupted, so a timed-out fn keeps running in the
// background and its result is discarded.
func (c *Client) call(ctx context.Context, fn func() error) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}

	if c.timeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("geocoder did not answer within %s", c.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := c.minInterval - time.Since(c.last); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.last = time.Now()
	return nil
}

var (
	serverOnce sync.Once
	serverURL  string
)

// Nominatim queries a Nominatim server through gominatim. The library keeps
// the server URL in package state, so the first configured server wins for
// the lifetime of the process.
type Nominatim struct{}

// NewNominatim selects server for all Nominatim backends
func NewNominatim(server string) *Nominatim {
	serverOnce.Do(func() {
		serverURL = strings.TrimRight(server, "/")
		gominatim.SetServer(serverURL)
	})
	if server != "" && strings.TrimRight(server, "/") != serverURL {
		logger.Warn("Ignoring geocode server %s, already using %s", server, serverURL)
	}
	return &Nominatim{}
}

// Search implements Backend
func (n *Nominatim) Search(q string, limit int) (places []Place, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nominatim search panicked: %v", r)
		}
	}()

	query := gominatim.SearchQuery{
		Q:     q,
		Limit: limit,
	}
	res, err := query.Get()
	if err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}

	places = make([]Place, 0, len(res))
	for _, r := range res {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		places = append(places, Place{
			Name:  r.DisplayName,
			Lat:   lat,
			Lon:   lon,
			Class: r.Class,
			Type:  r.Type,
		})
	}
	return places, nil
}

// Reverse implements Backend
func (n *Nominatim) Reverse(lat, lon float64) (address string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nominatim reverse panicked: %v", r)
		}
	}()

	query := gominatim.ReverseQuery{
		Lat: strconv.FormatFloat(lat, 'f', 6, 64),
		Lon: strconv.FormatFloat(lon, 'f', 6, 64),
	}
	res, err := query.Get()
	if err != nil {
		return "", fmt.Errorf("nominatim reverse: %w", err)
	}
	return res.DisplayName, nil
}
