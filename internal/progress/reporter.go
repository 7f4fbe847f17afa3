// internal/progress/reporter.go
package progress

import (
	"sync"
	"time"

	"github.com/bstardust/geomap/internal/logger"
)

// Reporter tracks and reports extraction progress
type Reporter struct {
	mu             sync.Mutex
	total          int
	located        int
	noGPS          int
	errors         int
	startTime      time.Time
	lastUpdateTime time.Time
	updateInterval time.Duration
}

// Stats is a snapshot of the counters.
type Stats struct {
	Total    int
	Located  int
	NoGPS    int
	Errors   int
	Duration time.Duration
}

// New creates a new progress reporter
func New() *Reporter {
	return &Reporter{
		updateInterval: 2 * time.Second,
	}
}

// Start resets the counters for a run over total images
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.located = 0
	r.noGPS = 0
	r.errors = 0
	r.startTime = time.Now()
	r.lastUpdateTime = r.startTime

	logger.Info("Extracting metadata from %d images", total)
}

// Located marks an image that yielded a coordinate
func (r *Reporter) Located(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.located++
	r.updateProgress()
}

// NoGPS marks an image without a usable coordinate
func (r *Reporter) NoGPS(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Debug("No GPS data in %s", path)
	r.noGPS++
	r.updateProgress()
}

// Error marks an image that could not be read at all
func (r *Reporter) Error(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Warn("Failed to process %s: %v", path, err)
	r.errors++
	r.updateProgress()
}

// Stats returns the current counters
func (r *Reporter) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Total:    r.total,
		Located:  r.located,
		NoGPS:    r.noGPS,
		Errors:   r.errors,
		Duration: time.Since(r.startTime),
	}
}

// Finish logs the final summary
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	duration := time.Since(r.startTime)

	logger.Info("Extraction complete: %d/%d images located, %d without GPS, %d errors in %s",
		r.located, r.total, r.noGPS, r.errors, duration.Round(time.Millisecond))
}

// updateProgress logs a progress line at most once per update interval
func (r *Reporter) updateProgress() {
	now := time.Now()
	if now.Sub(r.lastUpdateTime) < r.updateInterval {
		return
	}

	r.lastUpdateTime = now
	duration := now.Sub(r.startTime)
	processed := r.located + r.noGPS + r.errors

	if processed == 0 || r.total == 0 {
		return
	}

	percentage := float64(processed) / float64(r.total) * 100

	timePerFile := duration / time.Duration(processed)
	eta := (timePerFile * time.Duration(r.total-processed)).Round(time.Second)

	logger.Info("Progress: %.1f%% (%d/%d, %d located, %d without GPS, %d errors) ETA: %s",
		percentage, processed, r.total, r.located, r.noGPS, r.errors, eta)
}
