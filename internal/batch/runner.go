package batch

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/bstardust/geomap/internal/adapter/photoset"
	"github.com/bstardust/geomap/internal/exif"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/metadata"
	"github.com/bstardust/geomap/internal/progress"
	"github.com/bstardust/geomap/internal/worker"
)

// Reverser resolves a coordinate to a place label. It returns "" when the
// lookup fails.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) string
}

// Runner extracts every image of a source on a worker pool
type Runner struct {
	ctx       context.Context
	source    photoset.Source
	extractor *metadata.Extractor
	pool      *worker.Pool
	progress  *progress.Reporter
	geocoder  Reverser

	mu       sync.Mutex
	failures *multierror.Error
}

// New creates a new Runner. geocoder may be nil to skip address lookups.
func New(ctx context.Context, source photoset.Source, extractor *metadata.Extractor,
	pool *worker.Pool, progress *progress.Reporter, geocoder Reverser) *Runner {
	return &Runner{
		ctx:       ctx,
		source:    source,
		extractor: extractor,
		pool:      pool,
		progress:  progress,
		geocoder:  geocoder,
	}
}

// Stats returns the extraction counters of the last run
func (r *Runner) Stats() progress.Stats {
	return r.progress.Stats()
}

// Run returns one record per image, in source order. Unreadable images still
// get a record with no coordinate; only cancellation stops the run.
func (r *Runner) Run() ([]*metadata.Record, error) {
	files := r.source.ListFiles()
	records := make([]*metadata.Record, len(files))

	r.progress.Start(len(files))

	for i, file := range files {
		if r.ctx.Err() != nil {
			r.pool.Wait()
			return nil, r.ctx.Err()
		}

		i, file := i, file
		if !r.pool.Submit(r.ctx, func() {
			records[i] = r.processFile(file)
		}) {
			r.pool.Wait()
			return nil, r.ctx.Err()
		}
	}

	r.pool.Wait()
	r.progress.Finish()

	if r.geocoder != nil {
		r.resolveAddresses(records)
	}

	return records, nil
}

// Failures returns the I/O errors collected during the last run
func (r *Runner) Failures() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.failures.ErrorOrNil()
}

// processFile extracts a single image
func (r *Runner) processFile(file *photoset.MediaFile) *metadata.Record {
	reader, err := r.source.OpenFile(file.Path)
	if err != nil {
		r.fail(file.Path, err)
		return metadata.NewRecord(file.Name, exif.Result{Summary: exif.BuildMetadataSummary(exif.Table{})})
	}
	defer reader.Close()

	rec := r.extractor.ExtractFromReader(file.Name, reader)
	if rec.HasCoordinate() {
		r.progress.Located(file.Path)
	} else {
		r.progress.NoGPS(file.Path)
	}
	return rec
}

func (r *Runner) fail(path string, err error) {
	r.progress.Error(path, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = multierror.Append(r.failures, err)
}

// resolveAddresses looks up place labels one at a time; the geocoder
// enforces its own rate limit.
func (r *Runner) resolveAddresses(records []*metadata.Record) {
	for _, rec := range records {
		if r.ctx.Err() != nil {
			return
		}
		if rec == nil || !rec.HasCoordinate() {
			continue
		}
		rec.Address = r.geocoder.Reverse(r.ctx, rec.Coordinate.Lat, rec.Coordinate.Lon)
		if rec.Address == "" {
			logger.Debug("No address for %s", rec.Filename)
		}
	}
}

// Located returns the records that carry a coordinate
func Located(records []*metadata.Record) []*metadata.Record {
	var out []*metadata.Record
	for _, rec := range records {
		if rec != nil && rec.HasCoordinate() {
			out = append(out, rec)
		}
	}
	return out
}

// Unlocated returns the filenames of records without a coordinate
func Unlocated(records []*metadata.Record) []string {
	var out []string
	for _, rec := range records {
		if rec != nil && !rec.HasCoordinate() {
			out = append(out, rec.Filename)
		}
	}
	return out
}
