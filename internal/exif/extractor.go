package exif

import (
	"io"

	"github.com/bstardust/geomap/internal/logger"
)

// Result is everything extracted from one image.
type Result struct {
	Coordinate *Coordinate
	Summary    Summary
	Preview    string
}

// HasCoordinate reports whether a position was found.
func (r Result) HasCoordinate() bool {
	return r.Coordinate != nil
}

// Extractor runs the full pipeline for single images. It holds no per-image
// state and is safe for concurrent use.
type Extractor struct {
	previewSize int
}

// NewExtractor creates an extractor producing previews that fit in a
// previewSize box. A non-positive size disables previews.
func NewExtractor(previewSize int) *Extractor {
	return &Extractor{previewSize: previewSize}
}

// Extract loads the tag table once and derives the coordinate, the summary
// and the preview from it. Failures in one part leave the others intact.
func (e *Extractor) Extract(img *Image) Result {
	if img == nil {
		return emptyResult()
	}

	table := LoadTagTable(img)
	if len(table) == 0 {
		logger.Debug("%s: %v", img.Name, ErrNoTags)
	}

	res := Result{Summary: BuildMetadataSummary(table)}
	if c, ok := ExtractCoordinate(table); ok {
		res.Coordinate = &c
	}
	if e.previewSize > 0 {
		if p, ok := BuildPreview(img, e.previewSize); ok {
			res.Preview = p
		}
	}
	return res
}

// ExtractFile opens path and extracts it. An unopenable file produces an
// all-Unknown result with no coordinate.
func (e *Extractor) ExtractFile(path string) Result {
	img, err := Open(path)
	if err != nil {
		logger.Warn("Could not open image: %v", err)
		return emptyResult()
	}
	return e.Extract(img)
}

// ExtractReader reads r fully and extracts it.
func (e *Extractor) ExtractReader(name string, r io.Reader) Result {
	img, err := Read(name, r)
	if err != nil {
		logger.Warn("Could not open image: %v", err)
		return emptyResult()
	}
	return e.Extract(img)
}

func emptyResult() Result {
	return Result{Summary: BuildMetadataSummary(Table{})}
}
