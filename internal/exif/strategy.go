package exif

import (
	"fmt"
	"runtime/debug"

	"github.com/bstardust/geomap/internal/logger"
)

// Table is a tag table keyed by human-readable tag name. IDs missing from the
// dictionary are keyed by their decimal identifier.
type Table map[string]Value

// strategy produces a raw ID-keyed directory for the main namespace. A GPS
// sub-directory, when found, is stored under tagGPSInfo as a Nested value.
type strategy struct {
	name string
	load func(img *Image) (map[uint16]Value, error)
}

// strategies are tried in order until one yields a non-empty directory.
var strategies = []strategy{
	{name: "legacy", load: loadLegacy},
	{name: "unified", load: loadUnified},
	{name: "container", load: loadContainer},
}

// LoadTagTable returns the image's tag table, or an empty table when no
// strategy finds anything. It never fails.
func LoadTagTable(img *Image) Table {
	if img == nil {
		return Table{}
	}

	for _, s := range strategies {
		raw, err := runStrategy(s, img)
		if err != nil {
			logger.Debug("%s: %s tag strategy failed: %v", img.Name, s.name, err)
			continue
		}
		if len(raw) == 0 {
			logger.Debug("%s: %s tag strategy found no tags", img.Name, s.name)
			continue
		}
		logger.Debug("%s: loaded %d tags with %s strategy", img.Name, len(raw), s.name)
		return resolveTable(raw)
	}

	return Table{}
}

// LoadTagTableFile opens path and loads its tag table. Open failures are
// logged and yield an empty table.
func LoadTagTableFile(path string) Table {
	img, err := Open(path)
	if err != nil {
		logger.Warn("Could not open image: %v", err)
		return Table{}
	}
	return LoadTagTable(img)
}

// runStrategy converts panics inside third-party decoders into errors.
func runStrategy(s strategy, img *Image) (raw map[uint16]Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("%s strategy panic: %v\n%s", s.name, r, debug.Stack())
			raw, err = nil, fmt.Errorf("%s strategy panicked: %v", s.name, r)
		}
	}()
	return s.load(img)
}
