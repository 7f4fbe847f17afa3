package mapview

import (
	"os"
	"path/filepath"
	"strconv"
)

// TileLayer is the base layer of a map
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MinZoom     int    `json:"min_zoom"`
	MaxZoom     int    `json:"max_zoom"`
	Offline     bool   `json:"offline"`
}

// OnlineTiles is the public OpenStreetMap tile server
var OnlineTiles = TileLayer{
	URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	Attribution: "&copy; OpenStreetMap contributors",
	MinZoom:     0,
	MaxZoom:     19,
}

// OfflineTiles looks for a {z}/{x}/{y}.png tile tree under dir. ok is false
// when dir has no numeric zoom folders.
func OfflineTiles(dir string) (layer TileLayer, ok bool) {
	if dir == "" {
		return TileLayer{}, false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return TileLayer{}, false
	}

	minZoom, maxZoom := -1, -1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		z, err := strconv.Atoi(e.Name())
		if err != nil || z < 0 {
			continue
		}
		if minZoom < 0 || z < minZoom {
			minZoom = z
		}
		if z > maxZoom {
			maxZoom = z
		}
	}
	if minZoom < 0 {
		return TileLayer{}, false
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return TileLayer{}, false
	}
	return TileLayer{
		URL:         "file://" + filepath.ToSlash(abs) + "/{z}/{x}/{y}.png",
		Attribution: "Offline Tiles",
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		Offline:     true,
	}, true
}

// clampZoom keeps zoom inside the layer's range
func (t TileLayer) clampZoom(zoom int) int {
	if zoom < t.MinZoom {
		return t.MinZoom
	}
	if t.MaxZoom > 0 && zoom > t.MaxZoom {
		return t.MaxZoom
	}
	return zoom
}
