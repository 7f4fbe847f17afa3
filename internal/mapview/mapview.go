// Package mapview renders self-contained Leaflet maps as HTML documents.
package mapview

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/bstardust/geomap/internal/geo"
)

// Marker kinds
const (
	KindPin   = "pin"
	KindHome  = "home"
	KindPlace = "place"
	KindPhoto = "photo"
)

// Line colors matching the marker kinds they connect to
const (
	placeLineColor = "#667eea"
	photoLineColor = "#00f2fe"
)

// Options toggles the optional map controls and layers
type Options struct {
	Cluster    bool
	Heatmap    bool
	Measure    bool
	Fullscreen bool
}

type marker struct {
	Lat   float64       `json:"lat"`
	Lon   float64       `json:"lon"`
	Kind  string        `json:"kind"`
	Popup template.HTML `json:"popup"`
	Icon  template.HTML `json:"icon,omitempty"`
}

type line struct {
	From    [2]float64 `json:"from"`
	To      [2]float64 `json:"to"`
	Color   string     `json:"color"`
	Opacity float64    `json:"opacity"`
	Label   string     `json:"label"`
}

// Map accumulates markers and layers and renders them to HTML
type Map struct {
	Title   string
	center  geo.Point
	zoom    int
	tiles   TileLayer
	opts    Options
	group   string
	home    *marker
	markers []marker
	lines   []line
	heat    [][2]float64
}

// New creates an empty map
func New(center geo.Point, zoom int, tiles TileLayer, opts Options) *Map {
	return &Map{
		Title:  "geomap",
		center: center,
		zoom:   tiles.clampZoom(zoom),
		tiles:  tiles,
		opts:   opts,
		group:  "Locations",
	}
}

// SetGroupName names the marker layer in the layer control
func (m *Map) SetGroupName(name string) {
	m.group = name
}

// Len returns the number of markers, excluding the home marker
func (m *Map) Len() int {
	return len(m.markers)
}

// SetHome places the user's location marker
func (m *Map) SetHome(p geo.Point, label string) error {
	popup, err := renderPopup("home", label)
	if err != nil {
		return err
	}
	m.home = &marker{Lat: p.Lat, Lon: p.Lon, Kind: KindHome, Popup: popup}
	return nil
}

// AddPin adds a bare coordinate marker
func (m *Map) AddPin(p geo.Point) error {
	popup, err := renderPopup("place", Place{Title: "Location", Lat: p.Lat, Lon: p.Lon})
	if err != nil {
		return err
	}
	m.add(marker{Lat: p.Lat, Lon: p.Lon, Kind: KindPin, Popup: popup})
	return nil
}

// AddPlace adds a named location marker
func (m *Map) AddPlace(pl Place) error {
	popup, err := renderPopup("place", pl)
	if err != nil {
		return err
	}
	m.add(marker{Lat: pl.Lat, Lon: pl.Lon, Kind: KindPlace, Popup: popup})
	m.link(pl.Lat, pl.Lon, pl.Distance, placeLineColor, 0.7)
	return nil
}

// AddPhoto adds a photo marker, shown as a round thumbnail when the photo
// has a preview.
func (m *Map) AddPhoto(ph Photo) error {
	popup, err := renderPopup("photo", ph)
	if err != nil {
		return err
	}
	mk := marker{Lat: ph.Lat, Lon: ph.Lon, Kind: KindPhoto, Popup: popup}
	if ph.Preview != "" {
		if mk.Icon, err = renderPopup("thumb", ph.PreviewURL()); err != nil {
			return err
		}
	}
	m.add(mk)
	m.link(ph.Lat, ph.Lon, ph.Distance, photoLineColor, 0.6)
	return nil
}

func (m *Map) add(mk marker) {
	m.markers = append(m.markers, mk)
	m.heat = append(m.heat, [2]float64{mk.Lat, mk.Lon})
}

// link draws a line from home to the marker when the distance is known
func (m *Map) link(lat, lon float64, d *Distance, color string, opacity float64) {
	if m.home == nil || d == nil {
		return
	}
	m.lines = append(m.lines, line{
		From:    [2]float64{m.home.Lat, m.home.Lon},
		To:      [2]float64{lat, lon},
		Color:   color,
		Opacity: opacity,
		Label:   fmt.Sprintf("Distance: %.2f km", d.Km),
	})
}

type mapData struct {
	Center  [2]float64   `json:"center"`
	Zoom    int          `json:"zoom"`
	Tiles   TileLayer    `json:"tiles"`
	Group   string       `json:"group"`
	Cluster bool         `json:"cluster"`
	Measure bool         `json:"measure"`
	Full    bool         `json:"fullscreen"`
	Home    *marker      `json:"home"`
	Markers []marker     `json:"markers"`
	Lines   []line       `json:"lines"`
	Heat    [][2]float64 `json:"heat"`
}

//go:embed map.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("map").Parse(pageSource))

// Render writes the map as a standalone HTML page
func (m *Map) Render(w io.Writer) error {
	data := mapData{
		Center:  [2]float64{m.center.Lat, m.center.Lon},
		Zoom:    m.zoom,
		Tiles:   m.tiles,
		Group:   m.group,
		Cluster: m.opts.Cluster,
		Measure: m.opts.Measure,
		Full:    m.opts.Fullscreen,
		Home:    m.home,
		Markers: m.markers,
		Lines:   m.lines,
	}
	if data.Markers == nil {
		data.Markers = []marker{}
	}
	if data.Lines == nil {
		data.Lines = []line{}
	}
	if m.opts.Heatmap {
		data.Heat = m.heat
	}
	if data.Heat == nil {
		data.Heat = [][2]float64{}
	}

	if err := pageTemplate.Execute(w, struct {
		Title string
		Opts  Options
		Data  mapData
	}{m.Title, m.opts, data}); err != nil {
		return fmt.Errorf("failed to render map: %w", err)
	}
	return nil
}
