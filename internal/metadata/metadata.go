package metadata

import (
	"fmt"
	"io"

	"github.com/bstardust/geomap/internal/exif"
)

// Record is the per-image output: the coordinate (null when absent), the
// summary fields and the encoded preview.
type Record struct {
	Filename    string           `json:"filename"`
	Coordinate  *exif.Coordinate `json:"coordinate"`
	CameraMake  string           `json:"camera_make"`
	CameraModel string           `json:"camera_model"`
	CaptureTime string           `json:"capture_time"`
	Width       string           `json:"width"`
	Height      string           `json:"height"`
	Altitude    string           `json:"altitude"`
	Preview     string           `json:"preview,omitempty"`
	Address     string           `json:"address,omitempty"`
}

// HasCoordinate reports whether the image is plottable.
func (r *Record) HasCoordinate() bool {
	return r.Coordinate != nil
}

// Camera joins make and model for display, skipping unknown parts.
func (r *Record) Camera() string {
	switch {
	case r.CameraMake == exif.Unknown && r.CameraModel == exif.Unknown:
		return exif.Unknown
	case r.CameraMake == exif.Unknown:
		return r.CameraModel
	case r.CameraModel == exif.Unknown:
		return r.CameraMake
	default:
		return r.CameraMake + " " + r.CameraModel
	}
}

// Dimensions renders "W x H", or Unknown if either side is unknown.
func (r *Record) Dimensions() string {
	if r.Width == exif.Unknown || r.Height == exif.Unknown {
		return exif.Unknown
	}
	return fmt.Sprintf("%s x %s", r.Width, r.Height)
}

// ToMap flattens the record into string pairs, omitting unknown fields.
func (r *Record) ToMap() map[string]string {
	result := map[string]string{"filename": r.Filename}

	if r.Coordinate != nil {
		result["latitude"] = fmt.Sprintf("%f", r.Coordinate.Lat)
		result["longitude"] = fmt.Sprintf("%f", r.Coordinate.Lon)
	}
	for key, value := range map[string]string{
		"camera-make":  r.CameraMake,
		"camera-model": r.CameraModel,
		"capture-time": r.CaptureTime,
		"width":        r.Width,
		"height":       r.Height,
		"altitude":     r.Altitude,
	} {
		if value != "" && value != exif.Unknown {
			result[key] = value
		}
	}
	if r.Address != "" {
		result["address"] = r.Address
	}

	return result
}

// NewRecord builds a record from an extraction result.
func NewRecord(filename string, res exif.Result) *Record {
	return &Record{
		Filename:    filename,
		Coordinate:  res.Coordinate,
		CameraMake:  res.Summary.CameraMake,
		CameraModel: res.Summary.CameraModel,
		CaptureTime: res.Summary.CaptureTime,
		Width:       res.Summary.Width,
		Height:      res.Summary.Height,
		Altitude:    res.Summary.Altitude,
		Preview:     res.Preview,
	}
}

// Extractor extracts records from files
type Extractor struct {
	core *exif.Extractor
}

// NewExtractor creates a new metadata extractor
func NewExtractor(previewSize int) *Extractor {
	return &Extractor{
		core: exif.NewExtractor(previewSize),
	}
}

// ExtractFromReader extracts a record from image bytes read from r
func (e *Extractor) ExtractFromReader(name string, r io.Reader) *Record {
	return NewRecord(name, e.core.ExtractReader(name, r))
}
