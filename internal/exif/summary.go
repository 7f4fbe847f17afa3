package exif

import (
	"fmt"
	"math"
	"strconv"
)

// Unknown is the placeholder for any summary field that is missing or
// unreadable.
const Unknown = "Unknown"

// Summary is the human-facing metadata of one image. Every field is
// independently either a value or Unknown.
type Summary struct {
	CameraMake  string `json:"camera_make"`
	CameraModel string `json:"camera_model"`
	CaptureTime string `json:"capture_time"`
	Width       string `json:"width"`
	Height      string `json:"height"`
	Altitude    string `json:"altitude"`
}

// BuildMetadataSummary reads camera, timestamp, dimension and altitude fields
// from t. Missing fields become Unknown; it never fails.
func BuildMetadataSummary(t Table) Summary {
	return Summary{
		CameraMake:  textField(t, "Make"),
		CameraModel: textField(t, "Model"),
		CaptureTime: textField(t, "DateTime", "DateTimeOriginal"),
		Width:       dimensionField(t, "ExifImageWidth", "ImageWidth"),
		Height:      dimensionField(t, "ExifImageHeight", "ImageLength"),
		Altitude:    altitudeField(t),
	}
}

// textField returns the first readable field among names.
func textField(t Table, names ...string) string {
	for _, name := range names {
		if s, ok := toText(t[name]); ok {
			return s
		}
	}
	return Unknown
}

func dimensionField(t Table, names ...string) string {
	for _, name := range names {
		v, ok := t[name]
		if !ok {
			continue
		}
		if f, err := toFloat(v); err == nil && f > 0 {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return Unknown
}

// altitudeField formats GPSAltitude as stored. GPSAltitudeRef is not applied.
func altitudeField(t Table) string {
	gps, ok := DecodeGPSSubTable(t)
	if !ok {
		return Unknown
	}
	v, ok := gps["GPSAltitude"]
	if !ok {
		return Unknown
	}
	alt, err := toFloat(v)
	if err != nil || math.IsNaN(alt) || math.IsInf(alt, 0) {
		return Unknown
	}
	return FormatAltitude(alt)
}

// FormatAltitude renders meters with one decimal, halves rounded away from
// zero (75.25 -> "75.3m").
func FormatAltitude(meters float64) string {
	return fmt.Sprintf("%.1fm", math.Round(meters*10)/10)
}
