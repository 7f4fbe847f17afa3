package exif

import (
	"strings"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/bstardust/geomap/internal/logger"
)

// loadLegacy decodes the primary EXIF block with goexif. goexif resolves tags
// to its own field names, so tags are re-keyed by ID here and GPS fields are
// split back out into their own namespace.
func loadLegacy(img *Image) (map[uint16]Value, error) {
	x, err := goexif.Decode(img.reader())
	if err != nil {
		if x == nil || goexif.IsCriticalError(err) {
			return nil, err
		}
		logger.Debug("%s: partial EXIF decode: %v", img.Name, err)
	}

	w := &legacyWalker{
		main: make(map[uint16]Value),
		gps:  make(IDMap),
	}
	if err := x.Walk(w); err != nil {
		return nil, err
	}

	if len(w.gps) > 0 {
		w.main[tagGPSInfo] = Nested{Dir: w.gps}
	}
	return w.main, nil
}

type legacyWalker struct {
	main map[uint16]Value
	gps  IDMap
}

func (w *legacyWalker) Walk(name goexif.FieldName, tag *tiff.Tag) error {
	n := string(name)
	switch {
	case name == goexif.GPSInfoIFDPointer || name == goexif.InteroperabilityIndex:
		return nil
	case strings.HasPrefix(n, "GPS"):
		if v := convertTIFFTag(tag); v != nil {
			w.gps[tag.Id] = v
		}
	default:
		if v := convertTIFFTag(tag); v != nil {
			w.main[tag.Id] = v
		}
	}
	return nil
}

// convertTIFFTag converts a goexif TIFF tag into a Value, or nil when the tag
// cannot be read.
func convertTIFFTag(tag *tiff.Tag) Value {
	n := int(tag.Count)
	if n == 0 {
		return nil
	}

	switch tag.Format() {
	case tiff.IntVal:
		vs := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Int64(i)
			if err != nil {
				return nil
			}
			vs = append(vs, Number(v))
		}
		return collapse(vs)
	case tiff.RatVal:
		vs := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return nil
			}
			vs = append(vs, Rational{Num: num, Den: den})
		}
		return collapse(vs)
	case tiff.FloatVal:
		vs := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Float(i)
			if err != nil {
				return nil
			}
			vs = append(vs, Number(v))
		}
		return collapse(vs)
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return nil
		}
		return Text(s)
	case tiff.UndefVal:
		return Bytes(append([]byte(nil), tag.Val...))
	default:
		return nil
	}
}
