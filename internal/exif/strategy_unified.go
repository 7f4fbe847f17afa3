package exif

import (
	"errors"
	"fmt"

	dexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/bstardust/geomap/internal/logger"
)

var (
	rootIfdPath = exifcommon.IfdStandardIfdIdentity.UnindexedString()
	exifIfdPath = exifcommon.IfdExifStandardIfdIdentity.UnindexedString()
	gpsIfdPath  = exifcommon.IfdGpsInfoStandardIfdIdentity.UnindexedString()
)

// loadUnified locates the EXIF block anywhere in the file and walks every IFD
// through go-exif's generic accessor. The GPS IFD is handed on unconverted.
func loadUnified(img *Image) (map[uint16]Value, error) {
	raw, err := dexif.SearchAndExtractExif(img.data)
	if err != nil {
		if errors.Is(err, dexif.ErrNoExif) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to locate EXIF block: %w", err)
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("failed to build IFD mapping: %w", err)
	}
	ti := dexif.NewTagIndex()

	_, index, err := dexif.Collect(im, ti, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to collect EXIF IFDs: %w", err)
	}

	main := make(map[uint16]Value)
	var gps unifiedGPS

	visitor := func(ifd *dexif.Ifd, ite *dexif.IfdTagEntry) error {
		switch ite.IfdPath() {
		case gpsIfdPath:
			gps = append(gps, ite)
		case rootIfdPath, exifIfdPath:
			// IFD1 shares the root path; the primary image's tags come first.
			if _, seen := main[ite.TagId()]; seen {
				return nil
			}
			if v := entryValue(ite); v != nil {
				main[ite.TagId()] = v
			}
		}
		return nil
	}
	if err := index.RootIfd.EnumerateTagsRecursively(visitor); err != nil {
		return nil, fmt.Errorf("failed to enumerate EXIF tags: %w", err)
	}

	if len(gps) > 0 {
		main[tagGPSInfo] = Nested{Dir: gps}
	}
	return main, nil
}

// unifiedGPS exposes the GPS IFD entries through Items, decoding values only
// when they are asked for.
type unifiedGPS []*dexif.IfdTagEntry

func (g unifiedGPS) Items() ([]Entry, error) {
	entries := make([]Entry, 0, len(g))
	for _, ite := range g {
		if v := entryValue(ite); v != nil {
			entries = append(entries, Entry{ID: ite.TagId(), Value: v})
		}
	}
	return entries, nil
}

func entryValue(ite *dexif.IfdTagEntry) Value {
	raw, err := ite.Value()
	if err != nil {
		logger.Debug("Could not decode tag %s (0x%04x): %v", ite.TagName(), ite.TagId(), err)
		return nil
	}
	return convertDsopreaValue(raw)
}

// convertDsopreaValue maps go-exif's decoded value types onto Value.
func convertDsopreaValue(raw interface{}) Value {
	switch v := raw.(type) {
	case string:
		return Text(v)
	case []uint8:
		vs := make([]Value, len(v))
		for i, n := range v {
			vs[i] = Number(n)
		}
		return nonEmpty(vs)
	case []uint16:
		vs := make([]Value, len(v))
		for i, n := range v {
			vs[i] = Number(n)
		}
		return nonEmpty(vs)
	case []uint32:
		vs := make([]Value, len(v))
		for i, n := range v {
			vs[i] = Number(n)
		}
		return nonEmpty(vs)
	case []int32:
		vs := make([]Value, len(v))
		for i, n := range v {
			vs[i] = Number(n)
		}
		return nonEmpty(vs)
	case []float32:
		vs := make([]Value, len(v))
		for i, n := range v {
			vs[i] = Number(n)
		}
		return nonEmpty(vs)
	case []float64:
		vs := make([]Value, len(v))
		for i, n := range v {
			vs[i] = Number(n)
		}
		return nonEmpty(vs)
	case []exifcommon.Rational:
		vs := make([]Value, len(v))
		for i, r := range v {
			vs[i] = Rational{Num: int64(r.Numerator), Den: int64(r.Denominator)}
		}
		return nonEmpty(vs)
	case []exifcommon.SignedRational:
		vs := make([]Value, len(v))
		for i, r := range v {
			vs[i] = Rational{Num: int64(r.Numerator), Den: int64(r.Denominator)}
		}
		return nonEmpty(vs)
	case fmt.Stringer:
		return Text(v.String())
	default:
		return nil
	}
}

func nonEmpty(vs []Value) Value {
	if len(vs) == 0 {
		return nil
	}
	return collapse(vs)
}
