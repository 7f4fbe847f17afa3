package exif

import (
	"fmt"

	"github.com/bstardust/geomap/internal/logger"
)

// Entry is one raw GPS tag.
type Entry struct {
	ID    uint16
	Value Value
}

// IDMap is a GPS directory already held as a plain ID-keyed mapping.
type IDMap map[uint16]Value

// ItemSource is a mapping-like GPS directory that only exposes its pairs
// through an accessor.
type ItemSource interface {
	Items() ([]Entry, error)
}

// EntryList is an indexable GPS directory in file order.
type EntryList []Entry

// gpsShapes normalize each raw directory representation to entries, in the
// order they are tried. ok is false when the shape does not match.
var gpsShapes = []func(dir any) (entries []Entry, ok bool, err error){
	fromIDMap,
	fromItemSource,
	fromEntryList,
}

func fromIDMap(dir any) ([]Entry, bool, error) {
	m, ok := dir.(IDMap)
	if !ok {
		return nil, false, nil
	}
	entries := make([]Entry, 0, len(m))
	for id, v := range m {
		entries = append(entries, Entry{ID: id, Value: v})
	}
	return entries, true, nil
}

func fromItemSource(dir any) ([]Entry, bool, error) {
	src, ok := dir.(ItemSource)
	if !ok {
		return nil, false, nil
	}
	entries, err := src.Items()
	return entries, true, err
}

func fromEntryList(dir any) ([]Entry, bool, error) {
	list, ok := dir.(EntryList)
	if !ok {
		return nil, false, nil
	}
	entries := make([]Entry, len(list))
	for i := range list {
		entries[i] = list[i]
	}
	return entries, true, nil
}

// DecodeGPSSubTable resolves the GPS sub-table of t into GPS tag names. The
// second result is false when t has no GPS sub-table or it cannot be read.
func DecodeGPSSubTable(t Table) (gps Table, ok bool) {
	v, found := t[gpsInfoTableName]
	if !found {
		return nil, false
	}
	nested, isNested := v.(Nested)
	if !isNested || nested.Dir == nil {
		logger.Debug("GPSInfo has unexpected type %T", v)
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Debug("GPS sub-table decode panicked: %v", r)
			gps, ok = nil, false
		}
	}()

	for _, shape := range gpsShapes {
		entries, matched, err := shape(nested.Dir)
		if !matched {
			continue
		}
		if err != nil {
			logger.Debug("GPS sub-table unreadable: %v", err)
			return nil, false
		}
		out := make(Table, len(entries))
		for _, e := range entries {
			if e.Value == nil {
				continue
			}
			out[resolveName(gpsTagNames, e.ID)] = e.Value
		}
		return out, true
	}

	logger.Debug("GPS sub-table has unsupported shape %s", fmt.Sprintf("%T", nested.Dir))
	return nil, false
}
