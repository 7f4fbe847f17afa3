package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	heicexif "github.com/dsoprea/go-heic-exif-extractor"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure"
	pngstructure "github.com/dsoprea/go-png-image-structure"
	tiffstructure "github.com/dsoprea/go-tiff-image-structure"
	riimage "github.com/dsoprea/go-utility/image"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/bstardust/geomap/internal/logger"
)

type mediaParser interface {
	Parse(rs io.ReadSeeker, size int) (riimage.MediaContext, error)
}

func containerParser(format string) mediaParser {
	switch format {
	case "jpeg":
		return jpegstructure.NewJpegMediaParser()
	case "png":
		return pngstructure.NewPngMediaParser()
	case "tiff":
		return tiffstructure.NewTiffMediaParser()
	case "heic":
		return heicexif.NewHeicExifMediaParser()
	default:
		return nil
	}
}

// loadContainer asks the container parser for the raw metadata blob the
// format carries (APP1 segment, eXIf chunk, TIFF header, HEIF item) and walks
// its directories directly.
func loadContainer(img *Image) (map[uint16]Value, error) {
	p := containerParser(img.Format)
	if p == nil {
		return nil, nil
	}

	mc, err := p.Parse(img.reader(), img.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s container: %w", img.Format, err)
	}

	_, blob, err := mc.Exif()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s metadata blob: %w", img.Format, err)
	}

	return decodeTIFFBlob(blob)
}

// decodeTIFFBlob reads IFD0 of a TIFF-structured blob plus the Exif and GPS
// sub-IFDs it points to. IFD0 values win over Exif sub-IFD values.
func decodeTIFFBlob(blob []byte) (map[uint16]Value, error) {
	t, err := tiff.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to decode TIFF structure: %w", err)
	}
	if len(t.Dirs) == 0 {
		return nil, nil
	}

	r := bytes.NewReader(blob)
	main := make(map[uint16]Value)
	var pointers []*tiff.Tag

	for _, tag := range t.Dirs[0].Tags {
		if tag.Id == tagExifOffset || tag.Id == tagGPSInfo {
			pointers = append(pointers, tag)
		}
		if tag.Id == tagGPSInfo {
			continue
		}
		if v := convertTIFFTag(tag); v != nil {
			main[tag.Id] = v
		}
	}

	for _, ptr := range pointers {
		dir, err := readSubDir(r, t.Order, ptr)
		if err != nil {
			logger.Debug("Skipping sub-IFD 0x%04x: %v", ptr.Id, err)
			continue
		}

		if ptr.Id == tagGPSInfo {
			gps := make(EntryList, 0, len(dir.Tags))
			for _, tag := range dir.Tags {
				if v := convertTIFFTag(tag); v != nil {
					gps = append(gps, Entry{ID: tag.Id, Value: v})
				}
			}
			main[tagGPSInfo] = Nested{Dir: gps}
			continue
		}

		for _, tag := range dir.Tags {
			if _, seen := main[tag.Id]; seen {
				continue
			}
			if v := convertTIFFTag(tag); v != nil {
				main[tag.Id] = v
			}
		}
	}

	return main, nil
}

func readSubDir(r *bytes.Reader, order binary.ByteOrder, ptr *tiff.Tag) (*tiff.Dir, error) {
	off, err := ptr.Int64(0)
	if err != nil {
		return nil, fmt.Errorf("bad sub-IFD pointer: %w", err)
	}
	if off <= 0 || off >= r.Size() {
		return nil, fmt.Errorf("sub-IFD offset %d out of range", off)
	}
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	dir, _, err := tiff.DecodeDir(r, order)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sub-IFD: %w", err)
	}
	return dir, nil
}
