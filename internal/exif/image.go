package exif

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is an opened image resource. The encoded bytes are held in memory so
// every tag strategy and the preview builder can read from the start.
type Image struct {
	Name   string
	Format string
	data   []byte
}

// Open reads the image at path.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), data)
}

// Read consumes r fully and opens the result as an image.
func Read(name string, r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", name, err)
	}
	return FromBytes(name, data)
}

// FromBytes opens an in-memory image. The format is sniffed from content,
// never from the name.
func FromBytes(name string, data []byte) (*Image, error) {
	format := sniffFormat(data)
	if format == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNotImage)
	}
	return &Image{Name: name, Format: format, data: data}, nil
}

// Size returns the encoded size in bytes.
func (img *Image) Size() int {
	return len(img.data)
}

func (img *Image) reader() *bytes.Reader {
	return bytes.NewReader(img.data)
}

// sniffFormat returns the registered decoder name for data, or a container
// name for formats that carry metadata but have no pixel decoder here.
func sniffFormat(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return format
	}
	if isHEIF(data) {
		return "heic"
	}
	return ""
}

func isHEIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1", "avif":
		return true
	}
	return false
}
