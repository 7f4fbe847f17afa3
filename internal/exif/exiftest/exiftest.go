// Package exiftest builds images with synthetic EXIF blocks for tests.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

var le = binary.LittleEndian

const (
	tagExifOffset = 0x8769
	tagGPSInfo    = 0x8825
)

// Entry is one IFD entry with its value bytes already encoded.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// ASCII is a NUL-terminated string entry.
func ASCII(tag uint16, s string) Entry {
	d := append([]byte(s), 0)
	return Entry{Tag: tag, Type: 2, Count: uint32(len(d)), Data: d}
}

// Byte is a BYTE entry.
func Byte(tag uint16, vals ...byte) Entry {
	return Entry{Tag: tag, Type: 1, Count: uint32(len(vals)), Data: append([]byte(nil), vals...)}
}

// Long is a single LONG entry.
func Long(tag uint16, v uint32) Entry {
	d := make([]byte, 4)
	le.PutUint32(d, v)
	return Entry{Tag: tag, Type: 4, Count: 1, Data: d}
}

// Rational is a RATIONAL entry holding one value per pair.
func Rational(tag uint16, pairs ...[2]uint32) Entry {
	d := make([]byte, 8*len(pairs))
	for i, p := range pairs {
		le.PutUint32(d[8*i:], p[0])
		le.PutUint32(d[8*i+4:], p[1])
	}
	return Entry{Tag: tag, Type: 5, Count: uint32(len(pairs)), Data: d}
}

// encodeIFD lays out one directory starting at offset start, with values
// larger than four bytes placed right after it.
func encodeIFD(start uint32, entries []Entry) []byte {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tag < sorted[j].Tag })

	dataOff := start + 2 + 12*uint32(len(sorted)) + 4
	var head, tail bytes.Buffer
	binary.Write(&head, le, uint16(len(sorted)))
	for _, e := range sorted {
		binary.Write(&head, le, e.Tag)
		binary.Write(&head, le, e.Type)
		binary.Write(&head, le, e.Count)
		if len(e.Data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.Data)
			head.Write(inline)
			continue
		}
		binary.Write(&head, le, dataOff+uint32(tail.Len()))
		tail.Write(e.Data)
		if tail.Len()%2 == 1 {
			tail.WriteByte(0)
		}
	}
	binary.Write(&head, le, uint32(0))
	return append(head.Bytes(), tail.Bytes()...)
}

// Fixture describes the tags of a synthetic EXIF block. Zero fields are
// omitted.
type Fixture struct {
	Make     string
	Model    string
	DateTime string
	Width    uint32
	Height   uint32
	Extra    []Entry
	GPS      []Entry
}

// TIFF builds a little-endian TIFF stream: IFD0, then the Exif IFD, then the
// GPS IFD.
func (f Fixture) TIFF() []byte {
	var ifd0, exifIFD []Entry
	if f.Make != "" {
		ifd0 = append(ifd0, ASCII(0x010F, f.Make))
	}
	if f.Model != "" {
		ifd0 = append(ifd0, ASCII(0x0110, f.Model))
	}
	if f.DateTime != "" {
		ifd0 = append(ifd0, ASCII(0x0132, f.DateTime))
	}
	ifd0 = append(ifd0, f.Extra...)
	if f.Width > 0 {
		exifIFD = append(exifIFD, Long(0xA002, f.Width))
	}
	if f.Height > 0 {
		exifIFD = append(exifIFD, Long(0xA003, f.Height))
	}

	hasExif := len(exifIFD) > 0
	hasGPS := len(f.GPS) > 0
	if hasExif {
		ifd0 = append(ifd0, Long(tagExifOffset, 0))
	}
	if hasGPS {
		ifd0 = append(ifd0, Long(tagGPSInfo, 0))
	}

	ifd0Off := uint32(8)
	exifOff := ifd0Off + uint32(len(encodeIFD(0, ifd0)))
	gpsOff := exifOff
	if hasExif {
		gpsOff += uint32(len(encodeIFD(0, exifIFD)))
	}
	for i := range ifd0 {
		switch ifd0[i].Tag {
		case tagExifOffset:
			ifd0[i] = Long(tagExifOffset, exifOff)
		case tagGPSInfo:
			ifd0[i] = Long(tagGPSInfo, gpsOff)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II*\x00")
	binary.Write(&buf, le, ifd0Off)
	buf.Write(encodeIFD(ifd0Off, ifd0))
	if hasExif {
		buf.Write(encodeIFD(exifOff, exifIFD))
	}
	if hasGPS {
		buf.Write(encodeIFD(gpsOff, f.GPS))
	}
	return buf.Bytes()
}

// DMS is a degrees/minutes/seconds triple of rationals.
type DMS [3][2]uint32

// GPS builds GPS IFD entries for a position and altitude given as a
// rational.
func GPS(latRef string, lat DMS, lonRef string, lon DMS, alt [2]uint32) []Entry {
	return []Entry{
		Byte(0x0000, 2, 2, 0, 0),
		ASCII(0x0001, latRef),
		Rational(0x0002, lat[0], lat[1], lat[2]),
		ASCII(0x0003, lonRef),
		Rational(0x0004, lon[0], lon[1], lon[2]),
		Byte(0x0005, 0),
		Rational(0x0006, alt),
	}
}

// Pittsburgh is 40°26'46"N 79°58'56"W at 150.0 m.
func Pittsburgh() []Entry {
	return GPS(
		"N", DMS{{40, 1}, {26, 1}, {46, 1}},
		"W", DMS{{79, 1}, {58, 1}, {56, 1}},
		[2]uint32{1500, 10},
	)
}

// Camera is a complete fixture for a 320x240 photo taken in Pittsburgh.
func Camera() Fixture {
	return Fixture{
		Make:     "Canon",
		Model:    "Canon EOS 5D",
		DateTime: "2023:06:01 12:30:45",
		Width:    320,
		Height:   240,
		GPS:      Pittsburgh(),
	}
}

// Picture is a deterministic gradient.
func Picture(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

// JPEG encodes a w x h gradient without metadata.
func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Picture(w, h), &jpeg.Options{Quality: 90}); err != nil {
		tb.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// PNG encodes a w x h gradient without metadata.
func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Picture(w, h)); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEGWithExif encodes a w x h gradient and inserts tiffData as an APP1
// EXIF segment right after SOI.
func JPEGWithExif(tb testing.TB, w, h int, tiffData []byte) []byte {
	tb.Helper()
	base := JPEG(tb, w, h)
	payload := append([]byte("Exif\x00\x00"), tiffData...)
	segLen := len(payload) + 2
	if segLen >= 0xFFFF {
		tb.Fatalf("EXIF payload too large: %d bytes", segLen)
	}

	out := []byte{0xFF, 0xD8, 0xFF, 0xE1, byte(segLen >> 8), byte(segLen)}
	out = append(out, payload...)
	return append(out, base[2:]...)
}

// PNGWithExif encodes a w x h gradient and inserts tiffData as an eXIf chunk
// right after IHDR.
func PNGWithExif(tb testing.TB, w, h int, tiffData []byte) []byte {
	tb.Helper()
	base := PNG(tb, w, h)
	// signature (8) + IHDR length, type, 13 data bytes and CRC
	const ihdrEnd = 8 + 4 + 4 + 13 + 4

	chunk := make([]byte, 4, 12+len(tiffData))
	binary.BigEndian.PutUint32(chunk, uint32(len(tiffData)))
	chunk = append(chunk, "eXIf"...)
	chunk = append(chunk, tiffData...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := append([]byte{}, base[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, base[ihdrEnd:]...)
}

// WriteFile writes data to name inside a fresh temp dir and returns the path.
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write fixture: %v", err)
	}
	return path
}
