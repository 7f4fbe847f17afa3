package exif

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/bstardust/geomap/internal/logger"
)

// DefaultPreviewSize is the bounding box edge used when none is configured.
const DefaultPreviewSize = 200

// previewQuality is the JPEG quality of encoded previews.
const previewQuality = 85

// BuildPreview downscales img to fit a maxDim x maxDim box, preserving aspect
// ratio, and returns it as base64 JPEG. Images already inside the box are
// re-encoded at their size. ok is false if the image cannot be decoded.
func BuildPreview(img *Image, maxDim int) (preview string, ok bool) {
	if img == nil || maxDim <= 0 {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("%s: preview panicked: %v", img.Name, r)
			preview, ok = "", false
		}
	}()

	data, err := encodePreview(img, maxDim)
	if err != nil {
		logger.Warn("%s: could not build preview: %v", img.Name, err)
		return "", false
	}
	return base64.StdEncoding.EncodeToString(data), true
}

func encodePreview(img *Image, maxDim int) ([]byte, error) {
	src, err := imaging.Decode(img.reader(), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(src, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
