package fileinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectContentType("IMG_0001.JPG"))
	assert.Equal(t, "text/html; charset=utf-8", DetectContentType("map_result.html"))
	assert.Equal(t, "application/octet-stream", DetectContentType("blob.unknownext"))
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.heic", "e.tif", "f.webp"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"a.mov", "b.json", "c", "d.jpg.txt"} {
		assert.False(t, IsImageFile(name), name)
	}
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("clip.MP4"))
	assert.False(t, IsVideoFile("photo.jpg"))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("trip/._IMG_0001.jpg"))
	assert.True(t, IsHidden("__MACOSX/trip/IMG_0001.jpg"))
	assert.False(t, IsHidden("trip/IMG_0001.jpg"))
}
