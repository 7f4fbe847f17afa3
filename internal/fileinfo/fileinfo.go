package fileinfo

import (
	"mime"
	"path/filepath"
	"strings"
)

// Common MIME types for the files geomap reads and writes
var commonMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".html": "text/html; charset=utf-8",
	".json": "application/json",
	".zip":  "application/zip",
}

// DetectContentType determines the content type of a file based on its extension
func DetectContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	if mimeType, ok := commonMimeTypes[ext]; ok {
		return mimeType
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}

	return "application/octet-stream"
}

// IsImageFile checks if a file is an image based on its extension
func IsImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".tiff", ".tif", ".bmp", ".heic", ".heif":
		return true
	default:
		return false
	}
}

// IsVideoFile checks if a file is a video based on its extension
func IsVideoFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4", ".mov", ".avi", ".wmv", ".mkv", ".webm", ".flv", ".m4v", ".3gp":
		return true
	default:
		return false
	}
}

// IsHidden reports dotfiles and macOS resource forks, which share image
// extensions but are not images.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(path, "__MACOSX/")
}
