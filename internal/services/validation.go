package services

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	MinUploadBytes int64 = 100
	MaxUploadBytes int64 = 10 * 1024 * 1024
)

var allowedMIME = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/tiff":      ".tiff",
	"image/bmp":       ".bmp",
}

// NormalizeMIME lowercases and strips parameters ("image/png; q=1").
func NormalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

func IsAllowedMIME(mime string) bool {
	_, ok := allowedMIME[NormalizeMIME(mime)]
	return ok
}

// ValidateFile checks the MIME allow-list and the inclusive size bounds.
func ValidateFile(mime string, size int64) error {
	if !IsAllowedMIME(mime) {
		return fmt.Errorf("%w: unsupported file type %q", ErrInvalidFile, mime)
	}
	if size < MinUploadBytes {
		return fmt.Errorf("%w: file is too small (%d bytes, minimum %d)", ErrInvalidFile, size, MinUploadBytes)
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds the 10MB limit (%d bytes)", ErrInvalidFile, size)
	}
	return nil
}

// StorageExtension prefers the original file's extension and falls back to
// the canonical one for the MIME type.
func StorageExtension(filename, mime string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if ext != "" && len(ext) <= 6 && !strings.ContainsAny(ext, `/\ `) {
		return ext
	}
	return allowedMIME[NormalizeMIME(mime)]
}

func isPDFMIME(mime string) bool { return NormalizeMIME(mime) == "application/pdf" }

func isImageMIME(mime string) bool { return strings.HasPrefix(NormalizeMIME(mime), "image/") }
