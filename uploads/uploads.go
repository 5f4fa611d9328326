package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxImageBytes is the upload size cap.
const MaxImageBytes = 8 * 1024 * 1024

var (
	ErrTooLarge          = errors.New("image is too large")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var mimeExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".svg":  true,
}

// extensionFor resolves the file extension from the declared MIME type,
// falling back to the filename extension when the MIME is unrecognized
// but the extension is allow-listed.
func extensionFor(file *multipart.FileHeader) string {
	mimeType := file.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if allowedExtensions[ext] {
		return ext
	}

	return ""
}

// SanitizeName normalizes an uploaded file's base name: lowercase,
// non-alphanumeric runs collapsed to single hyphens, edge hyphens
// trimmed, truncated to 48 chars.
func SanitizeName(value string) string {
	value = strings.ToLower(value)

	var b strings.Builder
	lastHyphen := false
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	name := strings.Trim(b.String(), "-")
	if len(name) > 48 {
		name = name[:48]
	}
	return name
}

func baseDir() string {
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		return dir
	}
	return "./public"
}

// SaveImage validates an uploaded image and writes it under a
// folder-scoped static path, returning the public-relative URL path.
// The write is not transactional with any database mutation: a failed
// store write after a successful upload leaves an orphaned file.
func SaveImage(file *multipart.FileHeader, folder string) (string, error) {
	if file.Size > MaxImageBytes {
		return "", ErrTooLarge
	}

	extension := extensionFor(file)
	if extension == "" {
		return "", ErrUnsupportedFormat
	}

	base := SanitizeName(strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename)))
	if base == "" {
		base = "image"
	}

	filename := fmt.Sprintf("%d-%s-%s%s", time.Now().UnixMilli(), base, uuid.NewString(), extension)

	directory := filepath.Join(baseDir(), "uploads", folder)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(directory, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return "/" + path.Join("uploads", folder, filename), nil
}

// SaveImages stores each file in turn, failing on the first error.
func SaveImages(files []*multipart.FileHeader, folder string) ([]string, error) {
	var saved []string
	for _, file := range files {
		url, err := SaveImage(file, folder)
		if err != nil {
			return nil, err
		}
		saved = append(saved, url)
	}
	return saved, nil
}
