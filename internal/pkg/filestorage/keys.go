package filestorage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const keyTimestampLayout = "20060102150405"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadRules limits what SaveUpload accepts.
type UploadRules struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// UploadError describes a rejected upload in user-facing terms.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

// CleanName reduces an uploaded filename to a safe base name.
func CleanName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	return base
}

// NewKey builds "<category>/<timestamp>_<name>" for an upload made at now.
func NewKey(category, filename string, now time.Time) string {
	name := now.UTC().Format(keyTimestampLayout) + "_" + CleanName(filename)
	if category == "" {
		return name
	}
	return path.Join(category, name)
}

const maxKeyAttempts = 100

// UniqueKey returns the first NewKey variant that exists reports as free. Later
// variants carry a counter in front of the name.
func UniqueKey(ctx context.Context, exists func(ctx context.Context, key string) (bool, error), category, filename string, now time.Time) (string, error) {
	key := NewKey(category, filename, now)
	for i := 1; i <= maxKeyAttempts; i++ {
		taken, err := exists(ctx, key)
		if err != nil {
			return "", err
		}
		if !taken {
			return key, nil
		}
		key = NewKey(category, fmt.Sprintf("%d_%s", i, CleanName(filename)), now)
	}
	return "", fmt.Errorf("no free key for %q", filename)
}

// ValidKey reports whether key stays inside the storage root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	cleaned := path.Clean(key)
	return cleaned == key && cleaned != "." && !strings.HasPrefix(cleaned, "../") && cleaned != ".."
}

// Extension returns the lower-case extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Check validates an upload header against the rules.
func (r UploadRules) Check(fh *multipart.FileHeader) error {
	if fh == nil || fh.Filename == "" {
		return &UploadError{Message: "No file selected"}
	}
	if r.MaxBytes > 0 && fh.Size > r.MaxBytes {
		return &UploadError{Message: fmt.Sprintf("File is too large (max %d MB)", r.MaxBytes/(1024*1024))}
	}
	if len(r.AllowedExtensions) == 0 {
		return nil
	}
	ext := Extension(fh.Filename)
	for _, allowed := range r.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return &UploadError{Message: "File type not allowed. Allowed: " + strings.Join(r.AllowedExtensions, ", ")}
}
