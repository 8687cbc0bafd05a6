package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/yigit/tuitiontrack/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates a new LocalStorage rooted at basePath, creating the
// directory when missing.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

func (ls *LocalStorage) fullPath(key string) (string, error) {
	if !ValidKey(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(key)), nil
}

// Save writes data to <base>/<category>/<timestamp>_<name>.
func (ls *LocalStorage) Save(ctx context.Context, category, filename string, data io.Reader) (string, error) {
	key, err := UniqueKey(ctx, ls.Exists, category, filename, ls.now())
	if err != nil {
		return "", err
	}
	dstPath, err := ls.fullPath(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, data); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().Str("filename", filename).Str("key", key).Msg("File saved successfully")
	return key, nil
}

// Open returns the stored file.
func (ls *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := ls.fullPath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Delete removes a file. A missing file counts as deleted.
func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	p, err := ls.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", p).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", p).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", p).Msg("File deleted successfully")
	return nil
}

// Exists reports whether the key is present on disk.
func (ls *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	p, err := ls.fullPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SaveUpload validates a multipart upload and saves it through store.
func SaveUpload(ctx context.Context, store FileStorage, rules UploadRules, fh *multipart.FileHeader, category string) (string, error) {
	if err := rules.Check(fh); err != nil {
		return "", err
	}

	file, err := fh.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fh.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	return store.Save(ctx, category, fh.Filename, file)
}
