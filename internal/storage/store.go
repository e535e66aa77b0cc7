package storage

import (
	"context"
	"errors"
	"fmt"

	"campusfinder/internal/config"
)

var (
	ErrEmptyFile        = errors.New("empty file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
	ErrUnreadableImage  = errors.New("unreadable image")
	ErrTooManyPixels    = errors.New("image dimensions too large")
)

// ObjectStore persists opaque blobs under a key and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL), nil
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// UploadRule names the validation rule an upload broke, if err is a
// rejection rather than a storage failure.
func UploadRule(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrEmptyFile):
		return "required", true
	case errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrTooManyPixels):
		return "max_size", true
	case errors.Is(err, ErrInvalidImageType), errors.Is(err, ErrUnreadableImage):
		return "image", true
	}
	return "", false
}
