package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const (
	AvatarSize        = 200
	MaxResourceWidth  = 1600
	MaxResourceHeight = 1200
	// MaxImagePixels bounds the decoded size of an upload.
	MaxImagePixels    = 40_000_000
	jpegQuality       = 85
	contentTypeJPEG   = "image/jpeg"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// StoredImage identifies an uploaded image. Key is what Delete expects.
type StoredImage struct {
	URL string `json:"url"`
	Key string `json:"-"`
}

// Images validates uploads, normalises them to JPEG and hands them to an
// ObjectStore.
type Images struct {
	store    ObjectStore
	maxBytes int64
	now      func() time.Time
}

func NewImages(store ObjectStore, maxBytes int64) *Images {
	return &Images{store: store, maxBytes: maxBytes, now: time.Now}
}

// SaveResourceImage keeps the aspect ratio and caps the longer edge.
func (i *Images) SaveResourceImage(ctx context.Context, fh *multipart.FileHeader) (*StoredImage, error) {
	data, err := i.read(fh)
	if err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() > MaxResourceWidth || b.Dy() > MaxResourceHeight {
		img = imaging.Fit(img, MaxResourceWidth, MaxResourceHeight, imaging.Lanczos)
	}
	return i.put(ctx, "resources", img)
}

// SaveAvatar center-crops to a square thumbnail.
func (i *Images) SaveAvatar(ctx context.Context, fh *multipart.FileHeader) (*StoredImage, error) {
	data, err := i.read(fh)
	if err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)
	return i.put(ctx, "avatars", thumb)
}

// decode reads the header first so oversized images are never allocated.
func decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnreadableImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, ErrTooManyPixels
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrUnreadableImage
	}
	return img, nil
}

func (i *Images) Remove(ctx context.Context, img *StoredImage) error {
	if img == nil {
		return nil
	}
	return i.store.Delete(ctx, img.Key)
}

func (i *Images) put(ctx context.Context, folder string, img image.Image) (*StoredImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	now := i.now()
	key := fmt.Sprintf("%s/%d/%02d/%02d/%s.jpg", folder, now.Year(), now.Month(), now.Day(), uuid.NewString())
	url, err := i.store.Put(ctx, key, buf.Bytes(), contentTypeJPEG)
	if err != nil {
		return nil, err
	}
	return &StoredImage{URL: url, Key: key}, nil
}

// read loads the upload with size and type checks.
func (i *Images) read(fh *multipart.FileHeader) ([]byte, error) {
	if fh == nil || fh.Size == 0 {
		return nil, ErrEmptyFile
	}
	if fh.Size > i.maxBytes {
		return nil, ErrFileTooLarge
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, i.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	// trust the bytes, not the client's header
	contentType := http.DetectContentType(data[:min(len(data), 512)])
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !allowedImageTypes[contentType] {
		return nil, ErrInvalidImageType
	}
	return data, nil
}
