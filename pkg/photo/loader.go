// Package photo loads a user-selected image into a bitmap the compositor can
// draw, plus a small preview for the upload control.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	// imaging registers jpeg/png/gif/bmp/tiff; webp is extra.
	_ "golang.org/x/image/webp"
)

const (
	// MaxBytes is the largest accepted upload (5 MiB).
	MaxBytes int64 = 5 * 1024 * 1024

	// PreviewSize is the edge of the square preview thumbnail.
	PreviewSize = 128
)

var (
	// ErrOversizedInput reports a file above the upload ceiling. The
	// previously active photo is left untouched.
	ErrOversizedInput = errors.New("image too large")

	// ErrDecodeFailure reports bytes that are not a decodable image.
	ErrDecodeFailure = errors.New("image could not be decoded")
)

// Photo is a decoded user image.
type Photo struct {
	Name    string
	Size    int64
	Format  string
	Bitmap  image.Image
	Preview *image.NRGBA
}

// Loader validates and decodes uploads.
type Loader struct {
	maxBytes int64
	log      *zap.Logger
}

// NewLoader returns a loader with the given ceiling. maxBytes <= 0 means
// MaxBytes. A nil logger is replaced by a no-op one.
func NewLoader(maxBytes int64, log *zap.Logger) *Loader {
	if maxBytes <= 0 {
		maxBytes = MaxBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{maxBytes: maxBytes, log: log}
}

// MaxBytes returns the configured ceiling.
func (l *Loader) MaxBytes() int64 { return l.maxBytes }

// CheckSize rejects a reported size above the ceiling without reading
// anything.
func (l *Loader) CheckSize(size int64) error {
	if size > l.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrOversizedInput, size, l.maxBytes)
	}
	return nil
}

// Load reads at most the ceiling from r and decodes it. size is the size the
// caller was told about (file picker, multipart header); -1 if unknown.
func (l *Loader) Load(name string, r io.Reader, size int64) (*Photo, error) {
	if err := l.CheckSize(size); err != nil {
		l.log.Info("upload rejected", zap.String("name", name), zap.Int64("size", size))
		return nil, err
	}

	// The reported size can lie; never buffer more than ceiling+1.
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := l.CheckSize(int64(len(data))); err != nil {
		l.log.Info("upload rejected", zap.String("name", name), zap.Int("read", len(data)))
		return nil, err
	}

	return l.Decode(name, data)
}

// Decode turns raw bytes into a Photo. The size ceiling is not checked here.
func (l *Loader) Decode(name string, data []byte) (*Photo, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, name, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, name, err)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s: empty image", ErrDecodeFailure, name)
	}

	l.log.Debug("photo decoded",
		zap.String("name", name),
		zap.String("format", format),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()))

	return &Photo{
		Name:    name,
		Size:    int64(len(data)),
		Format:  format,
		Bitmap:  img,
		Preview: imaging.Fill(img, PreviewSize, PreviewSize, imaging.Center, imaging.Lanczos),
	}, nil
}

var defaultLoader = NewLoader(MaxBytes, nil)

// Load uses the default 5 MiB loader.
func Load(name string, r io.Reader, size int64) (*Photo, error) {
	return defaultLoader.Load(name, r, size)
}
