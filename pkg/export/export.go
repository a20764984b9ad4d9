// Package export turns a rendered frame into a downloadable PNG or a share
// request, falling back to copying a link when native sharing is missing.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	"go.uber.org/zap"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultFilename   = "pei-cooks-frame.png"
	DefaultShareTitle = "I'm in the Book!"
	DefaultShareText  = "Check out my PEI Cooks at Home profile picture!"
	DefaultShareURL   = "https://peicooksathome.ca/frame-generator"

	ContentTypePNG = "image/png"
)

// Asset is an encoded file ready to be saved or attached.
type Asset struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Options configures an Exporter.
type Options struct {
	Filename   string
	ShareURL   string
	ShareTitle string
	ShareText  string
}

// Exporter encodes frames and performs share requests.
type Exporter struct {
	opts Options
	log  *zap.Logger
}

// New returns an exporter, filling empty options with the defaults.
func New(opts Options, log *zap.Logger) *Exporter {
	if opts.Filename == "" {
		opts.Filename = DefaultFilename
	}
	if opts.ShareURL == "" {
		opts.ShareURL = DefaultShareURL
	}
	if opts.ShareTitle == "" {
		opts.ShareTitle = DefaultShareTitle
	}
	if opts.ShareText == "" {
		opts.ShareText = DefaultShareText
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{opts: opts, log: log}
}

// Options returns the effective options.
func (e *Exporter) Options() Options { return e.opts }

// EncodePNG encodes img as PNG. Equal images give equal bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Download returns the frame as a PNG asset under the fixed filename.
func (e *Exporter) Download(img image.Image) (Asset, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return Asset{}, err
	}
	e.log.Debug("frame encoded", zap.String("filename", e.opts.Filename), zap.Int("bytes", len(data)))
	return Asset{Filename: e.opts.Filename, ContentType: ContentTypePNG, Data: data}, nil
}

// WriteFile saves an asset to path.
func WriteFile(path string, a Asset) error {
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
