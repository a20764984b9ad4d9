// fonts.go - Caption fonts with custom TTF support and embedded Go fonts as fallback.
package compositor

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Weight selects between the caption and subtitle fonts.
type Weight int

const (
	Regular Weight = iota
	Bold
)

// FontManager holds parsed fonts. Parsed fonts are shared; faces are not
// safe for concurrent use, so each render asks for fresh ones.
type FontManager struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// NewFontManager parses the embedded Go fonts. If customPath names a
// readable TTF/OTF it is used for both weights.
func NewFontManager(customPath string) (*FontManager, error) {
	regularData, boldData := goregular.TTF, gobold.TTF

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", customPath, err)
		}
		regularData, boldData = data, data
	}

	regular, err := opentype.Parse(regularData)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(boldData)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}

	return &FontManager{regular: regular, bold: bold}, nil
}

// Face returns a new face at size px (72 DPI, so points equal pixels).
func (fm *FontManager) Face(w Weight, size float64) (font.Face, error) {
	f := fm.regular
	if w == Bold {
		f = fm.bold
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}
