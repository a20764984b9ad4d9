// Package frame holds the fixed catalog of decorative frame styles.
package frame

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Style is one entry of the frame catalog. Styles are compiled in and never
// mutated.
type Style struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`  // drawn as the top caption
	Background  string `json:"color"` // "#rrggbb"
}

// Color returns the parsed background color.
func (s Style) Color() color.RGBA {
	c, err := ParseHex(s.Background)
	if err != nil {
		// Catalog colors are checked by tests.
		return color.RGBA{255, 255, 255, 255}
	}
	return c
}

var catalog = []Style{
	{ID: "frame1", DisplayName: "I'm in the Book!", Background: "#C41230"},
	{ID: "frame2", DisplayName: "PEI Good Eats", Background: "#2E8B8B"},
	{ID: "frame3", DisplayName: "Proud Home Cook", Background: "#D4A03A"},
}

// All returns the catalog in display order. The slice is a copy.
func All() []Style {
	out := make([]Style, len(catalog))
	copy(out, catalog)
	return out
}

// Default returns the style selected before the user picks one.
func Default() Style {
	return catalog[0]
}

// Lookup finds a style by ID.
func Lookup(id string) (Style, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// ParseHex converts "#rrggbb" to an opaque color.RGBA.
func ParseHex(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected 6-char hex", s)
	}

	rv, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid red channel in %q: %w", s, err)
	}
	gv, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid green channel in %q: %w", s, err)
	}
	bv, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid blue channel in %q: %w", s, err)
	}

	return color.RGBA{R: uint8(rv), G: uint8(gv), B: uint8(bv), A: 255}, nil
}
