// Package compositor draws the "I'm in the Book!" profile frame: a coloured
// background, a white inset border, the user's photo cropped into a circle
// and three lines of caption text.
//
// Drawing is layered: background -> border -> clipped photo -> circle
// outline -> captions. Every call starts from a fresh canvas.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/peicooks/framegen/pkg/frame"
)

// Layout constants, in canvas pixels.
const (
	CanvasSize   = 800
	BorderInset  = 40
	BorderWidth  = 20
	CircleX      = CanvasSize / 2
	CircleY      = CanvasSize/2 - 50
	CircleRadius = 200
	OutlineWidth = 10
)

// Fixed caption copy.
const (
	Title    = "PEI Cooks at Home"
	Subtitle = "PEI Good Eats Home Cooks with Parry Aftab"
)

// caption is one centred line of text.
type caption struct {
	weight   Weight
	size     float64
	baseline int
}

var (
	topCaption      = caption{weight: Bold, size: 48, baseline: 120}
	titleCaption    = caption{weight: Bold, size: 56, baseline: CanvasSize - 80}
	subtitleCaption = caption{weight: Regular, size: 24, baseline: CanvasSize - 40}
)

// ErrNoPhoto is returned when Render is called without a bitmap.
var ErrNoPhoto = errors.New("no photo to compose")

var white = color.RGBA{255, 255, 255, 255}

// Compositor renders frames. It is safe for concurrent use.
type Compositor struct {
	fonts *FontManager

	masksOnce sync.Once
	clip      *image.Alpha
	outline   *image.Alpha
}

// New creates a compositor. fontPath may be empty to use the embedded fonts.
func New(fontPath string) (*Compositor, error) {
	fm, err := NewFontManager(fontPath)
	if err != nil {
		return nil, err
	}
	return &Compositor{fonts: fm}, nil
}

func (c *Compositor) masks() (clip, outline *image.Alpha) {
	c.masksOnce.Do(func() {
		size := image.Pt(CanvasSize, CanvasSize)
		c.clip = discMask(size, CircleX, CircleY, CircleRadius)
		c.outline = ringMask(size, CircleX, CircleY, CircleRadius, OutlineWidth)
	})
	return c.clip, c.outline
}

// CircleBounds is the square the photo is cover-fitted into.
func CircleBounds() image.Rectangle {
	return image.Rect(CircleX-CircleRadius, CircleY-CircleRadius, CircleX+CircleRadius, CircleY+CircleRadius)
}

// Render composes photo into style. The result depends only on its inputs.
func (c *Compositor) Render(photo image.Image, style frame.Style) (*image.RGBA, error) {
	if photo == nil || photo.Bounds().Empty() {
		return nil, ErrNoPhoto
	}

	img := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	clip, outline := c.masks()

	// Background.
	draw.Draw(img, img.Bounds(), image.NewUniform(style.Color()), image.Point{}, draw.Src)

	// Outer frame.
	inset := image.Rect(BorderInset, BorderInset, CanvasSize-BorderInset, CanvasSize-BorderInset)
	strokeRect(img, inset, BorderWidth, white)

	// Photo, cover-fitted to the circle box and clipped to the disc.
	box := CircleBounds()
	cover := imaging.Fill(photo, box.Dx(), box.Dy(), imaging.Center, imaging.Lanczos)
	draw.DrawMask(img, box, cover, image.Point{}, clip, box.Min, draw.Over)

	// Circle outline.
	draw.DrawMask(img, img.Bounds(), image.NewUniform(white), image.Point{}, outline, image.Point{}, draw.Over)

	// Captions.
	for _, line := range []struct {
		text string
		pos  caption
	}{
		{style.DisplayName, topCaption},
		{Title, titleCaption},
		{Subtitle, subtitleCaption},
	} {
		if err := c.drawCentered(img, line.text, line.pos); err != nil {
			return nil, err
		}
	}

	return img, nil
}

// drawCentered draws text horizontally centred on the canvas at the
// caption's baseline.
func (c *Compositor) drawCentered(img *image.RGBA, text string, pos caption) error {
	face, err := c.fonts.Face(pos.weight, pos.size)
	if err != nil {
		return err
	}
	defer face.Close()

	advance := font.MeasureString(face, text)
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(white),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(CanvasSize/2) - advance/2,
			Y: fixed.I(pos.baseline),
		},
	}
	drawer.DrawString(text)
	return nil
}

// RenderAll renders photo in every style concurrently, preserving order.
func (c *Compositor) RenderAll(ctx context.Context, photo image.Image, styles []frame.Style) ([]*image.RGBA, error) {
	out := make([]*image.RGBA, len(styles))
	g, ctx := errgroup.WithContext(ctx)

	for i, s := range styles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := c.Render(photo, s)
			if err != nil {
				return fmt.Errorf("render %s: %w", s.ID, err)
			}
			out[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
