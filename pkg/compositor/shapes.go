// shapes.go - Anti-aliased circle masks and the rectangular border stroke.
package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// circleSegments keeps the polygon within ~0.02px of a true circle at r=200.
const circleSegments = 256

// circle appends a closed circle to z. Circles wound in opposite directions
// cancel, which is how ring cuts its hole.
func circle(z *vector.Rasterizer, cx, cy, r float64, clockwise bool) {
	dir := 1.0
	if !clockwise {
		dir = -1.0
	}
	z.MoveTo(float32(cx+r), float32(cy))
	for i := 1; i < circleSegments; i++ {
		a := dir * 2 * math.Pi * float64(i) / circleSegments
		z.LineTo(float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a)))
	}
	z.ClosePath()
}

// discMask returns a canvas-sized alpha mask of a filled circle.
func discMask(size image.Point, cx, cy, r float64) *image.Alpha {
	z := vector.NewRasterizer(size.X, size.Y)
	circle(z, cx, cy, r, true)

	mask := image.NewAlpha(image.Rectangle{Max: size})
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// ringMask returns a canvas-sized alpha mask of a circle outline of the given
// stroke width, centred on radius r.
func ringMask(size image.Point, cx, cy, r, width float64) *image.Alpha {
	z := vector.NewRasterizer(size.X, size.Y)
	circle(z, cx, cy, r+width/2, true)
	circle(z, cx, cy, r-width/2, false)

	mask := image.NewAlpha(image.Rectangle{Max: size})
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// strokeRect strokes the rectangle r with a line of the given width centred
// on its edges, like a canvas strokeRect.
func strokeRect(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	half := width / 2
	outer := r.Inset(-half)
	inner := r.Inset(width - half)
	src := image.NewUniform(c)

	for _, band := range []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y), // top
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y), // bottom
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y), // left
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y), // right
	} {
		draw.Draw(dst, band, src, image.Point{}, draw.Src)
	}
}
