package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// Overlay colors for bubble outlines.
var (
	FilledColor   = color.RGBA{0, 200, 0, 255}
	UnfilledColor = color.RGBA{220, 0, 0, 255}
	QuadColor     = color.RGBA{0, 90, 255, 255}
)

// Box is a rectangle to outline on an overlay.
type Box struct {
	Rect  image.Rectangle
	Color color.RGBA
}

// DrawBoxes returns a copy of img with each box outlined thickness pixels wide.
func DrawBoxes(img image.Image, boxes []Box, thickness int) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	if thickness < 1 {
		thickness = 1
	}
	for _, b := range boxes {
		r := b.Rect.Intersect(bounds)
		if r.Empty() {
			continue
		}
		for i := 0; i < thickness; i++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				result.SetRGBA(x, r.Min.Y+i, b.Color)
				result.SetRGBA(x, r.Max.Y-1-i, b.Color)
			}
			for y := r.Min.Y; y < r.Max.Y; y++ {
				result.SetRGBA(r.Min.X+i, y, b.Color)
				result.SetRGBA(r.Max.X-1-i, y, b.Color)
			}
		}
	}
	return result
}

// DrawPolyline draws the closed polygon through pts onto dst.
func DrawPolyline(dst *image.RGBA, pts []image.Point, c color.RGBA) {
	for i := range pts {
		drawLine(dst, pts[i], pts[(i+1)%len(pts)], c)
	}
}

// drawLine rasterizes a segment with Bresenham's algorithm.
func drawLine(dst *image.RGBA, a, b image.Point, c color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	for {
		if (image.Point{X: a.X, Y: a.Y}).In(dst.Bounds()) {
			dst.SetRGBA(a.X, a.Y, c)
		}
		if a == b {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			a.X += sx
		}
		if e2 <= dx {
			err += dx
			a.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
