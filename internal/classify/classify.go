// Package classify decides which located bubbles are filled in.
package classify

import (
	"image"
	"math"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/geometry"
	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/model"
)

// IsFilled reports whether a fill ratio exceeds the threshold. The comparison
// is strict: a ratio equal to the threshold is unfilled.
func IsFilled(ratio, threshold float64) bool {
	return ratio > threshold
}

// FillRatio returns the fraction of b's region that is ink on binary.
//
// The region is the bounding box for bubbles without a contour. For contour
// bubbles it is the filled contour polygon minus a band along the outline
// that is inset times the bubble's radius wide, so the printed ring does not
// count as a mark. A region with no pixels has ratio 0.
func FillRatio(binary *image.Gray, b model.Bubble, inset float64) float64 {
	r := b.Bounds.Intersect(binary.Bounds())
	if r.Empty() {
		return 0
	}
	if len(b.Contour) < 3 {
		return float64(imaging.CountNonZero(binary, r)) / float64(r.Dx()*r.Dy())
	}

	region := interior(b, r, inset)
	if len(region) == 0 {
		return 0
	}
	ink := 0
	for _, p := range region {
		if binary.GrayAt(p.X, p.Y).Y != 0 {
			ink++
		}
	}
	return float64(ink) / float64(len(region))
}

// interior returns the pixels of r enclosed by b's contour that lie at least
// inset times the equivalent radius away from every contour point. When the
// band swallows the whole polygon the full polygon is returned.
func interior(b model.Bubble, r image.Rectangle, inset float64) []image.Point {
	onContour := make(map[image.Point]bool, len(b.Contour))
	for _, p := range b.Contour {
		onContour[p] = true
	}
	poly := geometry.FromImagePoints(b.Contour)

	var inside []image.Point
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := image.Pt(x, y)
			if onContour[p] || geometry.PointInPolygon(geometry.Pt(float64(x), float64(y)), poly) {
				inside = append(inside, p)
			}
		}
	}
	if inset <= 0 || len(inside) == 0 {
		return inside
	}

	band := inset * math.Sqrt(geometry.Area(poly)/math.Pi)
	minDist2 := band * band
	core := make([]image.Point, 0, len(inside))
	for _, p := range inside {
		if nearestDist2(p, b.Contour) >= minDist2 {
			core = append(core, p)
		}
	}
	if len(core) == 0 {
		return inside
	}
	return core
}

// nearestDist2 returns the squared distance from p to the closest of pts.
func nearestDist2(p image.Point, pts []image.Point) float64 {
	best := math.Inf(1)
	for _, q := range pts {
		dx, dy := float64(p.X-q.X), float64(p.Y-q.Y)
		if d := dx*dx + dy*dy; d < best {
			best = d
		}
	}
	return best
}

// Classify returns a copy of bubbles with FillRatio and Filled set from the
// ink on binary.
func Classify(binary *image.Gray, bubbles []model.Bubble, cfg config.Classify) []model.Bubble {
	out := make([]model.Bubble, len(bubbles))
	for i, b := range bubbles {
		b.FillRatio = FillRatio(binary, b, cfg.RingInset)
		b.Filled = IsFilled(b.FillRatio, cfg.FillThreshold)
		out[i] = b
	}
	return out
}

// Count returns the number of filled bubbles.
func Count(bubbles []model.Bubble) int {
	n := 0
	for _, b := range bubbles {
		if b.Filled {
			n++
		}
	}
	return n
}
