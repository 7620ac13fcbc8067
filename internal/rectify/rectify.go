// Package rectify finds the answer sheet in a photograph and warps it to a
// flat, upright, top-down view.
package rectify

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/detection"
	"github.com/ironsheep/omr-grader/internal/geometry"
	"github.com/ironsheep/omr-grader/internal/imaging"
)

// Result is the outcome of rectification.
type Result struct {
	// Image is the rectified sheet, or a copy of the input when no sheet
	// outline was found.
	Image *image.NRGBA

	// Found reports whether a sheet outline was detected. A false value is a
	// low-confidence signal, not an error.
	Found bool

	// Quad is the detected outline in input-image coordinates.
	Quad geometry.Quad

	// Candidates is the number of contours examined.
	Candidates int

	// Scale is input width over working width.
	Scale float64
}

// Rectify locates the largest convex quadrilateral in img and perspective
// warps the original full-resolution image so that quadrilateral fills the
// output.
//
// Detection runs on a copy downscaled to cfg.DesiredWidth: grayscale, Canny
// edges closed by a small dilation, outer contours by descending area,
// polygon approximation. The first
// of the cfg.CandidateContours largest contours that approximates to a convex
// quadrilateral of at least cfg.MinQuadArea of the frame wins.
func Rectify(img image.Image, cfg config.Rectify) *Result {
	work, scale := imaging.ResizeToWidth(img, cfg.DesiredWidth)
	res := &Result{Scale: scale}

	quad, candidates, ok := FindSheet(work, cfg)
	res.Candidates = candidates
	if !ok {
		res.Image = imaging.ToNRGBA(img)
		return res
	}

	full := quad.Scale(scale)
	b := img.Bounds()
	for i := range full {
		full[i].X += float64(b.Min.X)
		full[i].Y += float64(b.Min.Y)
	}

	warped, _, err := Warp(img, full)
	if err != nil {
		res.Image = imaging.ToNRGBA(img)
		return res
	}

	res.Image = warped
	res.Quad = full
	res.Found = true
	return res
}

// FindSheet returns the sheet outline in work's 0-based coordinates.
func FindSheet(work image.Image, cfg config.Rectify) (geometry.Quad, int, bool) {
	gray := imaging.ToGray(work)
	edges := imaging.Canny(gray, cfg.CannyLow, cfg.CannyHigh)
	// Canny breaks the outline of a skewed sheet at its corners.
	edges = detection.Dilate(edges, cfg.EdgeDilation)

	contours := detection.FindContours(edges, 8)
	if len(contours) > cfg.CandidateContours {
		contours = contours[:cfg.CandidateContours]
	}

	frame := float64(gray.Bounds().Dx() * gray.Bounds().Dy())
	for _, c := range contours {
		pts := geometry.FromImagePoints(c.Points)
		poly := geometry.ApproxPolygon(pts, cfg.ApproxEpsilon*c.Perimeter)
		if len(poly) != 4 {
			continue
		}
		q := geometry.OrderPoints([4]geometry.Point{poly[0], poly[1], poly[2], poly[3]})
		if q.Validate() != nil {
			continue
		}
		if q.Area() < cfg.MinQuadArea*frame {
			continue
		}
		return q, len(contours), true
	}
	return geometry.Quad{}, len(contours), false
}

// Warp maps quad in img onto an upright rectangle.
//
// The output width is the longer of the quad's top and bottom edges and the
// height the longer of its left and right edges, each rounded and plus one so
// a quad spanning pixel centers 0..w-1 yields a w-pixel output. A quad equal
// to the full image frame therefore reproduces img exactly. Output pixels are
// sampled bilinearly through the inverse mapping; samples outside img clamp
// to the border.
func Warp(img image.Image, quad geometry.Quad) (*image.NRGBA, geometry.Homography, error) {
	if err := quad.Validate(); err != nil {
		return nil, geometry.Homography{}, err
	}

	maxW, maxH := quad.Size()
	w := int(math.Round(maxW)) + 1
	h := int(math.Round(maxH)) + 1
	dst := geometry.RectQuad(w, h)

	inverse, err := geometry.SolveHomography(dst, quad)
	if err != nil {
		return nil, geometry.Homography{}, fmt.Errorf("failed to solve sheet transform: %w", err)
	}

	src := imaging.ToNRGBA(img)
	origin := img.Bounds().Min
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p, ok := inverse.Apply(geometry.Point{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			out.SetNRGBA(x, y, bilinear(src, p.X-float64(origin.X), p.Y-float64(origin.Y)))
		}
	}

	forward, err := inverse.Inverse()
	if err != nil {
		return nil, geometry.Homography{}, fmt.Errorf("failed to invert sheet transform: %w", err)
	}
	return out, forward, nil
}

// bilinear samples src at fractional coordinates, clamping to the border.
func bilinear(src *image.NRGBA, fx, fy float64) color.NRGBA {
	b := src.Bounds()
	maxX, maxY := float64(b.Dx()-1), float64(b.Dy()-1)
	fx = math.Max(0, math.Min(maxX, fx))
	fy = math.Max(0, math.Min(maxY, fy))

	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	x1, y1 := min(x0+1, b.Dx()-1), min(y0+1, b.Dy()-1)
	ax, ay := fx-float64(x0), fy-float64(y0)

	p00 := src.Pix[y0*src.Stride+x0*4:]
	p10 := src.Pix[y0*src.Stride+x1*4:]
	p01 := src.Pix[y1*src.Stride+x0*4:]
	p11 := src.Pix[y1*src.Stride+x1*4:]

	var c [4]uint8
	for i := 0; i < 4; i++ {
		top := float64(p00[i])*(1-ax) + float64(p10[i])*ax
		bottom := float64(p01[i])*(1-ax) + float64(p11[i])*ax
		c[i] = uint8(math.Round(top*(1-ay) + bottom*ay))
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}
