// Package locate finds the answer bubbles on a rectified, binarized sheet.
//
// Two strategies are supported. The fixed grid computes every bubble box from
// the sheet dimensions and the grid layout, so it always yields exactly one
// bubble per option and already knows which question each belongs to. The
// contour strategy discovers bubbles from their shape and leaves question
// assignment to the assembler.
package locate

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/detection"
	"github.com/ironsheep/omr-grader/internal/model"
)

// minComponentPixels drops single-pixel noise before boundary tracing.
const minComponentPixels = 4

// Result is the output of bubble location.
type Result struct {
	Bubbles []model.Bubble

	// Strategy is the strategy that produced Bubbles. It differs from the
	// requested one after a fallback.
	Strategy model.Strategy

	// Candidates is the number of contours examined by the contour strategy.
	Candidates int

	FellBack  bool
	NoBubbles bool
}

// Locate returns the bubbles of binary (ink 255) according to the grid's
// strategy. An empty strategy means fixed grid.
func Locate(binary *image.Gray, spec model.GridSpec, cfg config.Locate) *Result {
	if spec.Strategy != model.StrategyContour {
		return &Result{
			Bubbles:  FixedGrid(binary.Bounds().Dx(), binary.Bounds().Dy(), spec, cfg),
			Strategy: model.StrategyFixedGrid,
		}
	}

	bubbles, candidates := Contours(binary, spec, cfg)
	res := &Result{Bubbles: bubbles, Strategy: model.StrategyContour, Candidates: candidates}
	if len(bubbles) > 0 {
		return res
	}
	if cfg.FallbackToGrid {
		res.Bubbles = FixedGrid(binary.Bounds().Dx(), binary.Bounds().Dy(), spec, cfg)
		res.Strategy = model.StrategyFixedGrid
		res.FellBack = true
		return res
	}
	res.NoBubbles = true
	return res
}

// FixedGrid computes one bubble per option of every question on a sheet of
// width x height pixels.
//
// Rows divide the height between the top and bottom margins evenly. The
// options of a question are centered on its column's fraction of the width
// and spaced OptionSpacingFraction of the width apart. Boxes are square,
// BubbleWidthFraction of the width on a side, shrunk if needed so that
// neighbors never overlap. Boxes are clipped to the sheet.
func FixedGrid(width, height int, spec model.GridSpec, cfg config.Locate) []model.Bubble {
	if width <= 0 || height <= 0 || spec.RowsPerColumn <= 0 {
		return nil
	}
	w, h := float64(width), float64(height)
	top := cfg.TopMarginFraction * h
	bottom := h - cfg.BottomMarginFraction*h
	rowH := (bottom - top) / float64(spec.RowsPerColumn)
	spacing := cfg.OptionSpacingFraction * w
	side := math.Min(cfg.BubbleWidthFraction*w, rowH)
	if spacing > 0 {
		side = math.Min(side, spacing)
	}
	sheet := image.Rect(0, 0, width, height)

	total := spec.NumQuestions()
	bubbles := make([]model.Bubble, 0, total*spec.MaxOptionCount())
	for q := 1; q <= total; q++ {
		col, row := spec.Cell(q)
		if col >= len(cfg.ColumnFractions) {
			continue
		}
		cx := cfg.ColumnFractions[col] * w
		cy := top + (float64(row)+0.5)*rowH
		n := spec.OptionCount(q)
		for opt := 0; opt < n; opt++ {
			ox := cx + (float64(opt)-float64(n-1)/2)*spacing
			r := image.Rect(
				int(math.Round(ox-side/2)), int(math.Round(cy-side/2)),
				int(math.Round(ox+side/2)), int(math.Round(cy+side/2)),
			).Intersect(sheet)
			bubbles = append(bubbles, model.Bubble{
				Bounds:   r,
				Center:   image.Pt(int(math.Round(ox)), int(math.Round(cy))),
				Question: q,
				Option:   opt,
			})
		}
	}
	return bubbles
}

// Contours finds bubble-shaped blobs on binary. It returns the accepted
// bubbles, ordered by column bucket, then top to bottom, then left to right,
// and the number of candidate contours examined.
func Contours(binary *image.Gray, spec model.GridSpec, cfg config.Locate) ([]model.Bubble, int) {
	opened := detection.Open(binary, cfg.OpeningRadius)
	contours := detection.FindContours(opened, minComponentPixels)

	// Contours arrive largest first, so a mark drawn inside a printed ring
	// without touching it is seen after the ring and dropped.
	var bubbles []model.Bubble
	for _, c := range contours {
		if !Accept(c, cfg) {
			continue
		}
		center := detection.Centroid(c.Points)
		if nested(center, bubbles) {
			continue
		}
		bubbles = append(bubbles, model.Bubble{
			Bounds:  c.Bounds,
			Contour: c.Points,
			Center:  center,
		})
	}

	width := binary.Bounds().Dx()
	sort.SliceStable(bubbles, func(i, j int) bool {
		a, b := bubbles[i].Center, bubbles[j].Center
		ca, cb := spec.ColumnOf(a.X, width), spec.ColumnOf(b.X, width)
		if ca != cb {
			return ca < cb
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return bubbles, len(contours)
}

func nested(p image.Point, bubbles []model.Bubble) bool {
	for _, b := range bubbles {
		if p.In(b.Bounds) {
			return true
		}
	}
	return false
}

// Accept reports whether a contour passes the bubble shape filters: area,
// perimeter, circularity and solidity.
func Accept(c detection.Contour, cfg config.Locate) bool {
	if c.Area <= cfg.MinArea || c.Area >= cfg.MaxArea {
		return false
	}
	if c.Perimeter <= cfg.MinPerimeter {
		return false
	}
	circ := detection.Circularity(c.Area, c.Perimeter)
	if circ <= cfg.MinCircularity || circ >= cfg.MaxCircularity {
		return false
	}
	return detection.Solidity(c.Points, c.Area) > cfg.MinSolidity
}
