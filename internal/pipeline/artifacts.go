package pipeline

import (
	"image"
	"log/slog"
	"path/filepath"

	"github.com/ironsheep/omr-grader/internal/imaging"
)

// Overlay draws the located bubbles of a onto the rectified sheet: green for
// filled, red otherwise. Contour bubbles are outlined along their contour.
func Overlay(a *Analysis) *image.RGBA {
	boxes := make([]imaging.Box, 0, len(a.Bubbles))
	for _, b := range a.Bubbles {
		if len(b.Contour) > 0 {
			continue
		}
		c := imaging.UnfilledColor
		if b.Filled {
			c = imaging.FilledColor
		}
		boxes = append(boxes, imaging.Box{Rect: b.Bounds, Color: c})
	}
	out := imaging.DrawBoxes(a.Rectified.Image, boxes, 2)

	for _, b := range a.Bubbles {
		if len(b.Contour) == 0 {
			continue
		}
		c := imaging.UnfilledColor
		if b.Filled {
			c = imaging.FilledColor
		}
		imaging.DrawPolyline(out, b.Contour, c)
	}
	return out
}

// saveArtifacts writes the intermediate images of one sheet into its own
// directory below the debug dir. Failures are logged and otherwise ignored.
func (e *Evaluator) saveArtifacts(sheetID string, a *Analysis, logger *slog.Logger) {
	dir := filepath.Join(e.debugDir, sheetID[:12])
	artifacts := []struct {
		name string
		img  image.Image
	}{
		{"rectified", a.Rectified.Image},
		{"enhanced", a.Illumination.Image},
		{"binary", a.Binary},
		{"overlay", Overlay(a)},
	}
	for _, art := range artifacts {
		if err := imaging.SaveArtifact(dir, art.name, art.img); err != nil {
			logger.Warn("failed to save debug artifact", "artifact", art.name, "error", err)
		}
	}
	logger.Debug("debug artifacts written", "dir", dir)
}
