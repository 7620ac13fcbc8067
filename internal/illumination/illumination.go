// Package illumination brightens under-exposed sheets before binarization.
//
// Brightness is measured as the mean HSV value channel. A sheet at or above
// the configured threshold is returned unchanged, so normalizing an already
// normalized sheet is a no-op. Darker sheets get a capped multiplicative gain
// plus a fixed offset on V, and optionally contrast-limited adaptive
// histogram equalization of V.
package illumination

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/imaging"
)

// Result describes the normalization applied to one sheet.
type Result struct {
	Image *image.NRGBA

	// Mean is the mean HSV value of the input on a 0-255 scale.
	Mean float64

	// Gain is the multiplier applied to V; 1 when the sheet was left alone.
	Gain float64

	Adjusted  bool
	Equalized bool
}

// MeanValue returns the mean HSV value channel of img on a 0-255 scale.
func MeanValue(img image.Image) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, _ := colorful.MakeColor(img.At(x, y))
			_, _, v := c.Hsv()
			sum += v
		}
	}
	return sum / float64(n) * 255
}

// Gain returns the multiplicative brightening for a sheet of the given mean
// value: threshold/mean capped at cfg.MaxGain, or 1 when the sheet is bright
// enough.
func Gain(mean float64, cfg config.Illumination) float64 {
	if mean >= cfg.ValueThreshold {
		return 1
	}
	return math.Min(cfg.MaxGain, cfg.ValueThreshold/math.Max(1, mean))
}

// Normalize returns a brightened copy of img. It never fails.
func Normalize(img image.Image, cfg config.Illumination) *Result {
	mean := MeanValue(img)
	res := &Result{Mean: mean, Gain: 1}
	if mean >= cfg.ValueThreshold {
		res.Image = imaging.ToNRGBA(img)
		return res
	}

	src := imaging.ToNRGBA(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	gain := Gain(mean, cfg)
	hue := make([]float64, w*h)
	sat := make([]float64, w*h)
	val := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c, _ := colorful.MakeColor(src.NRGBAAt(x, y))
			hh, ss, vv := c.Hsv()
			i := y*w + x
			hue[i], sat[i] = hh, ss
			val[i] = clampByte(vv*255*gain + cfg.Offset)
		}
	}

	if cfg.Equalize && mean < cfg.EqualizeBelow {
		val = CLAHE(val, w, h, cfg.Tiles, cfg.ClipLimit)
		res.Equalized = true
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			r, g, bl := colorful.Hsv(hue[i], sat[i], float64(val[i])/255).Clamped().RGB255()
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: src.Pix[y*src.Stride+x*4+3]})
		}
	}

	res.Image = out
	res.Gain = gain
	res.Adjusted = true
	return res
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
