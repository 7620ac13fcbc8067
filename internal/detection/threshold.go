package detection

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/omr-grader/internal/config"
)

// OtsuLevel returns the gray level that best separates the histogram of g
// into two classes (Otsu's method). Pixels at or below the level form the
// dark class.
func OtsuLevel(g *image.Gray) uint8 {
	bins := histogram.NewRGBAHistogram(g).R.Bins

	total := 0
	var sumAll float64
	for v, n := range bins {
		total += n
		sumAll += float64(v * n)
	}
	if total == 0 {
		return 0
	}

	totalF := float64(total)
	bestVar := -1.0
	var best uint8
	var weightBg int
	var sumBg float64
	for t := 0; t < 256; t++ {
		weightBg += bins[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t * bins[t])

		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)
		between := float64(weightBg) * float64(weightFg) / (totalF * totalF) * (meanBg - meanFg) * (meanBg - meanFg)
		if between > bestVar {
			bestVar = between
			best = uint8(t)
		}
	}
	return best
}

// ThresholdInv marks ink: pixels at or below level become 255, the rest 0.
func ThresholdInv(g *image.Gray, level int) *image.Gray {
	if level < 0 {
		return image.NewGray(g.Bounds())
	}
	if level >= 255 {
		out := image.NewGray(g.Bounds())
		for i := range out.Pix {
			out.Pix[i] = 255
		}
		return out
	}
	paper := segment.Threshold(g, uint8(level+1))
	for i, v := range paper.Pix {
		paper.Pix[i] = 255 - v
	}
	return paper
}

// AdaptiveThresholdInv marks ink where a pixel is at least c below the mean
// of the block x block window centered on it. The window is clipped at the
// image border.
func AdaptiveThresholdInv(g *image.Gray, block, c int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	// Summed-area table with a zero first row and column.
	sat := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(g.Pix[y*g.Stride+x])
			sat[(y+1)*(w+1)+x+1] = sat[y*(w+1)+x+1] + row
		}
	}

	r := block / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			sum := sat[y1*(w+1)+x1] - sat[y0*(w+1)+x1] - sat[y1*(w+1)+x0] + sat[y0*(w+1)+x0]
			n := int64((y1 - y0) * (x1 - x0))
			v := int64(g.Pix[y*g.Stride+x])
			if v*n <= sum-int64(c)*n {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// Open removes foreground specks smaller than the (2r+1)-pixel square
// window: erosion followed by dilation.
func Open(binary *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return redChannel(binary)
	}
	return redChannel(effect.Dilate(effect.Erode(binary, radius), radius))
}

// Dilate grows foreground by the (2r+1)-pixel square window. It bridges the
// one or two pixel gaps Canny leaves at sharp corners.
func Dilate(binary *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return redChannel(binary)
	}
	return redChannel(effect.Dilate(binary, radius))
}

// Blur applies a Gaussian blur of the given radius.
func Blur(g *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return redChannel(g)
	}
	return redChannel(blur.Gaussian(g, radius))
}

// Binarize converts a normalized grayscale sheet into an ink mask (ink 255,
// paper 0) using the configured method.
func Binarize(g *image.Gray, cfg config.Binarize) *image.Gray {
	src := Blur(g, cfg.BlurRadius)
	switch cfg.Method {
	case config.BinarizeAdaptive:
		return AdaptiveThresholdInv(src, cfg.AdaptiveBlock, cfg.AdaptiveC)
	default:
		return ThresholdInv(src, int(OtsuLevel(src))-cfg.OtsuOffset)
	}
}

// redChannel copies the first channel of an image into a 0-based *image.Gray.
func redChannel(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.Pix[y*out.Stride+x] = src.Pix[y*src.Stride+x*4]
			}
		}
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[y*src.Stride:y*src.Stride+b.Dx()])
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out.Pix[y*out.Stride+x] = uint8(r >> 8)
			}
		}
	}
	return out
}
