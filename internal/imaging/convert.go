package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// ToGray converts img to an 8-bit grayscale image with bounds starting at (0,0).
//
// Luminance uses the ITU-R BT.601 weights applied by imaging.Grayscale.
// A *image.Gray input is copied, never returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return CloneGray(g)
	}

	n := imaging.Grayscale(img)
	b := n.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := n.Pix[y*n.Stride : y*n.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// CloneGray returns a copy of g rebased to (0,0).
func CloneGray(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], g.Pix[y*g.Stride:y*g.Stride+b.Dx()])
	}
	return out
}

// ToNRGBA returns a copy of img as *image.NRGBA with bounds starting at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// ResizeToWidth scales img so its width is width, keeping the aspect ratio.
// It returns the resized image and the factor original/resized.
// Images already no wider than width are cloned at ratio 1.
func ResizeToWidth(img image.Image, width int) (*image.NRGBA, float64) {
	w := img.Bounds().Dx()
	if width <= 0 || w <= width {
		return imaging.Clone(img), 1
	}
	resized := imaging.Resize(img, width, 0, imaging.Linear)
	return resized, float64(w) / float64(resized.Bounds().Dx())
}

// CountNonZero returns the number of non-zero pixels of g inside r.
func CountNonZero(g *image.Gray, r image.Rectangle) int {
	r = r.Intersect(g.Bounds())
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := g.PixOffset(r.Min.X, y)
		for _, v := range g.Pix[off : off+r.Dx()] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}
