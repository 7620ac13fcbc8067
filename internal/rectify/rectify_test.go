package rectify

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/geometry"
)

// createTestImage creates a solid color test image.
func createTestImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createSheetPhoto draws a white sheet with a dark mark in its top-left
// corner on a dark desk.
func createSheetPhoto(width, height int, sheet image.Rectangle) *image.NRGBA {
	img := createTestImage(width, height, color.NRGBA{40, 40, 40, 255})
	for y := sheet.Min.Y; y < sheet.Max.Y; y++ {
		for x := sheet.Min.X; x < sheet.Max.X; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := sheet.Min.Y + 10; y < sheet.Min.Y+30; y++ {
		for x := sheet.Min.X + 10; x < sheet.Min.X+30; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

// createProjectedSheet draws a 300x400 sheet with a dark 30 pixel mark near
// its top-left corner, projected onto corners of a 480x560 dark desk. Each
// pixel averages four samples so the outline is antialiased like a photo.
func createProjectedSheet(t *testing.T, corners geometry.Quad) *image.NRGBA {
	t.Helper()

	toSheet, err := geometry.SolveHomography(corners, geometry.RectQuad(300, 400))
	if err != nil {
		t.Fatalf("SolveHomography failed: %v", err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, 480, 560))
	for y := 0; y < 560; y++ {
		for x := 0; x < 480; x++ {
			sum := 0
			for _, d := range [4][2]float64{{-0.25, -0.25}, {0.25, -0.25}, {-0.25, 0.25}, {0.25, 0.25}} {
				p, ok := toSheet.Apply(geometry.Pt(float64(x)+d[0], float64(y)+d[1]))
				switch {
				case !ok || p.X < -0.5 || p.X > 299.5 || p.Y < -0.5 || p.Y > 399.5:
					sum += 40
				case p.X >= 10 && p.X < 40 && p.Y >= 10 && p.Y < 40:
					sum += 0
				default:
					sum += 255
				}
			}
			v := uint8(sum / 4)
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

// rotatedCorners returns the corners of the 300x400 sheet rotated by deg
// degrees about the desk center.
func rotatedCorners(deg float64) geometry.Quad {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	var q geometry.Quad
	for i, c := range geometry.RectQuad(300, 400) {
		x, y := c.X-149.5, c.Y-199.5
		q[i] = geometry.Pt(240+x*cos-y*sin, 280+x*sin+y*cos)
	}
	return q
}

func TestRectifySkewedSheet(t *testing.T) {
	tests := []struct {
		name     string
		corners  geometry.Quad
		wantSize bool
	}{
		{"rotated 2", rotatedCorners(2), true},
		{"rotated 5", rotatedCorners(5), true},
		{"rotated 10", rotatedCorners(10), true},
		{"rotated 20", rotatedCorners(20), true},
		{"rotated -8", rotatedCorners(-8), true},
		{"perspective", geometry.Quad{{90, 50}, {400, 80}, {440, 520}, {50, 490}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Rectify(createProjectedSheet(t, tt.corners), config.NewConfig().Rectify)
			if !res.Found {
				t.Fatalf("sheet not found (%d candidates)", res.Candidates)
			}
			for i := range tt.corners {
				if d := res.Quad[i].Dist(tt.corners[i]); d > 6 {
					t.Errorf("corner %d: got %v, want near %v", i, res.Quad[i], tt.corners[i])
				}
			}

			b := res.Image.Bounds()
			if tt.wantSize && (b.Dx() < 294 || b.Dx() > 310 || b.Dy() < 394 || b.Dy() > 410) {
				t.Errorf("rectified size: got %dx%d, want about 300x400", b.Dx(), b.Dy())
			}
			if c := res.Image.NRGBAAt(25*b.Dx()/300, 25*b.Dy()/400); c.R > 100 {
				t.Errorf("corner mark not at top-left, got %v", c)
			}
			if c := res.Image.NRGBAAt(b.Dx()/2, b.Dy()/2); c.R < 200 {
				t.Errorf("sheet center should be white, got %v", c)
			}
		})
	}
}

func TestWarpIdentity(t *testing.T) {
	img := createTestImage(64, 48, color.White)
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 3), uint8(y * 5), uint8(x + y), 255})
		}
	}

	out, h, err := Warp(img, geometry.RectQuad(64, 48))
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), img.Bounds())
	}
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if out.NRGBAAt(x, y) != img.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, out.NRGBAAt(x, y), img.NRGBAAt(x, y))
			}
		}
	}
	p, ok := h.Apply(geometry.Pt(10, 20))
	if !ok || p.X < 9.999 || p.X > 10.001 || p.Y < 19.999 || p.Y > 20.001 {
		t.Errorf("identity transform moved (10,20) to %v", p)
	}
}

func TestWarpDegenerateQuad(t *testing.T) {
	img := createTestImage(10, 10, color.White)
	if _, _, err := Warp(img, geometry.Quad{{0, 0}, {5, 0}, {9, 0}, {2, 0}}); err == nil {
		t.Error("Warp with collinear quad: expected error")
	}
}

func TestRectifyFindsSheet(t *testing.T) {
	sheet := image.Rect(40, 30, 240, 330)
	img := createSheetPhoto(300, 360, sheet)

	res := Rectify(img, config.NewConfig().Rectify)
	if !res.Found {
		t.Fatalf("sheet not found (%d candidates)", res.Candidates)
	}

	// The outline sits on the sheet boundary, within a few pixels.
	want := geometry.Quad{{40, 30}, {239, 30}, {239, 329}, {40, 329}}
	for i := range want {
		if d := res.Quad[i].Dist(want[i]); d > 5 {
			t.Errorf("corner %d: got %v, want near %v", i, res.Quad[i], want[i])
		}
	}

	b := res.Image.Bounds()
	if b.Dx() < 195 || b.Dx() > 206 || b.Dy() < 295 || b.Dy() > 306 {
		t.Errorf("rectified size: got %dx%d, want about 200x300", b.Dx(), b.Dy())
	}

	// The corner mark lands near the rectified top-left.
	if c := res.Image.NRGBAAt(20, 20); c.R > 100 {
		t.Errorf("corner mark not at top-left, got %v", c)
	}
	if c := res.Image.NRGBAAt(b.Dx()/2, b.Dy()/2); c.R < 200 {
		t.Errorf("sheet center should be white, got %v", c)
	}
}

func TestRectifyBlankCanvas(t *testing.T) {
	img := createTestImage(200, 260, color.White)
	res := Rectify(img, config.NewConfig().Rectify)
	if res.Found {
		t.Fatal("blank canvas should not yield a sheet outline")
	}
	if res.Image.Bounds() != img.Bounds() {
		t.Errorf("fallback image bounds: got %v, want %v", res.Image.Bounds(), img.Bounds())
	}
	if res.Image.NRGBAAt(100, 100) != img.NRGBAAt(100, 100) {
		t.Error("fallback image differs from input")
	}
}

func TestRectifyDownscalesLargeInput(t *testing.T) {
	sheet := image.Rect(100, 80, 700, 880)
	img := createSheetPhoto(800, 960, sheet)

	cfg := config.NewConfig().Rectify
	cfg.DesiredWidth = 400
	res := Rectify(img, cfg)
	if !res.Found {
		t.Fatal("sheet not found on downscaled input")
	}
	if res.Scale != 2 {
		t.Errorf("scale: got %v, want 2", res.Scale)
	}
	// Output is sampled from the full-resolution original.
	if w := res.Image.Bounds().Dx(); w < 590 || w > 610 {
		t.Errorf("rectified width: got %d, want about 600", w)
	}
}
