package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage creates a solid-color RGBA image.
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createRectangleImage draws a filled dark rectangle on a white background.
func createRectangleImage(width, height int, rect image.Rectangle) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, color.RGBA{20, 20, 20, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	data := encodePNG(t, createTestImage(40, 30, color.RGBA{200, 100, 50, 255}))

	sheet, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	info := sheet.Info()
	if info.Width != 40 || info.Height != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %q, want png", info.Format)
	}
	if sheet.ID != SheetID(data) || len(sheet.ID) != 64 {
		t.Errorf("ID: got %q, want sha256 hex of the bytes", sheet.ID)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Decode(nil): got %v, want ErrEmptyImage", err)
	}
	if _, err := Decode([]byte("definitely not an image")); err == nil {
		t.Error("Decode(garbage): expected error")
	}
}

func TestImageCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.png")
	if err := os.WriteFile(path, encodePNG(t, createTestImage(10, 10, color.White)), 0o600); err != nil {
		t.Fatal(err)
	}

	cache := NewImageCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				t.Errorf("Load failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if cache.Len() != 1 {
		t.Errorf("cache size: got %d, want 1", cache.Len())
	}
	cache.Evict(path)
	if cache.Len() != 0 {
		t.Errorf("cache size after Evict: got %d, want 0", cache.Len())
	}

	if _, err := cache.Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Load(missing): expected error")
	}
}

func TestCanny(t *testing.T) {
	img := createRectangleImage(100, 100, image.Rect(30, 30, 70, 70))
	edges := Canny(ToGray(img), 75, 200)

	if edges.Bounds().Dx() != 100 || edges.Bounds().Dy() != 100 {
		t.Fatalf("dimensions: got %dx%d, want 100x100", edges.Bounds().Dx(), edges.Bounds().Dy())
	}

	// Flat regions carry no edges.
	for _, p := range []image.Point{{5, 5}, {50, 50}, {95, 95}} {
		if edges.GrayAt(p.X, p.Y).Y != 0 {
			t.Errorf("flat pixel %v marked as edge", p)
		}
	}

	// Each side of the rectangle produces edge pixels near its boundary.
	sides := []image.Rectangle{
		image.Rect(40, 27, 60, 34), // top
		image.Rect(40, 66, 60, 73), // bottom
		image.Rect(27, 40, 34, 60), // left
		image.Rect(66, 40, 73, 60), // right
	}
	for _, r := range sides {
		if CountNonZero(edges, r) == 0 {
			t.Errorf("no edge pixels found in %v", r)
		}
	}
}

func TestCannySolidImage(t *testing.T) {
	edges := Canny(ToGray(createTestImage(32, 32, color.Gray{Y: 128})), 10, 50)
	if n := CountNonZero(edges, edges.Bounds()); n != 0 {
		t.Errorf("solid image produced %d edge pixels", n)
	}
}

func TestToGray(t *testing.T) {
	src := createTestImage(4, 4, color.RGBA{255, 255, 255, 255})
	g := ToGray(src)
	if g.GrayAt(2, 2).Y != 255 {
		t.Errorf("white converted to %d", g.GrayAt(2, 2).Y)
	}

	black := ToGray(createTestImage(4, 4, color.Black))
	if black.GrayAt(0, 0).Y != 0 {
		t.Errorf("black converted to %d", black.GrayAt(0, 0).Y)
	}

	// Gray input is copied.
	g2 := ToGray(g)
	g2.Pix[0] = 7
	if g.Pix[0] == 7 {
		t.Error("ToGray aliased its *image.Gray input")
	}
}

func TestResizeToWidth(t *testing.T) {
	img := createTestImage(2800, 1000, color.White)
	resized, ratio := ResizeToWidth(img, 1400)
	if resized.Bounds().Dx() != 1400 || resized.Bounds().Dy() != 500 {
		t.Errorf("resized: got %dx%d, want 1400x500", resized.Bounds().Dx(), resized.Bounds().Dy())
	}
	if ratio != 2 {
		t.Errorf("ratio: got %v, want 2", ratio)
	}

	small := createTestImage(100, 50, color.White)
	same, ratio := ResizeToWidth(small, 1400)
	if same.Bounds().Dx() != 100 || ratio != 1 {
		t.Errorf("small image: got width %d ratio %v, want 100 and 1", same.Bounds().Dx(), ratio)
	}
}

func TestEncodePNG(t *testing.T) {
	img := createTestImage(20, 10, color.White)
	tests := []struct {
		name          string
		scale         float64
		width, height int
	}{
		{"unscaled", 1.0, 20, 10},
		{"half", 0.5, 10, 5},
		{"zero keeps size", 0, 20, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := EncodePNG(img, tt.scale)
			if err != nil {
				t.Fatalf("EncodePNG failed: %v", err)
			}
			if enc.Width != tt.width || enc.Height != tt.height {
				t.Errorf("dimensions: got %dx%d, want %dx%d", enc.Width, enc.Height, tt.width, tt.height)
			}
			if enc.MimeType != "image/png" {
				t.Errorf("MimeType: got %s, want image/png", enc.MimeType)
			}
			raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
			if err != nil {
				t.Fatalf("failed to decode base64: %v", err)
			}
			if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
				t.Fatalf("failed to decode PNG: %v", err)
			}
		})
	}
}

func TestCropRegion(t *testing.T) {
	img := createTestImage(50, 50, color.White)
	crop, err := CropRegion(img, image.Rect(45, 45, 60, 60), 2)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if crop.Bounds().Dx() != 7 || crop.Bounds().Dy() != 7 {
		t.Errorf("dimensions: got %dx%d, want 7x7", crop.Bounds().Dx(), crop.Bounds().Dy())
	}
	if _, err := CropRegion(img, image.Rect(100, 100, 120, 120), 0); err == nil {
		t.Error("CropRegion outside bounds: expected error")
	}
}

func TestSaveArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	if err := SaveArtifact(dir, "binary", createTestImage(8, 8, color.Black)); err != nil {
		t.Fatalf("SaveArtifact failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "binary.png")); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
	if err := SaveArtifact("", "ignored", createTestImage(1, 1, color.Black)); err != nil {
		t.Errorf("SaveArtifact with empty dir: %v", err)
	}
}

func TestDrawBoxes(t *testing.T) {
	img := createTestImage(20, 20, color.White)
	out := DrawBoxes(img, []Box{{Rect: image.Rect(5, 5, 15, 15), Color: FilledColor}}, 1)

	if out.RGBAAt(5, 10) != FilledColor || out.RGBAAt(14, 10) != FilledColor {
		t.Error("box edges not drawn")
	}
	if out.RGBAAt(10, 10) != (color.RGBA{255, 255, 255, 255}) {
		t.Error("box interior should be untouched")
	}
	r, _, _, _ := img.At(5, 5).RGBA()
	if r>>8 != 255 {
		t.Error("DrawBoxes modified its input")
	}
}
