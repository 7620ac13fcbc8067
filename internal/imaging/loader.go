package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrEmptyImage is returned when decoding produces an image with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Sheet is a decoded answer sheet image together with its identity.
type Sheet struct {
	// ID is the hex SHA-256 of the encoded file bytes. Re-scanning the same
	// file yields the same ID.
	ID string

	// Format is the name reported by the registered decoder ("png", "jpeg", ...).
	Format string

	Image image.Image
}

// SheetID returns the identity of an encoded sheet.
func SheetID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Decode decodes an encoded sheet image, applying any EXIF orientation so
// phone photos arrive upright.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP.
func Decode(data []byte) (*Sheet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode image: %w", ErrEmptyImage)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to decode image: %w", ErrEmptyImage)
	}

	return &Sheet{
		ID:     SheetID(data),
		Format: format,
		Image:  img,
	}, nil
}

// ImageCache provides thread-safe caching of decoded sheets keyed by file path.
//
// The MCP server evaluates, rectifies and inspects the same photograph
// several times in one session; the cache avoids re-reading and re-decoding
// it each time.
//
// Cached sheets remain in memory until removed via Evict.
type ImageCache struct {
	mu     sync.RWMutex
	sheets map[string]*Sheet
}

// NewImageCache creates an empty cache, safe for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{
		sheets: make(map[string]*Sheet),
	}
}

// Load returns the cached sheet for path or reads and decodes it.
//
// The sheet is cached under the exact path string provided; different
// spellings of the same file produce separate entries.
func (c *ImageCache) Load(path string) (*Sheet, error) {
	c.mu.RLock()
	if s, ok := c.sheets[path]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied sheet path
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sheets[path] = s
	c.mu.Unlock()

	return s, nil
}

// Len returns the number of cached sheets.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sheets)
}

// Evict removes the sheet cached under path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.sheets, path)
	c.mu.Unlock()
}

// SheetInfo describes a decoded sheet without exposing its pixels.
type SheetInfo struct {
	ID     string `json:"sheet_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Info returns the sheet's metadata.
func (s *Sheet) Info() SheetInfo {
	b := s.Image.Bounds()
	return SheetInfo{
		ID:     s.ID,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: s.Format,
	}
}
