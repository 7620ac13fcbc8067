package detection

import (
	"image"
	"sort"
)

// Component is an 8-connected region of foreground (non-zero) pixels.
type Component struct {
	// Start is the topmost, then leftmost, pixel of the region. Boundary
	// tracing begins here.
	Start image.Point

	// Bounds is the bounding box, exclusive at Max.
	Bounds image.Rectangle

	// Pixels is the number of foreground pixels in the region.
	Pixels int
}

// FindComponents labels the 8-connected foreground regions of a binary image.
//
// Regions with fewer than minPixels pixels are dropped. Components are
// returned in raster order of their Start pixel.
func FindComponents(binary *image.Gray, minPixels int) []Component {
	bounds := binary.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	visited := make([]bool, width*height)
	var components []Component

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !isSet(binary, x, y) {
				continue
			}
			c := floodFill(binary, visited, x, y)
			if c.Pixels >= minPixels {
				components = append(components, c)
			}
		}
	}

	return components
}

// floodFill marks the region containing (startX, startY) as visited and
// returns its statistics. The walk uses an explicit stack so large blobs
// such as the sheet border cannot overflow the goroutine stack.
func floodFill(binary *image.Gray, visited []bool, startX, startY int) Component {
	bounds := binary.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	c := Component{
		Start:  image.Point{X: startX, Y: startY},
		Bounds: image.Rect(startX, startY, startX+1, startY+1),
	}

	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c.Pixels++
		c.Bounds = c.Bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				if visited[ny*width+nx] || !isSet(binary, nx, ny) {
					continue
				}
				visited[ny*width+nx] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}

	return c
}

// isSet reports whether the pixel at 0-based (x, y) is foreground.
func isSet(g *image.Gray, x, y int) bool {
	return g.Pix[y*g.Stride+x] != 0
}

// Contour is the traced outer boundary of a component with its shape metrics.
type Contour struct {
	Points    []image.Point
	Bounds    image.Rectangle
	Area      float64
	Perimeter float64
}

// FindContours traces the outer boundary of every component of at least
// minPixels pixels and returns them sorted by enclosed area, largest first.
func FindContours(binary *image.Gray, minPixels int) []Contour {
	components := FindComponents(binary, minPixels)
	contours := make([]Contour, 0, len(components))
	for _, c := range components {
		pts := TraceBoundary(binary, c.Start)
		contours = append(contours, Contour{
			Points:    pts,
			Bounds:    c.Bounds,
			Area:      ContourArea(pts),
			Perimeter: ArcLength(pts),
		})
	}

	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].Area > contours[j].Area
	})
	return contours
}
