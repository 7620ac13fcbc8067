package detection

import (
	"image"
	"math"

	"github.com/ironsheep/omr-grader/internal/geometry"
)

// moore lists the eight neighbor offsets counter-clockwise on screen,
// starting east. Index is the chain code direction.
var moore = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// TraceBoundary follows the outer boundary of the component containing start,
// which must be the component's topmost-leftmost pixel.
//
// The walk is a Moore-neighbor trace with Jacob's stopping criterion: it ends
// when it is back at start about to repeat its first move. Each boundary
// pixel appears once per visit; start appears only at index 0. A single
// isolated pixel yields a one-point contour.
func TraceBoundary(binary *image.Gray, start image.Point) []image.Point {
	bounds := binary.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	set := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height && isSet(binary, p.X, p.Y)
	}

	contour := []image.Point{start}
	cur := start
	dir := 7
	firstMove := -1
	limit := 4*width*height + 8

	for step := 0; step < limit; step++ {
		first := (dir + 7) % 8
		if dir%2 == 1 {
			first = (dir + 6) % 8
		}

		move := -1
		for k := 0; k < 8; k++ {
			d := (first + k) % 8
			if set(cur.Add(moore[d])) {
				move = d
				break
			}
		}
		if move < 0 {
			break
		}
		if cur == start && move == firstMove {
			break
		}
		if firstMove < 0 {
			firstMove = move
		}

		cur = cur.Add(moore[move])
		dir = move
		if cur != start {
			contour = append(contour, cur)
		}
	}

	return contour
}

// ContourArea returns the area enclosed by the contour through pixel centers.
func ContourArea(pts []image.Point) float64 {
	return geometry.Area(geometry.FromImagePoints(pts))
}

// ArcLength returns the closed perimeter of the contour. Diagonal steps
// count √2.
func ArcLength(pts []image.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	var sum float64
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		sum += math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	}
	return sum
}

// Circularity returns 4πA/P²: 1 for a perfect circle, about 0.785 for a square.
func Circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// Solidity returns the ratio of the contour's area to its convex hull's area.
func Solidity(pts []image.Point, area float64) float64 {
	hull := geometry.ConvexHull(geometry.FromImagePoints(pts))
	hullArea := geometry.Area(hull)
	if hullArea <= 0 {
		return 0
	}
	return area / hullArea
}

// Centroid returns the mean position of the contour points, rounded.
func Centroid(pts []image.Point) image.Point {
	c := geometry.Centroid(geometry.FromImagePoints(pts))
	return image.Point{X: int(math.Round(c.X)), Y: int(math.Round(c.Y))}
}
