package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateQuad is returned when a quadrilateral is non-convex or has no area.
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// Quad holds four corners in top-left, top-right, bottom-right, bottom-left order.
type Quad [4]Point

// Corner indices of a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// OrderPoints arranges four arbitrary corner points as TL, TR, BR, BL.
//
// The top-left corner has the smallest x+y and the bottom-right the largest.
// Of the remaining two, the top-right has the smaller y-x. Ties are broken by
// the other key and then by x, so the result does not depend on input order.
func OrderPoints(pts [4]Point) Quad {
	rest := pts[:]

	var q Quad
	q[TopLeft], rest = takeMin(rest, func(a, b Point) bool {
		return lessBy(a.X+a.Y, b.X+b.Y, a.Y-a.X, b.Y-b.X, a.X, b.X)
	})
	q[BottomRight], rest = takeMin(rest, func(a, b Point) bool {
		return lessBy(b.X+b.Y, a.X+a.Y, b.Y-b.X, a.Y-a.X, b.X, a.X)
	})
	q[TopRight], rest = takeMin(rest, func(a, b Point) bool {
		return lessBy(a.Y-a.X, b.Y-b.X, b.X, a.X, a.Y, b.Y)
	})
	q[BottomLeft] = rest[0]
	return q
}

// takeMin returns the smallest point under less and the remaining points.
func takeMin(pts []Point, less func(a, b Point) bool) (Point, []Point) {
	best := 0
	for i := 1; i < len(pts); i++ {
		if less(pts[i], pts[best]) {
			best = i
		}
	}
	rest := make([]Point, 0, len(pts)-1)
	rest = append(rest, pts[:best]...)
	rest = append(rest, pts[best+1:]...)
	return pts[best], rest
}

// lessBy compares (a1, a2, a3) with (b1, b2, b3) lexicographically.
func lessBy(a1, b1, a2, b2, a3, b3 float64) bool {
	if a1 != b1 {
		return a1 < b1
	}
	if a2 != b2 {
		return a2 < b2
	}
	return a3 < b3
}

// Points returns the corners as a slice.
func (q Quad) Points() []Point {
	return []Point{q[0], q[1], q[2], q[3]}
}

// Area returns the enclosed area.
func (q Quad) Area() float64 {
	return Area(q.Points())
}

// Validate returns ErrDegenerateQuad if the quad is not convex with positive area.
func (q Quad) Validate() error {
	if q.Area() <= 0 || !IsConvex(q.Points()) {
		return fmt.Errorf("%w: %v", ErrDegenerateQuad, q)
	}
	return nil
}

// Size returns the output width and height for rectifying q: the longer edge
// of each opposite pair.
func (q Quad) Size() (width, height float64) {
	width = math.Max(q[BottomRight].Dist(q[BottomLeft]), q[TopRight].Dist(q[TopLeft]))
	height = math.Max(q[TopRight].Dist(q[BottomRight]), q[TopLeft].Dist(q[BottomLeft]))
	return width, height
}

// Scale multiplies every corner by f.
func (q Quad) Scale(f float64) Quad {
	var out Quad
	for i, p := range q {
		out[i] = Point{X: p.X * f, Y: p.Y * f}
	}
	return out
}

// RectQuad returns the axis-aligned quad with corners (0,0) and (w-1,h-1).
func RectQuad(w, h int) Quad {
	x, y := float64(w-1), float64(h-1)
	return Quad{{0, 0}, {x, 0}, {x, y}, {0, y}}
}
