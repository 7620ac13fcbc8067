package geometry

import (
	"image"
	"math"
	"sort"
)

// Point is a 2D point with float64 coordinates.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// FromImagePoints converts integer pixel coordinates to Points.
func FromImagePoints(pts []image.Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Area returns the absolute area of a closed polygon using the shoelace formula.
func Area(poly []Point) float64 {
	return math.Abs(SignedArea(poly))
}

// SignedArea returns the shoelace area; positive for counter-clockwise
// vertices in a y-up frame (clockwise on screen).
func SignedArea(poly []Point) float64 {
	n := len(poly)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return sum / 2
}

// Perimeter returns the length of the closed polygon through poly.
func Perimeter(poly []Point) float64 {
	n := len(poly)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += poly[i].Dist(poly[(i+1)%n])
	}
	return sum
}

// Centroid returns the mean of the vertices.
func Centroid(poly []Point) Point {
	if len(poly) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range poly {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(poly))
	return Point{X: c.X / n, Y: c.Y / n}
}

// crossProduct returns the z component of (b-a) x (c-a).
func crossProduct(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// ConvexHull computes the convex hull using Andrew's monotone chain.
// Collinear points on the hull boundary are dropped.
func ConvexHull(points []Point) []Point {
	if len(points) < 3 {
		out := make([]Point, len(points))
		copy(out, points)
		return out
	}

	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && crossProduct(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && crossProduct(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// Collinear vertices are tolerated; a polygon with zero area is not convex.
func IsConvex(polygon []Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	var sign int
	for i := 0; i < n; i++ {
		cross := crossProduct(polygon[i], polygon[(i+1)%n], polygon[(i+2)%n])
		if cross == 0 {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return sign != 0
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point, polygon []Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// segmentDistance returns the distance from p to segment ab.
func segmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// simplify runs Douglas-Peucker on an open polyline, keeping both endpoints.
func simplify(pts []Point, epsilon float64) []Point {
	if len(pts) < 3 {
		out := make([]Point, len(pts))
		copy(out, pts)
		return out
	}

	first, last := pts[0], pts[len(pts)-1]
	index, maxDist := 0, 0.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], first, last); d > maxDist {
			index, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return []Point{first, last}
	}

	left := simplify(pts[:index+1], epsilon)
	right := simplify(pts[index:], epsilon)
	return append(left[:len(left)-1], right...)
}

// ApproxPolygon approximates a closed contour with fewer vertices.
//
// The contour is split at its first point and the point farthest from it,
// each half is simplified with Douglas-Peucker at tolerance epsilon, and
// vertices lying within epsilon of the line through their neighbors are
// removed.
func ApproxPolygon(contour []Point, epsilon float64) []Point {
	n := len(contour)
	if n < 3 {
		out := make([]Point, n)
		copy(out, contour)
		return out
	}

	far, farDist := 0, 0.0
	for i := 1; i < n; i++ {
		if d := contour[0].Dist(contour[i]); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return []Point{contour[0]}
	}

	first := simplify(contour[:far+1], epsilon)
	second := make([]Point, 0, n-far+1)
	second = append(second, contour[far:]...)
	second = append(second, contour[0])
	second = simplify(second, epsilon)

	poly := append(first[:len(first)-1], second[:len(second)-1]...)

	for changed := true; changed && len(poly) > 3; {
		changed = false
		for i := 0; i < len(poly) && len(poly) > 3; i++ {
			prev := poly[(i+len(poly)-1)%len(poly)]
			next := poly[(i+1)%len(poly)]
			if segmentDistance(poly[i], prev, next) < epsilon {
				poly = append(poly[:i], poly[i+1:]...)
				changed = true
				break
			}
		}
	}
	return poly
}
