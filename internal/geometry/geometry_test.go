package geometry

import (
	"errors"
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// permutations returns all orderings of four points.
func permutations(pts [4]Point) [][4]Point {
	var out [][4]Point
	idx := []int{0, 1, 2, 3}
	var rec func(k int)
	rec = func(k int) {
		if k == len(idx) {
			out = append(out, [4]Point{pts[idx[0]], pts[idx[1]], pts[idx[2]], pts[idx[3]]})
			return
		}
		for i := k; i < len(idx); i++ {
			idx[k], idx[i] = idx[i], idx[k]
			rec(k + 1)
			idx[k], idx[i] = idx[i], idx[k]
		}
	}
	rec(0)
	return out
}

func TestOrderPointsPermutationInvariant(t *testing.T) {
	tests := []struct {
		name string
		want Quad
	}{
		{"axis aligned", Quad{{0, 0}, {100, 0}, {100, 50}, {0, 50}}},
		{"skewed photo", Quad{{12, 20}, {410, 5}, {430, 560}, {3, 590}}},
		{"diamond", Quad{{50, 0}, {100, 50}, {50, 100}, {0, 50}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms := permutations([4]Point(tt.want))
			if len(perms) != 24 {
				t.Fatalf("got %d permutations, want 24", len(perms))
			}
			for _, p := range perms {
				got := OrderPoints(p)
				if got != tt.want {
					t.Fatalf("OrderPoints(%v) = %v, want %v", p, got, tt.want)
				}
			}
		})
	}
}

func TestQuadValidate(t *testing.T) {
	if err := (Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}}).Validate(); err != nil {
		t.Errorf("square: unexpected error %v", err)
	}
	collinear := Quad{{0, 0}, {5, 0}, {10, 0}, {15, 0}}
	if err := collinear.Validate(); !errors.Is(err, ErrDegenerateQuad) {
		t.Errorf("collinear: got %v, want ErrDegenerateQuad", err)
	}
	bowtie := Quad{{0, 0}, {10, 10}, {10, 0}, {0, 10}}
	if err := bowtie.Validate(); !errors.Is(err, ErrDegenerateQuad) {
		t.Errorf("bowtie: got %v, want ErrDegenerateQuad", err)
	}
}

func TestQuadSize(t *testing.T) {
	q := Quad{{0, 0}, {100, 0}, {90, 40}, {10, 50}}
	w, h := q.Size()
	if !approxEqual(w, 100, 1e-9) {
		t.Errorf("width = %v, want 100", w)
	}
	wantH := math.Hypot(10, 50)
	if !approxEqual(h, wantH, 1e-9) {
		t.Errorf("height = %v, want %v", h, wantH)
	}
}

func TestHomographyIdentityRoundTrip(t *testing.T) {
	q := RectQuad(200, 100)
	h, err := SolveHomography(q, q)
	if err != nil {
		t.Fatalf("SolveHomography: %v", err)
	}
	id := Identity()
	for i := range h {
		if !approxEqual(h[i], id[i], 1e-7) {
			t.Fatalf("homography = %v, want identity", h)
		}
	}
	for _, p := range []Point{{0, 0}, {37.5, 12}, {199, 99}} {
		got, ok := h.Apply(p)
		if !ok || !approxEqual(got.X, p.X, 1e-6) || !approxEqual(got.Y, p.Y, 1e-6) {
			t.Errorf("Apply(%v) = %v, want unchanged", p, got)
		}
	}
}

func TestHomographyMapsCorners(t *testing.T) {
	src := Quad{{12, 20}, {410, 5}, {430, 560}, {3, 590}}
	dst := RectQuad(400, 600)
	h, err := SolveHomography(src, dst)
	if err != nil {
		t.Fatalf("SolveHomography: %v", err)
	}
	for i := range src {
		got, ok := h.Apply(src[i])
		if !ok || !approxEqual(got.X, dst[i].X, 1e-6) || !approxEqual(got.Y, dst[i].Y, 1e-6) {
			t.Errorf("corner %d: Apply(%v) = %v, want %v", i, src[i], got, dst[i])
		}
	}

	inv, err := h.Inverse()
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	for i := range dst {
		got, ok := inv.Apply(dst[i])
		if !ok || !approxEqual(got.X, src[i].X, 1e-6) || !approxEqual(got.Y, src[i].Y, 1e-6) {
			t.Errorf("inverse corner %d: got %v, want %v", i, got, src[i])
		}
	}
}

func TestSolveHomographyDegenerate(t *testing.T) {
	src := Quad{{0, 0}, {0, 0}, {0, 0}, {0, 0}}
	if _, err := SolveHomography(src, RectQuad(10, 10)); !errors.Is(err, ErrSingular) {
		t.Errorf("got %v, want ErrSingular", err)
	}
}

func TestConvexHullAndArea(t *testing.T) {
	pts := []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {2, 2}, {1, 3}, {2, 0}}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("hull has %d points, want 4: %v", len(hull), hull)
	}
	if a := Area(hull); !approxEqual(a, 16, 1e-9) {
		t.Errorf("hull area = %v, want 16", a)
	}
	if !IsConvex(hull) {
		t.Error("hull should be convex")
	}
	if p := Perimeter(hull); !approxEqual(p, 16, 1e-9) {
		t.Errorf("perimeter = %v, want 16", p)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{5, 5}, true},
		{Point{0.5, 9.5}, true},
		{Point{11, 5}, false},
		{Point{-1, -1}, false},
	}
	for _, tt := range tests {
		if got := PointInPolygon(tt.p, square); got != tt.want {
			t.Errorf("PointInPolygon(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestApproxPolygonRectangle(t *testing.T) {
	// Dense outline of a 40x20 rectangle, clockwise on screen.
	var contour []Point
	for x := 0; x < 40; x++ {
		contour = append(contour, Point{float64(x), 0})
	}
	for y := 0; y < 20; y++ {
		contour = append(contour, Point{40, float64(y)})
	}
	for x := 40; x > 0; x-- {
		contour = append(contour, Point{float64(x), 20})
	}
	for y := 20; y > 0; y-- {
		contour = append(contour, Point{0, float64(y)})
	}

	eps := 0.02 * Perimeter(contour)
	poly := ApproxPolygon(contour, eps)
	if len(poly) != 4 {
		t.Fatalf("ApproxPolygon returned %d vertices, want 4: %v", len(poly), poly)
	}
	q := OrderPoints([4]Point{poly[0], poly[1], poly[2], poly[3]})
	want := Quad{{0, 0}, {40, 0}, {40, 20}, {0, 20}}
	if q != want {
		t.Errorf("ordered quad = %v, want %v", q, want)
	}
}
