package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a transform cannot be solved or inverted.
var ErrSingular = errors.New("singular transform")

// Homography is a 3x3 projective transform stored row-major.
type Homography [9]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// SolveHomography computes the homography mapping the four src corners onto
// the four dst corners, with the bottom-right element fixed at 1.
//
// Each correspondence (x, y) -> (u, v) contributes two rows to an 8x8 linear
// system:
//
//	[x y 1 0 0 0 -ux -uy] h = u
//	[0 0 0 x y 1 -vx -vy] h = v
func SolveHomography(src, dst Quad) (Homography, error) {
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		A.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		A.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		B.SetVec(2*i, u)
		B.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, B); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var H Homography
	for i := 0; i < 8; i++ {
		H[i] = h.AtVec(i)
		if math.IsNaN(H[i]) || math.IsInf(H[i], 0) {
			return Homography{}, ErrSingular
		}
	}
	H[8] = 1
	return H, nil
}

// Apply maps p through the transform. ok is false when p maps to infinity.
func (h Homography) Apply(p Point) (Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Inverse returns the inverse transform.
func (h Homography) Inverse() (Homography, error) {
	m := mat.NewDense(3, 3, h[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var out Homography
	scale := inv.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		scale = 1
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = inv.At(r, c) / scale
		}
	}
	return out, nil
}
