// Package curve evaluates Fourier knot blocks into closed 3D point sequences.
package curve

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/knotfield/internal/field"
	"github.com/roach88/knotfield/internal/fseries"
)

// Samples returns m parameters spread uniformly over [0, 2π), excluding 2π
// so that the sampled curve does not repeat its first point.
func Samples(m int) []float64 {
	if m <= 0 {
		return []float64{}
	}
	s := make([]float64, m)
	step := 2 * math.Pi / float64(m)
	for i := range s {
		s[i] = step * float64(i)
	}
	return s
}

// Linspace returns m parameters over [0, 2π] including both ends.
// The last point duplicates the first; the resulting zero-length closing
// segment contributes nothing to a Biot–Savart sum.
func Linspace(m int) []float64 {
	if m <= 0 {
		return []float64{}
	}
	if m == 1 {
		return []float64{0}
	}
	s := make([]float64, m)
	floats.Span(s, 0, 2*math.Pi)
	return s
}

// Evaluate returns r(s) for every parameter in s:
//
//	x(s) = Σ_{j=1..N} a_x[j-1]·cos(j·s) + b_x[j-1]·sin(j·s)
//
// and likewise for y and z. Work is O(N·M): each harmonic builds one cos
// and one sin vector and accumulates them into all three axes.
func Evaluate(b fseries.Block, s []float64) ([]field.Vec3, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	m := len(s)
	x := make([]float64, m)
	y := make([]float64, m)
	z := make([]float64, m)
	cosj := make([]float64, m)
	sinj := make([]float64, m)

	for j := 1; j <= b.Harmonics(); j++ {
		n := float64(j)
		for i, si := range s {
			sinj[i], cosj[i] = math.Sincos(n * si)
		}
		floats.AddScaled(x, b.AX[j-1], cosj)
		floats.AddScaled(x, b.BX[j-1], sinj)
		floats.AddScaled(y, b.AY[j-1], cosj)
		floats.AddScaled(y, b.BY[j-1], sinj)
		floats.AddScaled(z, b.AZ[j-1], cosj)
		floats.AddScaled(z, b.BZ[j-1], sinj)
	}

	pts := make([]field.Vec3, m)
	for i := range pts {
		pts[i] = field.Vec3{x[i], y[i], z[i]}
	}
	return pts, nil
}

// Reconstruct evaluates b on m uniform samples over [0, 2π).
func Reconstruct(b fseries.Block, m int) ([]field.Vec3, error) {
	return Evaluate(b, Samples(m))
}

// Centroid returns the arithmetic mean of pts, or the zero vector for an
// empty slice.
func Centroid(pts []field.Vec3) field.Vec3 {
	var c field.Vec3
	if len(pts) == 0 {
		return c
	}
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(pts)))
}

// Center returns a copy of pts translated so the centroid is the origin.
func Center(pts []field.Vec3) []field.Vec3 {
	c := Centroid(pts)
	out := make([]field.Vec3, len(pts))
	for i, p := range pts {
		out[i] = p.Sub(c)
	}
	return out
}

// Length returns the perimeter of the closed polyline through pts.
func Length(pts []field.Vec3) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var l float64
	for i := range pts {
		l += pts[(i+1)%n].Sub(pts[i]).Norm()
	}
	return l
}

// Curvature estimates κ at every point of a closed, uniformly parametrized
// curve with periodic central differences:
//
//	κ_i = |r' × r''| / (|r'|³ + eps)
//
// Curves with fewer than three points have zero curvature everywhere.
func Curvature(pts []field.Vec3, eps float64) []float64 {
	n := len(pts)
	k := make([]float64, n)
	if n < 3 {
		return k
	}
	for i := range pts {
		pm := pts[(i-1+n)%n]
		p0 := pts[i]
		pp := pts[(i+1)%n]

		r1 := pp.Sub(pm).Scale(0.5)
		r2 := pp.Sub(p0.Scale(2)).Add(pm)
		speed := r1.Norm()
		k[i] = r1.Cross(r2).Norm() / (speed*speed*speed + eps)
	}
	return k
}
