// Package vorticity differentiates sampled velocity fields on periodic grids.
//
// Derivatives use second-order central differences with circular index
// shifts: the neighbor of the last node along an axis is the first node.
// Wraparound is a numerical approximation that lets every node use the same
// stencil; samples within one node of a face are contaminated by it and
// should be trimmed (see package interior) before reduction.
package vorticity

import (
	"fmt"
	"math"

	"github.com/roach88/knotfield/internal/field"
)

// minAxis is the smallest axis length a central difference is defined on.
const minAxis = 3

// Curl returns ∇×v on the same grid:
//
//	ω_x = ∂v_z/∂y − ∂v_y/∂z
//	ω_y = ∂v_x/∂z − ∂v_z/∂x
//	ω_z = ∂v_y/∂x − ∂v_x/∂y
//
// with ∂f/∂a ≈ [f(+1_a) − f(−1_a)]/(2h).
func Curl(v *field.VectorField, h float64) (*field.VectorField, error) {
	if err := checkInput("curl", v, h); err != nil {
		return nil, err
	}

	nx, ny, nz := v.Shape[0], v.Shape[1], v.Shape[2]
	out := field.NewVectorField(v.Shape)
	inv := 1 / (2 * h)

	for i := 0; i < nx; i++ {
		ip, im := wrap(i+1, nx), wrap(i-1, nx)
		for j := 0; j < ny; j++ {
			jp, jm := wrap(j+1, ny), wrap(j-1, ny)
			for k := 0; k < nz; k++ {
				kp, km := wrap(k+1, nz), wrap(k-1, nz)

				xp, xm := v.At(ip, j, k), v.At(im, j, k)
				yp, ym := v.At(i, jp, k), v.At(i, jm, k)
				zp, zm := v.At(i, j, kp), v.At(i, j, km)

				out.Set(i, j, k, field.Vec3{
					((yp[2] - ym[2]) - (zp[1] - zm[1])) * inv,
					((zp[0] - zm[0]) - (xp[2] - xm[2])) * inv,
					((xp[1] - xm[1]) - (yp[0] - ym[0])) * inv,
				})
			}
		}
	}
	return out, nil
}

// Divergence returns ∇·v with the same stencil as Curl. The divergence of a
// discrete curl vanishes up to rounding, which makes it a useful check.
func Divergence(v *field.VectorField, h float64) (*field.ScalarField, error) {
	if err := checkInput("divergence", v, h); err != nil {
		return nil, err
	}

	nx, ny, nz := v.Shape[0], v.Shape[1], v.Shape[2]
	out := field.NewScalarField(v.Shape)
	inv := 1 / (2 * h)

	for i := 0; i < nx; i++ {
		ip, im := wrap(i+1, nx), wrap(i-1, nx)
		for j := 0; j < ny; j++ {
			jp, jm := wrap(j+1, ny), wrap(j-1, ny)
			for k := 0; k < nz; k++ {
				kp, km := wrap(k+1, nz), wrap(k-1, nz)
				d := (v.At(ip, j, k)[0] - v.At(im, j, k)[0]) +
					(v.At(i, jp, k)[1] - v.At(i, jm, k)[1]) +
					(v.At(i, j, kp)[2] - v.At(i, j, km)[2])
				out.Data[out.Index(i, j, k)] = d * inv
			}
		}
	}
	return out, nil
}

func checkInput(op string, v *field.VectorField, h float64) error {
	for axis, n := range v.Shape {
		if n < minAxis {
			return field.NewShapeError(op, fmt.Sprintf("axis %d has %d nodes, central differences need at least %d", axis, n, minAxis))
		}
	}
	if want := v.Shape[0] * v.Shape[1] * v.Shape[2]; len(v.Data) != want {
		return field.NewShapeError(op, fmt.Sprintf("shape %v needs %d vectors, got %d", v.Shape, want, len(v.Data)))
	}
	if !(h > 0) || math.IsInf(h, 0) {
		return field.NewDomainError(op, fmt.Sprintf("spacing must be positive and finite, got %v", h))
	}
	return nil
}

func wrap(i, n int) int {
	if i < 0 {
		return i + n
	}
	if i >= n {
		return i - n
	}
	return i
}
