package vorticity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/knotfield/internal/field"
	"github.com/roach88/knotfield/internal/testutil"
)

// sample fills a field on grid with fn evaluated at every node.
func sample(g field.Grid, fn func(p field.Vec3) field.Vec3) *field.VectorField {
	f := field.NewVectorField(g.Size)
	for i := 0; i < g.Size[0]; i++ {
		for j := 0; j < g.Size[1]; j++ {
			for k := 0; k < g.Size[2]; k++ {
				f.Set(i, j, k, fn(g.Point(i, j, k)))
			}
		}
	}
	return f
}

func TestCurl_SolidBodyRotation(t *testing.T) {
	const omega = 1.7
	g := field.CubeGrid(12, 0.1)
	v := sample(g, func(p field.Vec3) field.Vec3 {
		return field.Vec3{-omega * p[1], omega * p[0], 0}
	})

	w, err := Curl(v, g.Spacing)
	require.NoError(t, err)
	assert.Equal(t, v.Shape, w.Shape)

	// Interior nodes see no wraparound; the stencil is exact for linear fields.
	for i := 1; i < 11; i++ {
		for j := 1; j < 11; j++ {
			for k := 1; k < 11; k++ {
				got := w.At(i, j, k)
				assert.InDelta(t, 2*omega, got[2], 1e-10)
				assert.InDelta(t, 0, got[0], 1e-10)
				assert.InDelta(t, 0, got[1], 1e-10)
			}
		}
	}

	// Faces see the periodic jump and are wrong by construction.
	assert.Greater(t, math.Abs(w.At(0, 5, 5)[2]-2*omega), 1.0)
}

func TestCurl_TiltedRotation(t *testing.T) {
	omega := field.Vec3{0.3, -0.5, 1.1}
	g := field.CubeGrid(8, 0.25)
	g.Center = field.Vec3{0.5, -1, 2}

	w, err := Curl(testutil.RotationField(g, omega), g.Spacing)
	require.NoError(t, err)

	for i := 1; i < 7; i++ {
		for j := 1; j < 7; j++ {
			for k := 1; k < 7; k++ {
				got := w.At(i, j, k)
				for axis := range 3 {
					assert.InDelta(t, 2*omega[axis], got[axis], 1e-10)
				}
			}
		}
	}
}

// curlError returns the max interior error of the z-curl of
// v = (−sin y, sin x, 0), whose exact curl is cos x + cos y.
func curlError(t *testing.T, n int) float64 {
	t.Helper()
	h := 1.0 / float64(n)
	g := field.CubeGrid(n, h)
	v := sample(g, func(p field.Vec3) field.Vec3 {
		return field.Vec3{-math.Sin(p[1]), math.Sin(p[0]), 0}
	})
	w, err := Curl(v, h)
	require.NoError(t, err)

	var maxErr float64
	for i := 1; i < n-1; i++ {
		for j := 1; j < n-1; j++ {
			p := g.Point(i, j, n/2)
			exact := math.Cos(p[0]) + math.Cos(p[1])
			maxErr = math.Max(maxErr, math.Abs(w.At(i, j, n/2)[2]-exact))
		}
	}
	return maxErr
}

func TestCurl_SecondOrderConvergence(t *testing.T) {
	coarse := curlError(t, 8)
	fine := curlError(t, 16)

	require.Greater(t, coarse, 0.0)
	ratio := coarse / fine
	// Halving h quarters the error for a second-order stencil.
	assert.InDelta(t, 4, ratio, 0.5)
	assert.Less(t, fine, 2e-3)
}

func TestCurl_AxisTooSmall(t *testing.T) {
	for _, shape := range [][3]int{{2, 5, 5}, {5, 2, 5}, {5, 5, 1}} {
		_, err := Curl(field.NewVectorField(shape), 0.1)
		require.Error(t, err)
		assert.True(t, field.IsShapeError(err), "shape %v", shape)
	}
}

func TestCurl_BadSpacing(t *testing.T) {
	v := field.NewVectorField([3]int{3, 3, 3})
	for _, h := range []float64{0, -0.1, math.Inf(1), math.NaN()} {
		_, err := Curl(v, h)
		assert.True(t, field.IsDomainError(err), "h=%v", h)
	}
}

func TestCurl_DataLengthMismatch(t *testing.T) {
	v := &field.VectorField{Shape: [3]int{3, 3, 3}, Data: make([]field.Vec3, 26)}
	_, err := Curl(v, 1)
	assert.True(t, field.IsShapeError(err))
}

func TestDivergence(t *testing.T) {
	g := field.CubeGrid(6, 0.5)
	radial := sample(g, func(p field.Vec3) field.Vec3 { return p })

	div, err := Divergence(radial, g.Spacing)
	require.NoError(t, err)
	assert.InDelta(t, 3, div.At(2, 3, 3), 1e-12)

	// ∇·(∇×v) vanishes identically for the discrete operators on a periodic grid.
	v := sample(g, func(p field.Vec3) field.Vec3 {
		return field.Vec3{math.Sin(p[1] * p[2]), p[0] * p[0], math.Cos(p[0])}
	})
	w, err := Curl(v, g.Spacing)
	require.NoError(t, err)
	dw, err := Divergence(w, g.Spacing)
	require.NoError(t, err)
	for _, d := range dw.Data {
		assert.InDelta(t, 0, d, 1e-12)
	}

	_, err = Divergence(field.NewVectorField([3]int{2, 3, 3}), 1)
	assert.True(t, field.IsShapeError(err))
}
