package invariants

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/knotfield/internal/field"
)

func repeatVec(v field.Vec3, n int) []field.Vec3 {
	out := make([]field.Vec3, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func repeat(x float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = x
	}
	return out
}

func TestCirculationFlux(t *testing.T) {
	// 100 unit-z vorticity samples through 0.01-area z-facing patches.
	flux, err := CirculationFlux(repeatVec(field.Vec3{0, 0, 1}, 100), repeatVec(field.Vec3{0, 0, 0.01}, 100))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, flux, 1e-12)

	// Tangential area elements contribute nothing.
	flux, err = CirculationFlux([]field.Vec3{{0, 0, 5}}, []field.Vec3{{1, 1, 0}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, flux)

	flux, err = CirculationFlux(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, flux)

	_, err = CirculationFlux(make([]field.Vec3, 3), make([]field.Vec3, 2))
	assert.True(t, field.IsShapeError(err))
}

func TestEnstrophy(t *testing.T) {
	e, err := Enstrophy(repeat(1, 100), repeat(0.01, 100))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, e, 1e-12)

	e, err = Enstrophy([]float64{2, 3}, []float64{0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, 4.0, e)

	e, err = Enstrophy(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, e)

	_, err = Enstrophy([]float64{1}, nil)
	assert.True(t, field.IsShapeError(err))
}

func TestMoments(t *testing.T) {
	v := []field.Vec3{{1, 0, 0}, {0, 2, 0}, {1, 1, 1}}
	w := []field.Vec3{{3, 0, 0}, {0, 1, 1}, {0, 0, 2}}
	r2 := []float64{1, 2, 0.5}

	hc, hm, err := Moments(v, w, r2)
	require.NoError(t, err)
	assert.Equal(t, 3.0+2.0+2.0, hc)
	assert.Equal(t, 9*1+2*2+4*0.5, hm)

	_, _, err = Moments(v, w[:2], r2)
	assert.True(t, field.IsShapeError(err))
	_, _, err = Moments(v, w, r2[:1])
	assert.True(t, field.IsShapeError(err))
}

func TestAnomalyRatio(t *testing.T) {
	r, err := AnomalyRatio(3, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	r, err = AnomalyRatio(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)

	r, err = AnomalyRatio(-2, 4)
	require.NoError(t, err)
	assert.Equal(t, -0.75, r)
}

func TestAnomalyRatio_UndefinedMass(t *testing.T) {
	for _, hm := range []float64{0, math.Copysign(0, -1), 1e-310, math.NaN(), math.Inf(1)} {
		_, err := AnomalyRatio(1, hm)
		require.Error(t, err, "hMass=%v", hm)
		assert.True(t, field.IsDomainError(err))
	}
}

func TestAnomalyRatio_ResidueMassIsDefined(t *testing.T) {
	// Rounding residue of a retracing curve is tiny but above MinMass.
	r, err := AnomalyRatio(-5.04e-46, 1.09e-26)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, r, 1e-15)

	_, err = AnomalyRatio(1, MinMass/2)
	assert.True(t, field.IsDomainError(err))
}

func TestCompute(t *testing.T) {
	v := []field.Vec3{{1, 0, 0}, {0, 1, 0}}
	w := []field.Vec3{{2, 0, 0}, {0, 2, 0}}
	r2 := []float64{1, 1}

	inv, err := Compute(v, w, r2)
	require.NoError(t, err)
	assert.Equal(t, Invariants{HCharge: 4, HMass: 8, AnomalyRatio: -0.25}, inv)
}

func TestCompute_ZeroMassIsUndefined(t *testing.T) {
	// All vorticity sits at the center, where r² = 0.
	inv, err := Compute([]field.Vec3{{1, 0, 0}}, []field.Vec3{{1, 0, 0}}, []float64{0})
	require.Error(t, err)
	assert.True(t, field.IsDomainError(err))
	assert.Equal(t, Invariants{}, inv)

	_, err = Compute(nil, nil, nil)
	assert.True(t, field.IsDomainError(err))
}

func TestCompute_LengthMismatch(t *testing.T) {
	_, err := Compute(make([]field.Vec3, 2), make([]field.Vec3, 2), make([]float64, 3))
	assert.True(t, field.IsShapeError(err))
}
