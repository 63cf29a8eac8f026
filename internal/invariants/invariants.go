// Package invariants reduces paired velocity and vorticity samples to
// scalar invariants.
//
// The generic reductions (CirculationFlux, Enstrophy) work on any matching
// pair of sequences. The helicity moments
//
//	H_charge = Σ V_i·W_i
//	H_mass   = Σ |W_i|²·r²_i
//
// and the derived ratio 0.5·(H_charge/H_mass − 1) operate on the interior
// samples of a single grid.
package invariants

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/knotfield/internal/field"
)

// MinMass is the smallest |H_mass| for which the anomaly ratio is defined.
// It only excludes zero and subnormal-scale values; see AnomalyRatio.
const MinMass = 1e-300

// Invariants is the terminal scalar triple of the pipeline.
type Invariants struct {
	HCharge      float64 `json:"h_charge"`
	HMass        float64 `json:"h_mass"`
	AnomalyRatio float64 `json:"anomaly_ratio"`
}

// CirculationFlux returns Σ ω_i·dA_i.
func CirculationFlux(omega, dA []field.Vec3) (float64, error) {
	if len(omega) != len(dA) {
		return 0, lengthError("circulation flux", len(omega), len(dA))
	}
	var sum float64
	for i := range omega {
		sum += omega[i].Dot(dA[i])
	}
	return sum, nil
}

// Enstrophy returns Σ ω²_i·dA_i.
func Enstrophy(omega2, dA []float64) (float64, error) {
	if len(omega2) != len(dA) {
		return 0, lengthError("enstrophy", len(omega2), len(dA))
	}
	if len(omega2) == 0 {
		return 0, nil
	}
	return floats.Dot(omega2, dA), nil
}

// Moments returns H_charge and H_mass for interior samples v, w and their
// squared distances r2. All three must have the same length.
func Moments(v, w []field.Vec3, r2 []float64) (hCharge, hMass float64, err error) {
	if len(v) != len(w) {
		return 0, 0, lengthError("helicity moments", len(v), len(w))
	}
	if len(w) != len(r2) {
		return 0, 0, lengthError("helicity moments", len(w), len(r2))
	}
	for i := range v {
		hCharge += v[i].Dot(w[i])
	}
	if len(w) > 0 {
		w2 := make([]float64, len(w))
		for i := range w {
			w2[i] = w[i].Norm2()
		}
		hMass = floats.Dot(w2, r2)
	}
	return hCharge, hMass, nil
}

// AnomalyRatio returns 0.5·(hCharge/hMass − 1). A zero (|hMass| < MinMass)
// or non-finite mass leaves the ratio undefined and fails with a
// DomainError.
//
// MinMass is absolute and tiny, so a mass that is merely near zero still
// yields a ratio. A self-retracing curve such as x = cos s has an H_mass of
// about 1e-26 made of rounding residue, and the ratio it gets is -0.5
// rather than an error. That run must still produce a finite triple, which
// rules out a relative or larger threshold here; callers that need to tell
// residue from signal should compare H_mass against their own scale.
func AnomalyRatio(hCharge, hMass float64) (float64, error) {
	if math.IsNaN(hMass) || math.IsInf(hMass, 0) {
		return 0, field.NewDomainError("anomaly ratio", fmt.Sprintf("H_mass is not finite (%v)", hMass))
	}
	if math.Abs(hMass) < MinMass {
		return 0, field.NewDomainError("anomaly ratio", fmt.Sprintf("H_mass is zero (%v), ratio undefined", hMass))
	}
	return 0.5 * (hCharge/hMass - 1), nil
}

// Compute returns the full triple. Length mismatches fail with a
// ShapeError and a zero H_mass with a DomainError; neither returns a
// partial result.
func Compute(v, w []field.Vec3, r2 []float64) (Invariants, error) {
	hc, hm, err := Moments(v, w, r2)
	if err != nil {
		return Invariants{}, err
	}
	ratio, err := AnomalyRatio(hc, hm)
	if err != nil {
		return Invariants{}, err
	}
	return Invariants{HCharge: hc, HMass: hm, AnomalyRatio: ratio}, nil
}

func lengthError(op string, a, b int) error {
	return field.NewShapeError(op, fmt.Sprintf("sequence lengths differ: %d vs %d", a, b))
}
