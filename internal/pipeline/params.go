package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/knotfield/internal/biotsavart"
	"github.com/roach88/knotfield/internal/field"
)

// DomainParams versions the Params.Key encoding.
const DomainParams = "knotfield/params/v1"

// Defaults used by DefaultParams.
const (
	DefaultSamples     = 1000
	DefaultGridSize    = 32
	DefaultSpacing     = 0.1
	DefaultMargin      = 8
	DefaultCirculation = 1.0
)

// Params is the complete input of one pipeline run.
type Params struct {
	KnotID      string     `json:"knot_id"`
	Samples     int        `json:"samples"`
	Grid        field.Grid `json:"grid"`
	Margin      int        `json:"margin"`
	Circulation float64    `json:"circulation"`
	Epsilon     float64    `json:"epsilon"`

	// CenterCurve subtracts the curve centroid before solving.
	CenterCurve bool `json:"center_curve"`

	// Workers bounds solver parallelism. It does not change results and is
	// not part of Key.
	Workers int `json:"-"`
}

// DefaultParams returns the reference configuration for knotID.
func DefaultParams(knotID string) Params {
	return Params{
		KnotID:      knotID,
		Samples:     DefaultSamples,
		Grid:        field.CubeGrid(DefaultGridSize, DefaultSpacing),
		Margin:      DefaultMargin,
		Circulation: DefaultCirculation,
		Epsilon:     biotsavart.DefaultEpsilon,
	}
}

// Validate rejects parameters no stage could accept.
func (p Params) Validate() error {
	if p.Samples < 2 {
		return field.NewDomainError("params", fmt.Sprintf("samples must be at least 2, got %d", p.Samples))
	}
	if err := p.Grid.Validate(); err != nil {
		return err
	}
	if p.Margin < 0 {
		return field.NewShapeError("params", fmt.Sprintf("margin must be non-negative, got %d", p.Margin))
	}
	if math.IsNaN(p.Circulation) || math.IsInf(p.Circulation, 0) {
		return field.NewDomainError("params", fmt.Sprintf("circulation must be finite, got %v", p.Circulation))
	}
	if math.IsNaN(p.Epsilon) || math.IsInf(p.Epsilon, 0) {
		return field.NewDomainError("params", fmt.Sprintf("epsilon must be finite, got %v", p.Epsilon))
	}
	return nil
}

// Key returns the content-addressed identity of p.
//
// Format: hex(SHA256(DomainParams + 0x00 + canonical)), where canonical is
// one "name=value" line per field in fixed order. Floats use the shortest
// representation that round-trips, and the knot id is NFC-normalized.
func (p Params) Key() string {
	h := sha256.New()
	h.Write([]byte(DomainParams))
	h.Write([]byte{0x00})
	h.Write([]byte(p.canonical()))
	return hex.EncodeToString(h.Sum(nil))
}

func (p Params) canonical() string {
	var b strings.Builder
	line := func(name, value string) {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	line("knot_id", norm.NFC.String(p.KnotID))
	line("samples", strconv.Itoa(p.Samples))
	line("grid.size", fmt.Sprintf("%d,%d,%d", p.Grid.Size[0], p.Grid.Size[1], p.Grid.Size[2]))
	line("grid.spacing", formatFloat(p.Grid.Spacing))
	line("grid.center", formatFloat(p.Grid.Center[0])+","+formatFloat(p.Grid.Center[1])+","+formatFloat(p.Grid.Center[2]))
	line("margin", strconv.Itoa(p.Margin))
	line("circulation", formatFloat(p.Circulation))
	line("epsilon", formatFloat(p.effectiveEpsilon()))
	line("center_curve", strconv.FormatBool(p.CenterCurve))
	return b.String()
}

// effectiveEpsilon mirrors biotsavart.WithEpsilon, which ignores
// non-positive values.
func (p Params) effectiveEpsilon() float64 {
	if p.Epsilon > 0 {
		return p.Epsilon
	}
	return biotsavart.DefaultEpsilon
}

func formatFloat(f float64) string {
	if f == 0 {
		// fold -0 into 0
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
