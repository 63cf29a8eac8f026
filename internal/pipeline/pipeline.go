package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/knotfield/internal/biotsavart"
	"github.com/roach88/knotfield/internal/curve"
	"github.com/roach88/knotfield/internal/field"
	"github.com/roach88/knotfield/internal/fseries"
	"github.com/roach88/knotfield/internal/interior"
	"github.com/roach88/knotfield/internal/invariants"
	"github.com/roach88/knotfield/internal/vorticity"
)

// Result is the outcome of one run.
type Result struct {
	RunID     string `json:"run_id,omitempty"`
	ParamKey  string `json:"param_key"`
	Params    Params `json:"params"`
	Header    string `json:"header"`
	Harmonics int    `json:"harmonics"`

	// Curve holds the sampled filament vertices (centered when
	// Params.CenterCurve is set).
	Curve []field.Vec3 `json:"-"`

	Invariants invariants.Invariants `json:"invariants"`

	// Interior is the number of grid nodes left after trimming the margin.
	Interior int `json:"interior"`

	// Flux is the circulation of the interior vorticity through z-facing
	// cells of area h².
	Flux float64 `json:"circulation_flux"`

	// Enstrophy is Σ|ω|² over interior cells of volume h³.
	Enstrophy float64 `json:"enstrophy"`

	// Divergence is max |∇·ω| over the interior. The discrete curl is
	// divergence free, so anything above rounding flags a broken solve. It
	// is not stored with recorded runs.
	Divergence float64 `json:"max_divergence"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// Run evaluates block under p. It does not consult p.KnotID beyond copying
// it into the result.
//
// Errors keep their type through wrapping: field.IsShapeError,
// field.IsDomainError and errors.As(*fseries.ParseError) all work on the
// returned error. A cancelled ctx aborts the solve and returns ctx.Err().
func Run(ctx context.Context, block fseries.Block, p Params) (*Result, error) {
	start := time.Now()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	pts, err := curve.Reconstruct(block, p.Samples)
	if err != nil {
		return nil, fmt.Errorf("evaluating curve: %w", err)
	}
	if p.CenterCurve {
		pts = curve.Center(pts)
	}
	slog.Debug("curve evaluated",
		"knot", p.KnotID,
		"harmonics", block.Harmonics(),
		"points", len(pts),
	)

	fil, err := biotsavart.NewFilament(pts)
	if err != nil {
		return nil, fmt.Errorf("building filament: %w", err)
	}
	solver := biotsavart.New(fil,
		biotsavart.WithCirculation(p.Circulation),
		biotsavart.WithEpsilon(p.Epsilon),
		biotsavart.WithWorkers(p.Workers),
	)
	v, err := solver.VelocityField(ctx, p.Grid)
	if err != nil {
		return nil, fmt.Errorf("solving velocity field: %w", err)
	}
	slog.Debug("velocity field solved",
		"knot", p.KnotID,
		"grid", p.Grid.String(),
		"segments", fil.Segments(),
	)

	w, err := vorticity.Curl(v, p.Grid.Spacing)
	if err != nil {
		return nil, fmt.Errorf("computing vorticity: %w", err)
	}

	pair, err := interior.ExtractPair(v, w, p.Grid, p.Margin)
	if err != nil {
		return nil, fmt.Errorf("extracting interior: %w", err)
	}
	slog.Debug("interior extracted",
		"knot", p.KnotID,
		"margin", p.Margin,
		"nodes", pair.Len(),
	)

	div, err := vorticityDivergence(w, p.Grid, p.Margin)
	if err != nil {
		return nil, fmt.Errorf("checking vorticity: %w", err)
	}

	inv, err := invariants.Compute(pair.V, pair.W, pair.R2)
	if err != nil {
		return nil, fmt.Errorf("aggregating invariants: %w", err)
	}
	flux, enstrophy, err := cellReductions(pair.W, p.Grid.Spacing)
	if err != nil {
		return nil, fmt.Errorf("aggregating invariants: %w", err)
	}

	return &Result{
		ParamKey:   p.Key(),
		Params:     p,
		Header:     block.Header,
		Harmonics:  block.Harmonics(),
		Curve:      pts,
		Invariants: inv,
		Interior:   pair.Len(),
		Flux:       flux,
		Enstrophy:  enstrophy,
		Divergence: div,
		Elapsed:    time.Since(start),
	}, nil
}

// cellReductions returns the z-facing circulation flux and the enstrophy of
// the interior vorticity w on a grid of spacing h.
func cellReductions(w []field.Vec3, h float64) (flux, enstrophy float64, err error) {
	area := make([]field.Vec3, len(w))
	omega2 := make([]float64, len(w))
	vol := make([]float64, len(w))
	for i, wi := range w {
		area[i] = field.Vec3{0, 0, h * h}
		omega2[i] = wi.Norm2()
		vol[i] = h * h * h
	}
	if flux, err = invariants.CirculationFlux(w, area); err != nil {
		return 0, 0, err
	}
	if enstrophy, err = invariants.Enstrophy(omega2, vol); err != nil {
		return 0, 0, err
	}
	return flux, enstrophy, nil
}

// vorticityDivergence returns max |∇·w| over the nodes left after trimming
// margin m.
func vorticityDivergence(w *field.VectorField, g field.Grid, m int) (float64, error) {
	div, err := vorticity.Divergence(w, g.Spacing)
	if err != nil {
		return 0, err
	}
	inner, err := interior.ExtractScalar(div, g, m)
	if err != nil {
		return 0, err
	}
	return floats.Norm(inner.Values, math.Inf(1)), nil
}

// BlockSource resolves a knot id to the block a run should use.
// *catalog.Catalog implements it.
type BlockSource interface {
	Largest(id string) (fseries.Block, error)
}

// Runner runs pipelines for catalogued knots.
//
// Thread-safety: a Runner holds no per-run state; Run may be called
// concurrently if the BlockSource and IDGenerator allow it.
type Runner struct {
	source BlockSource
	ids    IDGenerator
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithIDGenerator overrides the default UUIDv7 run ids.
func WithIDGenerator(g IDGenerator) RunnerOption {
	return func(r *Runner) {
		r.ids = g
	}
}

// NewRunner creates a Runner reading blocks from source.
func NewRunner(source BlockSource, opts ...RunnerOption) *Runner {
	r := &Runner{source: source, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves p.KnotID and executes the pipeline on its largest block.
// The signature matches recompute.ComputeFunc.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	if p.KnotID == "" {
		return nil, fmt.Errorf("run: empty knot id")
	}
	block, err := r.source.Largest(p.KnotID)
	if err != nil {
		return nil, err
	}

	slog.Debug("run starting", "knot", p.KnotID, "grid", p.Grid.String(), "samples", p.Samples)
	res, err := Run(ctx, block, p)
	if err != nil {
		return nil, fmt.Errorf("knot %q: %w", p.KnotID, err)
	}
	res.RunID = r.ids.Generate()

	slog.Info("run completed",
		"run_id", res.RunID,
		"knot", p.KnotID,
		"h_charge", res.Invariants.HCharge,
		"h_mass", res.Invariants.HMass,
		"anomaly_ratio", res.Invariants.AnomalyRatio,
		"elapsed", res.Elapsed,
	)
	return res, nil
}
