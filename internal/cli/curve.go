package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/knotfield/internal/curve"
	"github.com/roach88/knotfield/internal/field"
)

// curvatureEpsilon regularizes curvature at stationary points.
const curvatureEpsilon = 1e-12

// CurveOptions holds flags for the curve command.
type CurveOptions struct {
	*RootOptions
	File    string
	Samples int
	Center  bool
	Points  bool
	Closed  bool
}

// CurveResult is the output of the curve command.
type CurveResult struct {
	Knot         string       `json:"knot"`
	Header       string       `json:"header"`
	Harmonics    int          `json:"harmonics"`
	Samples      int          `json:"samples"`
	Length       float64      `json:"length"`
	Centroid     field.Vec3   `json:"centroid"`
	MaxCurvature float64      `json:"max_curvature"`
	Points       []field.Vec3 `json:"points,omitempty"`
}

// RenderText writes the human-readable form.
func (r CurveResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "knot %s (%s, %d harmonic(s)): %d point(s)\n",
		r.Knot, displayHeader(r.Header), r.Harmonics, r.Samples)
	fmt.Fprintf(w, "length:        %.6f\n", r.Length)
	fmt.Fprintf(w, "centroid:      (%.6f, %.6f, %.6f)\n", r.Centroid[0], r.Centroid[1], r.Centroid[2])
	fmt.Fprintf(w, "max curvature: %.6f\n", r.MaxCurvature)
	for _, p := range r.Points {
		fmt.Fprintf(w, "%.9g %.9g %.9g\n", p[0], p[1], p[2])
	}
	return nil
}

// NewCurveCommand creates the curve command.
func NewCurveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CurveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "curve [knot-id]",
		Short: "Sample the filament curve of a knot",
		Long: `Evaluate the selected coefficient block of a knot on uniform samples over
[0, 2π) and report the polyline length, centroid and peak curvature.

Examples:
  knotfield curve 3_1 --samples 200
  knotfield curve --file trefoil.fseries --points
  knotfield curve 3_1 --points --closed
  knotfield curve 3_1 --center --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurve(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "read coefficients from this .fseries file instead of the catalog")
	cmd.Flags().IntVar(&opts.Samples, "samples", 0, "curve samples (default from config)")
	cmd.Flags().BoolVar(&opts.Center, "center", false, "translate the curve so its centroid is the origin")
	cmd.Flags().BoolVar(&opts.Points, "points", false, "include every sampled point in the output")
	cmd.Flags().BoolVar(&opts.Closed, "closed", false, "with --points, also evaluate s = 2π so the list ends on its first point")

	return cmd
}

func runCurve(opts *CurveOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "failed to load config", err)
	}
	samples := cfg.Samples
	if opts.Samples > 0 {
		samples = opts.Samples
	}

	cat, def, err := openCatalog(cfg, opts.File)
	if err != nil {
		return fail(formatter, "failed to load knots", err)
	}
	knot, err := knotArg(args, def)
	if err != nil {
		return failWith(formatter, ErrCodeNotFound, ExitCommandError, "missing knot", err)
	}
	block, err := cat.Largest(knot)
	if err != nil {
		return fail(formatter, "failed to resolve knot", err)
	}

	pts, err := curve.Reconstruct(block, samples)
	if err != nil {
		return fail(formatter, "failed to evaluate curve", err)
	}
	centroid := curve.Centroid(pts)
	if opts.Center {
		pts = curve.Center(pts)
	}

	var kmax float64
	for _, k := range curve.Curvature(pts, curvatureEpsilon) {
		kmax = max(kmax, k)
	}

	result := CurveResult{
		Knot:         knot,
		Header:       block.Header,
		Harmonics:    block.Harmonics(),
		Samples:      len(pts),
		Length:       curve.Length(pts),
		Centroid:     curve.Centroid(pts),
		MaxCurvature: kmax,
	}
	if opts.Points {
		result.Points = pts
	}
	if opts.Points && opts.Closed {
		// samples+1 points over [0, 2π] share the spacing of the open samples.
		closed, err := curve.Evaluate(block, curve.Linspace(samples+1))
		if err != nil {
			return fail(formatter, "failed to evaluate curve", err)
		}
		if opts.Center {
			for i := range closed {
				closed[i] = closed[i].Sub(centroid)
			}
		}
		result.Points = closed
	}
	return succeed(formatter, result)
}
