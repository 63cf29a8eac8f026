package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/knotfield/internal/pipeline"
	"github.com/roach88/knotfield/internal/recompute"
	"github.com/roach88/knotfield/internal/store"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Params   ParamFlags
	File     string
	DB       string
	Grids    []int
	Margins  []int
	Samples  []int
	Parallel int
}

// SweepRow is one evaluated parameter combination.
type SweepRow struct {
	Samples      int     `json:"samples"`
	Grid         int     `json:"grid"`
	Margin       int     `json:"margin"`
	ParamKey     string  `json:"param_key"`
	Interior     int     `json:"interior"`
	HCharge      float64 `json:"h_charge"`
	HMass        float64 `json:"h_mass"`
	AnomalyRatio float64 `json:"anomaly_ratio"`

	// Cached is set when the memo already held the result before the
	// lookup.
	Cached bool `json:"cached"`
}

// SweepResult is the output of the sweep command.
type SweepResult struct {
	Knot string              `json:"knot"`
	Rows []SweepRow          `json:"rows"`
	Memo recompute.MemoStats `json:"memo"`
}

// RenderText writes the human-readable form.
func (r SweepResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "sweep of %s: %d run(s)\n", r.Knot, len(r.Rows))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLES\tGRID\tMARGIN\tINTERIOR\tH_CHARGE\tH_MASS\tANOMALY_RATIO")
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.6g\t%.6g\t%.6g\n",
			row.Samples, row.Grid, row.Margin, row.Interior,
			row.HCharge, row.HMass, row.AnomalyRatio)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "memo: %d computed, %d hit(s), %d miss(es), %d/%d entries\n",
		r.Memo.Computed, r.Memo.Hits, r.Memo.Misses, r.Memo.Entries, r.Memo.Capacity)
	return nil
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep [knot-id]",
		Short: "Compute invariants over a grid of parameters",
		Long: `Evaluate every combination of --sample-counts, --grids and --margins for
one knot. Unlisted dimensions keep the configured value. Results go through
the memo, so repeated combinations are computed once.

Examples:
  knotfield sweep 3_1 --grids 24,32,48 --margins 4,8
  knotfield sweep 3_1 --sample-counts 200,500,1000 --parallel 2 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd, args)
		},
	}

	addParamFlags(cmd, &opts.Params)
	cmd.Flags().StringVar(&opts.File, "file", "", "read coefficients from this .fseries file instead of the catalog")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record computed runs in this SQLite database")
	cmd.Flags().IntSliceVar(&opts.Grids, "grids", nil, "grid sizes to sweep")
	cmd.Flags().IntSliceVar(&opts.Margins, "margins", nil, "interior margins to sweep")
	cmd.Flags().IntSliceVar(&opts.Samples, "sample-counts", nil, "curve sample counts to sweep")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "combinations computed concurrently")

	return cmd
}

// expandSweep returns the cross product of the swept values over base,
// samples outermost. Empty lists keep the base value.
func expandSweep(base pipeline.Params, samples, grids, margins []int) []pipeline.Params {
	if len(samples) == 0 {
		samples = []int{base.Samples}
	}
	if len(grids) == 0 {
		grids = []int{base.Grid.Size[0]}
	}
	if len(margins) == 0 {
		margins = []int{base.Margin}
	}

	out := make([]pipeline.Params, 0, len(samples)*len(grids)*len(margins))
	for _, s := range samples {
		for _, n := range grids {
			for _, m := range margins {
				p := base
				p.Samples = s
				p.Grid.Size = [3]int{n, n, n}
				p.Margin = m
				out = append(out, p)
			}
		}
	}
	return out
}

func runSweep(opts *SweepOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := resolveConfig(opts.RootOptions, cmd, &opts.Params)
	if err != nil {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "invalid configuration", err)
	}

	cat, def, err := openCatalog(cfg, opts.File)
	if err != nil {
		return fail(formatter, "failed to load knots", err)
	}
	knot, err := knotArg(args, def)
	if err != nil {
		return failWith(formatter, ErrCodeNotFound, ExitCommandError, "missing knot", err)
	}

	combos := expandSweep(cfg.Params(knot), opts.Samples, opts.Grids, opts.Margins)
	for _, p := range combos {
		if err := p.Validate(); err != nil {
			return fail(formatter, "invalid sweep combination", err)
		}
	}

	formatter.VerboseLog("sweeping %d combination(s) of %s", len(combos), knot)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	memoOpts := []recompute.MemoOption{recompute.WithCapacity(cfg.Cache.Entries)}
	dbPath := opts.DB
	if dbPath == "" {
		dbPath = cfg.Database
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return failWith(formatter, ErrCodeStore, ExitFailure, "failed to open run store", err)
		}
		defer st.Close()
		memoOpts = append(memoOpts, recompute.WithSink(st))
	}
	memo := recompute.NewMemo(pipeline.NewRunner(cat).Run, memoOpts...)

	rows, err := sweepRows(ctx, memo, combos, opts.Parallel)
	if err != nil {
		return fail(formatter, "sweep failed", err)
	}

	return succeed(formatter, SweepResult{Knot: knot, Rows: rows, Memo: memo.Stats()})
}

// sweepRows evaluates combos through memo with at most parallel calls in
// flight. Rows keep the order of combos.
func sweepRows(ctx context.Context, memo *recompute.Memo, combos []pipeline.Params, parallel int) ([]SweepRow, error) {
	rows := make([]SweepRow, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, p := range combos {
		g.Go(func() error {
			_, cached := memo.Peek(p)
			res, err := memo.Get(gctx, p)
			if err != nil {
				return err
			}
			rows[i] = SweepRow{
				Samples:      p.Samples,
				Grid:         p.Grid.Size[0],
				Margin:       p.Margin,
				ParamKey:     res.ParamKey,
				Interior:     res.Interior,
				HCharge:      res.Invariants.HCharge,
				HMass:        res.Invariants.HMass,
				AnomalyRatio: res.Invariants.AnomalyRatio,
				Cached:       cached,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
