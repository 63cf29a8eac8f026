package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/knotfield/internal/pipeline"
	"github.com/roach88/knotfield/internal/store"
)

// InvariantsOptions holds flags for the invariants command.
type InvariantsOptions struct {
	*RootOptions
	Params ParamFlags
	File   string
	DB     string
	Reuse  bool
}

// InvariantsResult is the output of the invariants command.
type InvariantsResult struct {
	*pipeline.Result
	Seq    int64 `json:"seq,omitempty"`
	Reused bool  `json:"reused,omitempty"`
}

// RenderText writes the human-readable form.
func (r InvariantsResult) RenderText(w io.Writer) error {
	p := r.Params
	fmt.Fprintf(w, "knot:          %s (%s, %d harmonic(s))\n", p.KnotID, displayHeader(r.Header), r.Harmonics)
	fmt.Fprintf(w, "grid:          %s, margin %d, %d interior node(s)\n", p.Grid.String(), p.Margin, r.Interior)
	fmt.Fprintf(w, "h_charge:      %.9g\n", r.Invariants.HCharge)
	fmt.Fprintf(w, "h_mass:        %.9g\n", r.Invariants.HMass)
	fmt.Fprintf(w, "anomaly_ratio: %.9g\n", r.Invariants.AnomalyRatio)
	fmt.Fprintf(w, "circulation:   %.9g\n", r.Flux)
	fmt.Fprintf(w, "enstrophy:     %.9g\n", r.Enstrophy)
	if !r.Reused {
		fmt.Fprintf(w, "divergence:    %.3g\n", r.Divergence)
	}
	switch {
	case r.Reused:
		fmt.Fprintf(w, "run:           %s (#%d, reused)\n", r.RunID, r.Seq)
	case r.Seq > 0:
		fmt.Fprintf(w, "run:           %s (#%d)\n", r.RunID, r.Seq)
	default:
		fmt.Fprintf(w, "run:           %s\n", r.RunID)
	}
	return nil
}

// NewInvariantsCommand creates the invariants command.
func NewInvariantsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvariantsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invariants [knot-id]",
		Short: "Compute helicity invariants of a knot",
		Long: `Run the full pipeline for one knot: reconstruct the filament, solve the
Biot-Savart velocity on the grid, take its curl, trim the margin and reduce
the interior to H_charge, H_mass and the anomaly ratio.

With --db (or database in the config) the run is appended to the history.

With --reuse, a recorded run with the same parameter key is returned as is.

Examples:
  knotfield invariants 3_1
  knotfield invariants 3_1 --grid 48 --spacing 0.08 --margin 10
  knotfield invariants --file trefoil.fseries --db runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvariants(opts, cmd, args)
		},
	}

	addParamFlags(cmd, &opts.Params)
	cmd.Flags().StringVar(&opts.File, "file", "", "read coefficients from this .fseries file instead of the catalog")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Reuse, "reuse", false, "return the latest recorded run with identical parameters instead of computing")

	return cmd
}

func runInvariants(opts *InvariantsOptions, cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = cfg.Database
	}
	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return failWith(formatter, ErrCodeStore, ExitFailure, "failed to open run store", err)
		}
		defer st.Close()
	}

	params := cfg.Params(knot)
	if opts.Reuse && st != nil {
		run, err := st.LatestRun(ctx, params.Key())
		switch {
		case err == nil:
			slog.Debug("reusing recorded run", "run_id", run.ID, "param_key", run.ParamKey)
			return succeed(formatter, InvariantsResult{Result: run.Result(), Seq: run.Seq, Reused: true})
		case !errors.Is(err, store.ErrNotFound):
			return failWith(formatter, ErrCodeStore, ExitFailure, "failed to look up run", err)
		}
	}

	res, err := pipeline.NewRunner(cat).Run(ctx, params)
	if err != nil {
		return fail(formatter, "run failed", err)
	}

	result := InvariantsResult{Result: res}
	if st != nil {
		seq, err := st.WriteRun(ctx, store.RunFromResult(res))
		if err != nil {
			return failWith(formatter, ErrCodeStore, ExitFailure, "failed to record run", err)
		}
		result.Seq = seq
		formatter.VerboseLog("recorded run %s as #%d in %s", res.RunID, seq, dbPath)
	}

	return succeed(formatter, result)
}
