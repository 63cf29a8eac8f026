package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/knotfield/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB   string
	Knot string
	Run  string
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	DB   string      `json:"db"`
	Runs []store.Run `json:"runs"`
}

// RenderText writes the human-readable form.
func (r HistoryResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%d run(s)\n", len(r.Runs))
	if len(r.Runs) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tKNOT\tSAMPLES\tGRID\tMARGIN\tH_CHARGE\tH_MASS\tANOMALY_RATIO")
	for _, run := range r.Runs {
		p := run.Params
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\t%.6g\t%.6g\t%.6g\n",
			run.Seq, run.ID, p.KnotID, p.Samples, p.Grid.String(), p.Margin,
			run.Invariants.HCharge, run.Invariants.HMass, run.Invariants.AnomalyRatio)
	}
	return tw.Flush()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List the runs recorded in the SQLite history, oldest first.

Examples:
  knotfield history --db runs.db
  knotfield history --db runs.db --knot 3_1
  knotfield history --db runs.db --run 0190a5c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Knot, "knot", "", "only list runs of this knot")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show a single run by id")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	dbPath := opts.DB
	if dbPath == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return failWith(formatter, ErrCodeConfig, ExitCommandError, "failed to load config", err)
		}
		dbPath = cfg.Database
	}
	if dbPath == "" {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "no database",
			fmt.Errorf("no database configured: pass --db or set database in the config"))
	}

	// Opening would create an empty database.
	if _, err := os.Stat(dbPath); err != nil {
		return fail(formatter, "database not found", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return failWith(formatter, ErrCodeStore, ExitFailure, "failed to open run store", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	result := HistoryResult{DB: dbPath}
	if opts.Run != "" {
		run, err := st.ReadRun(ctx, opts.Run)
		if err != nil {
			return fail(formatter, "failed to read run", err)
		}
		result.Runs = []store.Run{run}
		return succeed(formatter, result)
	}

	result.Runs, err = st.ListRuns(ctx, opts.Knot)
	if err != nil {
		return failWith(formatter, ErrCodeStore, ExitFailure, "failed to list runs", err)
	}
	return succeed(formatter, result)
}
