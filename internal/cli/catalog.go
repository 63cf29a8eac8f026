package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/knotfield/internal/catalog"
)

// KnotSummary describes one catalogued knot.
type KnotSummary struct {
	ID        string `json:"id"`
	Blocks    int    `json:"blocks"`
	Header    string `json:"header"`
	Harmonics int    `json:"harmonics"`
}

// CatalogResult is the output of the catalog command.
type CatalogResult struct {
	Dir   string        `json:"dir"`
	Knots []KnotSummary `json:"knots"`
}

// RenderText writes the human-readable form.
func (r CatalogResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%d knot(s) in %s\n", len(r.Knots), r.Dir)
	for _, k := range r.Knots {
		fmt.Fprintf(w, "  %s: %d block(s), largest %s with %d harmonic(s)\n",
			k.ID, k.Blocks, displayHeader(k.Header), k.Harmonics)
	}
	return nil
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [dir]",
		Short: "List the knots of a catalog directory",
		Long: `List every *.fseries file below a directory as a knot id (the file name
without extension) together with its selected block.

The directory defaults to the configured catalog.

Examples:
  knotfield catalog ./knots
  knotfield catalog --config knotfield.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runCatalog(rootOpts, cmd, dir)
		},
	}
	return cmd
}

func runCatalog(opts *RootOptions, cmd *cobra.Command, dir string) error {
	formatter := newFormatter(opts, cmd)

	if dir == "" {
		cfg, err := loadConfig(opts)
		if err != nil {
			return failWith(formatter, ErrCodeConfig, ExitCommandError, "failed to load config", err)
		}
		dir = cfg.Catalog
	}

	cat, err := catalog.LoadDir(dir)
	if err != nil {
		return fail(formatter, "failed to load catalog", err)
	}

	result := CatalogResult{Dir: dir, Knots: []KnotSummary{}}
	for _, id := range cat.IDs() {
		blocks, err := cat.Blocks(id)
		if err != nil {
			return fail(formatter, "failed to parse knot", err)
		}
		summary := KnotSummary{ID: id, Blocks: len(blocks)}
		if idx, err := catalog.SelectLargest(blocks); err == nil {
			summary.Header = blocks[idx].Header
			summary.Harmonics = blocks[idx].Harmonics()
		}
		result.Knots = append(result.Knots, summary)
	}
	return succeed(formatter, result)
}
