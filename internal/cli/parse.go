package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/knotfield/internal/catalog"
	"github.com/roach88/knotfield/internal/fseries"
)

// BlockSummary describes one parsed coefficient block.
type BlockSummary struct {
	Index     int           `json:"index"`
	Header    string        `json:"header"`
	Harmonics int           `json:"harmonics"`
	Rows      []fseries.Row `json:"rows,omitempty"`
}

// ParseResult is the output of the parse command.
type ParseResult struct {
	File    string         `json:"file"`
	Blocks  []BlockSummary `json:"blocks"`
	Largest int            `json:"largest"` // -1 when the file has no blocks
}

// RenderText writes the human-readable form.
func (r ParseResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s: %d block(s)\n", r.File, len(r.Blocks))
	for _, b := range r.Blocks {
		fmt.Fprintf(w, "  [%d] %s: %d harmonic(s)\n", b.Index, displayHeader(b.Header), b.Harmonics)
		for _, row := range b.Rows {
			fmt.Fprintf(w, "      %g %g %g %g %g %g\n", row[0], row[1], row[2], row[3], row[4], row[5])
		}
	}
	if r.Largest >= 0 {
		b := r.Blocks[r.Largest]
		fmt.Fprintf(w, "largest: [%d] %s\n", b.Index, displayHeader(b.Header))
	}
	return nil
}

func displayHeader(h string) string {
	if h == "" {
		return "(unnamed)"
	}
	return h
}

// summarizeBlocks lists blocks and picks the largest. With rows set each
// summary carries its coefficients, harmonic 1 first.
func summarizeBlocks(blocks []fseries.Block, rows bool) ([]BlockSummary, int) {
	out := make([]BlockSummary, len(blocks))
	for i, b := range blocks {
		out[i] = BlockSummary{Index: i, Header: b.Header, Harmonics: b.Harmonics()}
		if rows {
			for j := 1; j <= b.Harmonics(); j++ {
				out[i].Rows = append(out[i].Rows, b.Row(j))
			}
		}
	}
	largest, err := catalog.SelectLargest(blocks)
	if err != nil {
		largest = -1
	}
	return out, largest
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	var coefficients bool
	cmd := &cobra.Command{
		Use:   "parse <file.fseries>",
		Short: "Parse a Fourier coefficient file and list its blocks",
		Long: `Parse a .fseries file and list every coefficient block with its header
and harmonic count. The block with the most harmonics (earliest on ties) is
the one other commands use.

Examples:
  knotfield parse knots/3_1.fseries
  knotfield parse knots/3_1.fseries --format json
  knotfield parse knots/3_1.fseries --coefficients`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, cmd, args[0], coefficients)
		},
	}
	cmd.Flags().BoolVar(&coefficients, "coefficients", false, "print every coefficient row (a_x b_x a_y b_y a_z b_z)")
	return cmd
}

func runParse(opts *RootOptions, cmd *cobra.Command, path string, coefficients bool) error {
	formatter := newFormatter(opts, cmd)

	f, err := os.Open(path)
	if err != nil {
		return fail(formatter, "failed to open file", err)
	}
	defer f.Close()

	blocks, err := fseries.Parse(f)
	if err != nil {
		return fail(formatter, "failed to parse file", err)
	}

	summaries, largest := summarizeBlocks(blocks, coefficients)
	return succeed(formatter, ParseResult{
		File:    path,
		Blocks:  summaries,
		Largest: largest,
	})
}
