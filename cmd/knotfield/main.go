// Command knotfield computes vortex filament invariants from Fourier knot
// coefficients.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/knotfield/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report ExitErrors through their formatter already.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
