package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/knotfield/internal/config"
)

// ParamFlags holds per-command overrides of the configured run parameters.
// Only flags the user actually set take effect.
type ParamFlags struct {
	Samples     int
	GridSize    int
	Spacing     float64
	Margin      int
	Circulation float64
	Epsilon     float64
	Workers     int
	Center      bool
}

// addParamFlags registers the run parameter flags on cmd. Defaults shown in
// help are the built-in configuration.
func addParamFlags(cmd *cobra.Command, pf *ParamFlags) {
	d := config.Default()
	cmd.Flags().IntVar(&pf.Samples, "samples", d.Samples, "curve samples M")
	cmd.Flags().IntVar(&pf.GridSize, "grid", d.Grid.Size, "grid nodes per axis N")
	cmd.Flags().Float64Var(&pf.Spacing, "spacing", d.Grid.Spacing, "grid spacing h")
	cmd.Flags().IntVar(&pf.Margin, "margin", d.Grid.Margin, "interior margin m")
	cmd.Flags().Float64Var(&pf.Circulation, "circulation", d.Circulation, "circulation Γ")
	cmd.Flags().Float64Var(&pf.Epsilon, "epsilon", d.Epsilon, "Biot-Savart regularization ε")
	cmd.Flags().IntVar(&pf.Workers, "workers", d.Workers, "solver workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&pf.Center, "center", d.CenterCurve, "center the curve on its centroid")
}

// apply overlays the flags the user set onto cfg.
func (pf *ParamFlags) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("samples") {
		cfg.Samples = pf.Samples
	}
	if flags.Changed("grid") {
		cfg.Grid.Size = pf.GridSize
	}
	if flags.Changed("spacing") {
		cfg.Grid.Spacing = pf.Spacing
	}
	if flags.Changed("margin") {
		cfg.Grid.Margin = pf.Margin
	}
	if flags.Changed("circulation") {
		cfg.Circulation = pf.Circulation
	}
	if flags.Changed("epsilon") {
		cfg.Epsilon = pf.Epsilon
	}
	if flags.Changed("workers") {
		cfg.Workers = pf.Workers
	}
	if flags.Changed("center") {
		cfg.CenterCurve = pf.Center
	}
	return cfg
}

// resolveConfig loads the config, applies flag overrides and validates the
// result.
func resolveConfig(opts *RootOptions, cmd *cobra.Command, pf *ParamFlags) (config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return config.Config{}, err
	}
	cfg = pf.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
