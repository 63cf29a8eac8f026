package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/knotfield/internal/field"
	"github.com/roach88/knotfield/internal/pipeline"
	"github.com/roach88/knotfield/internal/recompute"
)

//go:embed schema.cue
var schemaCUE string

// Config is the file-level configuration of the knotfield CLI.
type Config struct {
	// Catalog is the directory scanned for *.fseries files.
	Catalog string `yaml:"catalog" json:"catalog"`

	// Database is the SQLite run history path. Empty disables recording.
	Database string `yaml:"database" json:"database"`

	// Knot is the default knot id for commands that take one.
	Knot string `yaml:"knot" json:"knot"`

	Samples     int     `yaml:"samples" json:"samples"`
	Circulation float64 `yaml:"circulation" json:"circulation"`
	Epsilon     float64 `yaml:"epsilon" json:"epsilon"`
	Workers     int     `yaml:"workers" json:"workers"`
	CenterCurve bool    `yaml:"center_curve" json:"center_curve"`

	Grid  GridConfig  `yaml:"grid" json:"grid"`
	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// GridConfig describes a cubic sampling grid.
type GridConfig struct {
	Size    int        `yaml:"size" json:"size"`
	Spacing float64    `yaml:"spacing" json:"spacing"`
	Center  [3]float64 `yaml:"center" json:"center"`
	Margin  int        `yaml:"margin" json:"margin"`
}

// CacheConfig sizes the result memo.
type CacheConfig struct {
	Entries int `yaml:"entries" json:"entries"`
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	src := e.Path
	if src == "" {
		src = "config"
	}
	return fmt.Sprintf("%s: invalid configuration: %s", src, strings.Join(e.Problems, "; "))
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Catalog:     "knots",
		Samples:     pipeline.DefaultSamples,
		Circulation: pipeline.DefaultCirculation,
		Epsilon:     1e-12,
		Grid: GridConfig{
			Size:    pipeline.DefaultGridSize,
			Spacing: pipeline.DefaultSpacing,
			Margin:  pipeline.DefaultMargin,
		},
		Cache: CacheConfig{Entries: recompute.DefaultCapacity},
	}
}

// Load reads path over Default and validates the result. An empty file
// yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	// Strict field validation catches typos like "sample:" vs "samples:"
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks c against the embedded schema and the cross-field rules.
func (c Config) Validate() error {
	var problems []string

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(c)
	if err := val.Err(); err != nil {
		problems = append(problems, err.Error())
	} else if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, describe(e))
		}
	}

	if 2*c.Grid.Margin >= c.Grid.Size {
		problems = append(problems, fmt.Sprintf("grid.margin %d leaves no interior in a grid of size %d", c.Grid.Margin, c.Grid.Size))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// describe renders a schema error as "path: message".
func describe(e cueerrors.Error) string {
	format, args := e.Msg()
	msg := fmt.Sprintf(format, args...)
	if path := strings.Join(e.Path(), "."); path != "" {
		return path + ": " + msg
	}
	return msg
}

// Params builds pipeline parameters for knotID, falling back to c.Knot
// when knotID is empty.
func (c Config) Params(knotID string) pipeline.Params {
	if knotID == "" {
		knotID = c.Knot
	}
	n := c.Grid.Size
	return pipeline.Params{
		KnotID:  knotID,
		Samples: c.Samples,
		Grid: field.Grid{
			Size:    [3]int{n, n, n},
			Spacing: c.Grid.Spacing,
			Center:  field.Vec3(c.Grid.Center),
		},
		Margin:      c.Grid.Margin,
		Circulation: c.Circulation,
		Epsilon:     c.Epsilon,
		CenterCurve: c.CenterCurve,
		Workers:     c.Workers,
	}
}
