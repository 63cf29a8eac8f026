package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/knotfield/internal/catalog"
	"github.com/roach88/knotfield/internal/config"
	"github.com/roach88/knotfield/internal/invariants"
	"github.com/roach88/knotfield/internal/pipeline"
	"github.com/roach88/knotfield/internal/store"
)

// smallGridArgs keeps pipeline runs fast: 8³ grid, 4³ interior.
var smallGridArgs = []string{"--samples", "64", "--grid", "8", "--spacing", "0.4", "--margin", "2"}

// executeCommand runs the root command with args and returns what it wrote
// to stdout. Logs are discarded.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// decodeData unmarshals the data field of a JSON success response.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// decodeError unmarshals the error field of a JSON error response.
func decodeError(t *testing.T, out string) CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

// writeConfig writes a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "knotfield.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseCommand_Golden(t *testing.T) {
	out, err := executeCommand(t, "parse", "testdata/trefoil.fseries")
	require.NoError(t, err)

	newGolden(t).Assert(t, "parse_trefoil", []byte(out))
}

func TestParseCommand_CoefficientsGolden(t *testing.T) {
	out, err := executeCommand(t, "parse", "testdata/trefoil.fseries", "--coefficients")
	require.NoError(t, err)

	newGolden(t).Assert(t, "parse_trefoil_coefficients", []byte(out))
}

func TestParseCommand_JSON(t *testing.T) {
	out, err := executeCommand(t, "--format", "json", "parse", "testdata/trefoil.fseries")
	require.NoError(t, err)

	var res ParseResult
	decodeData(t, out, &res)
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, 1, res.Largest)
	assert.Equal(t, "3_1 trefoil", res.Blocks[1].Header)
	assert.Equal(t, 3, res.Blocks[1].Harmonics)
}

func TestParseCommand_HeaderOnly(t *testing.T) {
	out, err := executeCommand(t, "--format", "json", "parse", "testdata/empty.fseries")
	require.NoError(t, err)

	var res ParseResult
	decodeData(t, out, &res)
	assert.Empty(t, res.Blocks)
	assert.Equal(t, -1, res.Largest)
}

func TestCatalogCommand_Golden(t *testing.T) {
	out, err := executeCommand(t, "catalog", "testdata/knots")
	require.NoError(t, err)

	newGolden(t).Assert(t, "catalog_knots", []byte(out))
}

func TestCatalogCommand_DirFromConfig(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "catalog: testdata/knots\n")

	out, err := executeCommand(t, "--format", "json", "--config", cfgPath, "catalog")
	require.NoError(t, err)

	var res CatalogResult
	decodeData(t, out, &res)
	require.Len(t, res.Knots, 2)
	assert.Equal(t, "3_1", res.Knots[0].ID)
	assert.Equal(t, "circle", res.Knots[1].ID)
}

func TestCurveCommand_File(t *testing.T) {
	out, err := executeCommand(t, "--format", "json",
		"curve", "--file", "testdata/trefoil.fseries", "--samples", "64", "--points")
	require.NoError(t, err)

	var res CurveResult
	decodeData(t, out, &res)
	assert.Equal(t, "trefoil", res.Knot)
	assert.Equal(t, "3_1 trefoil", res.Header)
	assert.Equal(t, 3, res.Harmonics)
	assert.Equal(t, 64, res.Samples)
	assert.Len(t, res.Points, 64)
	assert.Greater(t, res.Length, 0.0)
	assert.Greater(t, res.MaxCurvature, 0.0)
}

func TestCurveCommand_CircleFromCatalog(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "catalog: testdata/knots\n")

	out, err := executeCommand(t, "--format", "json", "--config", cfgPath, "curve", "circle")
	require.NoError(t, err)

	var res CurveResult
	decodeData(t, out, &res)
	assert.Equal(t, 1000, res.Samples)
	assert.InDelta(t, 2*math.Pi, res.Length, 1e-4)
	assert.InDelta(t, 1.0, res.MaxCurvature, 1e-3)
	for axis := range 3 {
		assert.InDelta(t, 0.0, res.Centroid[axis], 1e-9)
	}
	assert.Empty(t, res.Points)
}

func TestCurveCommand_Text(t *testing.T) {
	out, err := executeCommand(t, "curve", "--file", "testdata/trefoil.fseries", "--samples", "8", "--points")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4+8)
	assert.Equal(t, "knot trefoil (3_1 trefoil, 3 harmonic(s)): 8 point(s)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "length:"))
}

func TestCurveCommand_ClosedPoints(t *testing.T) {
	out, err := executeCommand(t, "--format", "json", "curve", "--file", "testdata/trefoil.fseries",
		"--samples", "8", "--points", "--closed", "--center")
	require.NoError(t, err)

	var res CurveResult
	decodeData(t, out, &res)
	assert.Equal(t, 8, res.Samples)
	require.Len(t, res.Points, 9)
	first, last := res.Points[0], res.Points[8]
	for axis := range 3 {
		assert.InDelta(t, first[axis], last[axis], 1e-12)
	}

	open, err := executeCommand(t, "--format", "json", "curve", "--file", "testdata/trefoil.fseries",
		"--samples", "8", "--points", "--center")
	require.NoError(t, err)
	var openRes CurveResult
	decodeData(t, open, &openRes)
	require.Len(t, openRes.Points, 8)
	for i, p := range openRes.Points {
		for axis := range 3 {
			assert.InDelta(t, p[axis], res.Points[i][axis], 1e-12)
		}
	}
	assert.Equal(t, openRes.Length, res.Length)
}

func TestInvariantsCommand_RecordAndReuse(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	args := append([]string{"--format", "json", "invariants", "--file", "testdata/trefoil.fseries", "--db", dbPath}, smallGridArgs...)

	out, err := executeCommand(t, args...)
	require.NoError(t, err)

	var first struct {
		RunID      string                `json:"run_id"`
		ParamKey   string                `json:"param_key"`
		Params     pipeline.Params       `json:"params"`
		Harmonics  int                   `json:"harmonics"`
		Interior   int                   `json:"interior"`
		Invariants invariants.Invariants `json:"invariants"`
		Seq        int64                 `json:"seq"`
		Reused     bool                  `json:"reused"`
	}
	decodeData(t, out, &first)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, "trefoil", first.Params.KnotID)
	assert.Equal(t, 3, first.Harmonics)
	assert.Equal(t, 64, first.Interior)
	assert.Equal(t, int64(1), first.Seq)
	assert.False(t, first.Reused)
	assert.False(t, math.IsNaN(first.Invariants.AnomalyRatio))
	assert.NotZero(t, first.Invariants.HMass)

	out, err = executeCommand(t, append(args, "--reuse")...)
	require.NoError(t, err)

	second := first
	second.Reused = false
	decodeData(t, out, &second)
	assert.True(t, second.Reused)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.ParamKey, second.ParamKey)
	assert.Equal(t, first.Invariants, second.Invariants)

	// A changed parameter misses the recorded run and appends a new one.
	out, err = executeCommand(t, append(args, "--reuse", "--circulation", "2")...)
	require.NoError(t, err)

	var third struct {
		Seq    int64 `json:"seq"`
		Reused bool  `json:"reused"`
	}
	decodeData(t, out, &third)
	assert.False(t, third.Reused)
	assert.Equal(t, int64(2), third.Seq)
}

func TestInvariantsCommand_Text(t *testing.T) {
	args := append([]string{"invariants", "--file", "testdata/trefoil.fseries"}, smallGridArgs...)
	out, err := executeCommand(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "knot:          trefoil (3_1 trefoil, 3 harmonic(s))\n")
	assert.Contains(t, out, "grid:          8x8x8@0.4, margin 2, 64 interior node(s)\n")
	for _, label := range []string{"h_charge:", "h_mass:", "anomaly_ratio:", "circulation:", "enstrophy:", "divergence:", "run:"} {
		assert.Contains(t, out, label)
	}
}

func TestSweepCommand_MemoReuse(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	args := append([]string{"--format", "json", "sweep", "--file", "testdata/trefoil.fseries", "--db", dbPath,
		"--grids", "6,8", "--margins", "1,1"}, smallGridArgs...)

	out, err := executeCommand(t, args...)
	require.NoError(t, err)

	var res SweepResult
	decodeData(t, out, &res)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, []int{6, 6, 8, 8}, []int{res.Rows[0].Grid, res.Rows[1].Grid, res.Rows[2].Grid, res.Rows[3].Grid})
	assert.Equal(t, 64, res.Rows[0].Interior)
	assert.Equal(t, 216, res.Rows[2].Interior)
	assert.Equal(t, []bool{false, true, false, true},
		[]bool{res.Rows[0].Cached, res.Rows[1].Cached, res.Rows[2].Cached, res.Rows[3].Cached})
	repeat := res.Rows[1]
	repeat.Cached = false
	assert.Equal(t, res.Rows[0], repeat)
	assert.NotEqual(t, res.Rows[0].ParamKey, res.Rows[2].ParamKey)

	assert.Equal(t, int64(2), res.Memo.Computed)
	assert.Equal(t, int64(2), res.Memo.Hits)
	assert.Equal(t, int64(2), res.Memo.Misses)
	assert.Equal(t, 2, res.Memo.Entries)

	// Only computed results are written through.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background(), "trefoil")
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSweepCommand_Text(t *testing.T) {
	args := append([]string{"sweep", "--file", "testdata/trefoil.fseries", "--margins", "1,2", "--parallel", "2"}, smallGridArgs...)
	out, err := executeCommand(t, args...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "sweep of trefoil: 2 run(s)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "SAMPLES"))
	assert.Equal(t, "memo: 2 computed, 0 hit(s), 2 miss(es), 2/64 entries", lines[4])
}

func TestHistoryCommand_Golden(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	for _, r := range []struct {
		id, knot string
		samples  int
		inv      invariants.Invariants
	}{
		{"run-a", "3_1", 64, invariants.Invariants{HCharge: 1.5, HMass: 3, AnomalyRatio: -0.25}},
		{"run-b", "circle", 128, invariants.Invariants{HCharge: 0.000123456789, HMass: 2.5e-07, AnomalyRatio: 245.5}},
	} {
		p := pipeline.DefaultParams(r.knot)
		p.Samples = r.samples
		_, err := st.WriteRun(ctx, store.Run{ID: r.id, ParamKey: p.Key(), Params: p, Invariants: r.inv})
		require.NoError(t, err)
	}
	require.NoError(t, st.Close())

	out, err := executeCommand(t, "history", "--db", dbPath)
	require.NoError(t, err)
	newGolden(t).Assert(t, "history_runs", []byte(out))

	out, err = executeCommand(t, "--format", "json", "history", "--db", dbPath, "--knot", "circle")
	require.NoError(t, err)
	var res HistoryResult
	decodeData(t, out, &res)
	require.Len(t, res.Runs, 1)
	assert.Equal(t, "run-b", res.Runs[0].ID)
	assert.Equal(t, int64(2), res.Runs[0].Seq)

	out, err = executeCommand(t, "--format", "json", "history", "--db", dbPath, "--run", "run-a")
	require.NoError(t, err)
	decodeData(t, out, &res)
	require.Len(t, res.Runs, 1)
	assert.Equal(t, "run-a", res.Runs[0].ID)
	assert.Equal(t, 64, res.Runs[0].Params.Samples)
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	badConfig := writeConfig(t, dir, "grid:\n  size: 2\n")

	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"parse malformed", []string{"parse", "testdata/bad.fseries"}, ErrCodeParse, ExitFailure},
		{"parse missing file", []string{"parse", "testdata/missing.fseries"}, ErrCodeNotFound, ExitCommandError},
		{"curve no blocks", []string{"curve", "--file", "testdata/empty.fseries"}, ErrCodeNoBlocks, ExitCommandError},
		{"catalog missing dir", []string{"catalog", filepath.Join(dir, "nope")}, ErrCodeNotFound, ExitCommandError},
		{"invariants unknown knot", []string{"invariants", "--file", "testdata/trefoil.fseries", "figure8"}, ErrCodeNotFound, ExitCommandError},
		{"invariants bad config", []string{"--config", badConfig, "invariants", "3_1"}, ErrCodeConfig, ExitCommandError},
		{"invariants margin too wide", []string{"invariants", "--grid", "8", "--margin", "4", "3_1"}, ErrCodeConfig, ExitCommandError},
		{"sweep margin exceeds grid", append([]string{"sweep", "--file", "testdata/trefoil.fseries", "--margins", "4"}, "--grid", "8", "--margin", "2", "--samples", "16"), ErrCodeShape, ExitFailure},
		{"sweep negative margin", []string{"sweep", "--file", "testdata/trefoil.fseries", "--grids", "8", "--margins", "-1", "--grid", "8", "--margin", "2"}, ErrCodeShape, ExitFailure},
		{"history no database", []string{"history"}, ErrCodeConfig, ExitCommandError},
		{"history missing database", []string{"history", "--db", filepath.Join(dir, "none.db")}, ErrCodeNotFound, ExitCommandError},
		{"watch without config", []string{"watch", "3_1"}, ErrCodeConfig, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			cliErr := decodeError(t, out)
			assert.Equal(t, tt.wantCode, cliErr.Code)
			assert.NotEmpty(t, cliErr.Message)
		})
	}
}

func TestCommandErrors_Text(t *testing.T) {
	out, err := executeCommand(t, "parse", "testdata/bad.fseries")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E201]")
	assert.Contains(t, err.Error(), "E201: failed to parse file")
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCommand_RecomputesOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	knots := filepath.Join(dir, "knots")
	require.NoError(t, os.Mkdir(knots, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(knots, "circle.fseries"), []byte("% circle\n1 0 0 1 0 0\n"), 0o644))

	cfgBody := func(samples int) string {
		return "catalog: " + knots + "\n" +
			"knot: circle\n" +
			"samples: " + strconv.Itoa(samples) + "\n" +
			"grid:\n  size: 8\n  spacing: 0.4\n  margin: 2\n"
	}
	cfgPath := writeConfig(t, dir, cfgBody(32))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", cfgPath, "watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	// "run:" is the last line of an update.
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "run:")
	}, 10*time.Second, 10*time.Millisecond)
	assert.True(t, strings.HasPrefix(out.String(), "generation 1\n"))
	assert.Contains(t, out.String(), "knot:          circle (circle, 1 harmonic(s))")

	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody(48)), 0o644))
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "generation ") >= 2
	}, 10*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func event(name string, op fsnotify.Op) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: op}
}

func TestWatchEventFilters(t *testing.T) {
	cfg := filepath.Join("conf", "knotfield.yaml")
	assert.True(t, isConfigEvent(event(cfg, fsnotify.Write), cfg))
	assert.True(t, isConfigEvent(event("conf/./knotfield.yaml", fsnotify.Create), cfg))
	assert.False(t, isConfigEvent(event(cfg, fsnotify.Chmod), cfg))
	assert.False(t, isConfigEvent(event(filepath.Join("conf", "other.yaml"), fsnotify.Write), cfg))

	knots := "knots"
	assert.True(t, isCatalogEvent(event(filepath.Join(knots, "3_1.fseries"), fsnotify.Write), knots))
	assert.True(t, isCatalogEvent(event(filepath.Join(knots, "3_1.fseries"), fsnotify.Remove), knots))
	assert.False(t, isCatalogEvent(event(filepath.Join(knots, "3_1.fseries"), fsnotify.Chmod), knots))
	assert.False(t, isCatalogEvent(event(filepath.Join(knots, "notes.txt"), fsnotify.Write), knots))
	assert.False(t, isCatalogEvent(event(filepath.Join(knots, "sub", "3_1.fseries"), fsnotify.Write), knots))
}

func TestCatalogSource_Swap(t *testing.T) {
	cat, id, err := openCatalog(config.Default(), "testdata/trefoil.fseries")
	require.NoError(t, err)
	assert.Equal(t, "trefoil", id)

	src := &catalogSource{}
	src.cur.Store(cat)
	block, err := src.Largest("trefoil")
	require.NoError(t, err)
	assert.Equal(t, 3, block.Harmonics())

	dir, err := catalog.LoadDir("testdata/knots")
	require.NoError(t, err)
	src.cur.Store(dir)

	block, err = src.Largest("circle")
	require.NoError(t, err)
	assert.Equal(t, "circle", block.Header)

	_, err = src.Largest("trefoil")
	assert.ErrorIs(t, err, catalog.ErrUnknownKnot)
}
