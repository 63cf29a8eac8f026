package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/knotfield/internal/invariants"
	"github.com/roach88/knotfield/internal/pipeline"
)

// ErrNotFound is returned by single-run lookups that match nothing.
var ErrNotFound = errors.New("run not found")

// Run is one recorded pipeline run.
type Run struct {
	ID         string                `json:"id"`
	Seq        int64                 `json:"seq"`
	ParamKey   string                `json:"param_key"`
	Params     pipeline.Params       `json:"params"`
	Header     string                `json:"header"`
	Harmonics  int                   `json:"harmonics"`
	Invariants invariants.Invariants `json:"invariants"`
	Flux       float64               `json:"circulation_flux"`
	Enstrophy  float64               `json:"enstrophy"`
	Interior   int                   `json:"interior"`
	Elapsed    time.Duration         `json:"elapsed_ns"`
}

// RunFromResult converts a pipeline result to a storable run. Results
// without a run id get a fresh UUIDv7.
func RunFromResult(res *pipeline.Result) Run {
	id := res.RunID
	if id == "" {
		id = pipeline.UUIDv7Generator{}.Generate()
	}
	return Run{
		ID:         id,
		ParamKey:   res.ParamKey,
		Params:     res.Params,
		Header:     res.Header,
		Harmonics:  res.Harmonics,
		Invariants: res.Invariants,
		Flux:       res.Flux,
		Enstrophy:  res.Enstrophy,
		Interior:   res.Interior,
		Elapsed:    res.Elapsed,
	}
}

// Result converts r back to a pipeline result. The curve is not stored
// and stays nil.
func (r Run) Result() *pipeline.Result {
	return &pipeline.Result{
		RunID:      r.ID,
		ParamKey:   r.ParamKey,
		Params:     r.Params,
		Header:     r.Header,
		Harmonics:  r.Harmonics,
		Invariants: r.Invariants,
		Interior:   r.Interior,
		Flux:       r.Flux,
		Enstrophy:  r.Enstrophy,
		Elapsed:    r.Elapsed,
	}
}

// Record stores res. It satisfies recompute.Sink.
func (s *Store) Record(ctx context.Context, res *pipeline.Result) error {
	_, err := s.WriteRun(ctx, RunFromResult(res))
	return err
}

// WriteRun inserts run and returns its sequence number. The sequence is
// assigned by the store (one past the current maximum); run.Seq is ignored.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing an existing id
// returns the sequence number of the stored row.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("write run: empty id")
	}
	paramsJSON, err := marshalParams(run.Params)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, param_key, knot_id, params, header, harmonics,
		 h_charge, h_mass, anomaly_ratio, circulation_flux, enstrophy, interior, elapsed_ns)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		FROM runs
		WHERE true
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ParamKey,
		norm.NFC.String(run.Params.KnotID),
		paramsJSON,
		run.Header,
		run.Harmonics,
		run.Invariants.HCharge,
		run.Invariants.HMass,
		run.Invariants.AnomalyRatio,
		run.Flux,
		run.Enstrophy,
		run.Interior,
		int64(run.Elapsed),
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: read seq: %w", err)
	}
	return seq, nil
}

const runColumns = `id, seq, param_key, params, header, harmonics,
	h_charge, h_mass, anomaly_ratio, circulation_flux, enstrophy, interior, elapsed_ns`

// ReadRun returns the run with the given id, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// LatestRun returns the most recently written run with the given parameter
// key, or ErrNotFound.
func (s *Store) LatestRun(ctx context.Context, paramKey string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE param_key = ?
		ORDER BY seq DESC
		LIMIT 1
	`, paramKey)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: param key %s", ErrNotFound, paramKey)
	}
	return run, err
}

// ListRuns returns the runs of knotID in write order. An empty knotID lists
// every run.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, knotID string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if knotID != "" {
		query += ` WHERE knot_id = ?`
		args = append(args, norm.NFC.String(knotID))
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var paramsJSON string
	var elapsed int64
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.ParamKey,
		&paramsJSON,
		&run.Header,
		&run.Harmonics,
		&run.Invariants.HCharge,
		&run.Invariants.HMass,
		&run.Invariants.AnomalyRatio,
		&run.Flux,
		&run.Enstrophy,
		&run.Interior,
		&elapsed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Params, err = unmarshalParams(paramsJSON)
	if err != nil {
		return Run{}, err
	}
	run.Elapsed = time.Duration(elapsed)
	return run, nil
}
