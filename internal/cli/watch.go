package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/knotfield/internal/catalog"
	"github.com/roach88/knotfield/internal/config"
	"github.com/roach88/knotfield/internal/fseries"
	"github.com/roach88/knotfield/internal/pipeline"
	"github.com/roach88/knotfield/internal/recompute"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Params ParamFlags
}

// WatchUpdate is one published result of the watch command.
type WatchUpdate struct {
	Generation uint64 `json:"generation"`
	*pipeline.Result
}

// RenderText writes the human-readable form.
func (u WatchUpdate) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "generation %d\n", u.Generation)
	return InvariantsResult{Result: u.Result}.RenderText(w)
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [knot-id]",
		Short: "Recompute invariants whenever the config or catalog changes",
		Long: `Compute the invariants of a knot, then keep watching the --config file and
the catalog directory. Every change starts a new computation and cancels the
one in flight; only the newest result is printed.

Runs until interrupted.

Examples:
  knotfield watch 3_1 --config knotfield.yaml
  knotfield watch --config knotfield.yaml --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd, args)
		},
	}

	addParamFlags(cmd, &opts.Params)
	return cmd
}

// catalogSource lets the catalog be swapped while runs are in flight.
type catalogSource struct {
	cur atomic.Pointer[catalog.Catalog]
}

func (s *catalogSource) Largest(id string) (fseries.Block, error) {
	return s.cur.Load().Largest(id)
}

// isConfigEvent reports whether ev touches the config file at path.
func isConfigEvent(ev fsnotify.Event, path string) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(path) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// isCatalogEvent reports whether ev adds, changes or removes a knot file
// directly inside dir.
func isCatalogEvent(ev fsnotify.Event, dir string) bool {
	if filepath.Ext(ev.Name) != catalog.Extension {
		return false
	}
	if filepath.Clean(filepath.Dir(ev.Name)) != filepath.Clean(dir) {
		return false
	}
	return ev.Op != fsnotify.Chmod
}

// watchState is the reloadable part of a watch session.
type watchState struct {
	opts *WatchOptions
	cmd  *cobra.Command

	// knotID pins the knot given on the command line; empty follows the
	// config.
	knotID string

	cfg     config.Config
	source  *catalogSource
	memo    *recompute.Memo
	watcher *fsnotify.Watcher
}

func (s *watchState) load() (config.Config, error) {
	return resolveConfig(s.opts.RootOptions, s.cmd, &s.opts.Params)
}

func (s *watchState) params() pipeline.Params {
	return s.cfg.Params(s.knotID)
}

// reloadConfig rereads the config. The catalog is reloaded when its
// directory moved. Invalid files keep the previous configuration.
func (s *watchState) reloadConfig() bool {
	cfg, err := s.load()
	if err != nil {
		slog.Warn("config reload failed", "error", err)
		return false
	}
	if cfg.Catalog != s.cfg.Catalog {
		if err := s.switchCatalog(s.cfg.Catalog, cfg.Catalog); err != nil {
			slog.Warn("catalog reload failed", "dir", cfg.Catalog, "error", err)
			return false
		}
	}
	s.cfg = cfg
	slog.Info("config reloaded", "path", s.opts.Config)
	return true
}

func (s *watchState) reloadCatalog() bool {
	cat, err := catalog.LoadDir(s.cfg.Catalog)
	if err != nil {
		slog.Warn("catalog reload failed", "dir", s.cfg.Catalog, "error", err)
		return false
	}
	s.source.cur.Store(cat)
	s.memo.Purge()
	slog.Info("catalog reloaded", "dir", s.cfg.Catalog, "knots", cat.Len())
	return true
}

func (s *watchState) switchCatalog(oldDir, newDir string) error {
	cat, err := catalog.LoadDir(newDir)
	if err != nil {
		return err
	}
	if err := s.watcher.Add(newDir); err != nil {
		return fmt.Errorf("watching %s: %w", newDir, err)
	}
	if !sameDir(oldDir, configDir(s.opts.Config)) {
		_ = s.watcher.Remove(oldDir)
	}
	s.source.cur.Store(cat)
	s.memo.Purge()
	return nil
}

func configDir(path string) string {
	return filepath.Dir(path)
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func runWatch(opts *WatchOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Config == "" {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "watch needs a config file",
			errors.New("--config is required"))
	}

	state := &watchState{opts: opts, cmd: cmd, source: &catalogSource{}}
	cfg, err := state.load()
	if err != nil {
		return failWith(formatter, ErrCodeConfig, ExitCommandError, "invalid configuration", err)
	}
	state.cfg = cfg

	cat, err := catalog.LoadDir(cfg.Catalog)
	if err != nil {
		return fail(formatter, "failed to load catalog", err)
	}
	state.source.cur.Store(cat)

	if _, err := knotArg(args, cfg.Knot); err != nil {
		return failWith(formatter, ErrCodeNotFound, ExitCommandError, "missing knot", err)
	}
	if len(args) > 0 {
		state.knotID = args[0]
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fail(formatter, "failed to create watcher", err)
	}
	defer watcher.Close()
	state.watcher = watcher

	// The directory is watched rather than the file so editors that
	// replace the file on save keep triggering events.
	for _, dir := range []string{configDir(opts.Config), cfg.Catalog} {
		if err := watcher.Add(dir); err != nil {
			return fail(formatter, "failed to watch "+dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state.memo = recompute.NewMemo(pipeline.NewRunner(state.source).Run,
		recompute.WithCapacity(cfg.Cache.Entries))
	rec := recompute.NewRecomputer(state.memo.Get, recompute.WithOnPublish(func(snap *recompute.Snapshot) {
		if err := formatter.Success(WatchUpdate{Generation: snap.Generation, Result: snap.Result}); err != nil {
			slog.Warn("failed to write update", "error", err)
		}
	}))
	defer rec.Close()

	submit := func() {
		q := rec.Submit(ctx, state.params())
		go reportFailure(ctx, q)
	}
	submit()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped", "generation", rec.Generation())
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case isConfigEvent(ev, opts.Config):
				if state.reloadConfig() {
					submit()
				}
			case isCatalogEvent(ev, state.cfg.Catalog):
				if state.reloadCatalog() {
					submit()
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// reportFailure logs a request that failed for a reason other than being
// replaced or shut down.
func reportFailure(ctx context.Context, q *recompute.Request) {
	_, err := q.Wait(ctx)
	switch {
	case err == nil,
		errors.Is(err, recompute.ErrSuperseded),
		errors.Is(err, recompute.ErrClosed),
		errors.Is(err, context.Canceled):
		return
	}
	code, _ := classify(err)
	slog.Warn("recompute failed", "code", code, "error", err)
}
