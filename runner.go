package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/engine"
	"github.com/pthm-cable/genesis/persist"
	"github.com/pthm-cable/genesis/telemetry"
)

// runnerOptions configures a headless run.
type runnerOptions struct {
	RunID       string
	Seed        int64
	Config      *config.Config
	LoadPath    string // resume from a persisted document instead of Seed/Config
	SavePath    string // persist the final state here
	SnapshotDir string // persist a document whenever a bookmark fires
	LogStats    bool

	Logger  *slog.Logger
	Output  *telemetry.OutputManager
	History *telemetry.History
	Metrics *telemetry.Metrics
}

// runner drives an engine headlessly and routes its telemetry.
type runner struct {
	opts      runnerOptions
	logger    *slog.Logger
	engine    *engine.Engine
	bookmarks *telemetry.BookmarkDetector

	// bookmarks fire inside a tick; their snapshots are written after it.
	pending []telemetry.Bookmark
}

func newRunner(opts runnerOptions) (*runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &runner{
		opts:      opts,
		logger:    logger,
		bookmarks: telemetry.NewBookmarkDetector(10),
	}
	r.engine = engine.New(engine.Options{
		Logger:   logger,
		RunID:    opts.RunID,
		Metrics:  opts.Metrics,
		OnWindow: r.onWindow,
	})

	if opts.LoadPath != "" {
		doc, err := persist.Read(opts.LoadPath)
		if err != nil {
			return nil, err
		}
		if err := persist.Restore(r.engine, doc); err != nil {
			return nil, err
		}
		logger.Info("resumed run", "path", opts.LoadPath, "run_id", doc.RunID, "frame", doc.Frame)
	} else if err := r.engine.Reset(opts.Seed, opts.Config); err != nil {
		return nil, err
	}

	if err := opts.Output.WriteConfig(r.engine.Config()); err != nil {
		logger.Error("failed to write config", "error", err)
	}
	if err := opts.History.RecordRun(context.Background(), r.engine.Seed()); err != nil {
		logger.Error("failed to record run", "error", err)
	}
	return r, nil
}

// onWindow runs inside the engine's frame-end phase and must not call back
// into privileged engine methods.
func (r *runner) onWindow(ws telemetry.WindowStats) {
	perf := r.engine.Perf()
	if r.opts.LogStats {
		ws.LogStats(r.logger)
		r.logger.Info("perf", "perf", perf)
	}

	if err := r.opts.Output.WriteTelemetry(ws); err != nil {
		r.logger.Error("failed to write telemetry", "error", err)
	}
	if err := r.opts.Output.WritePerf(perf, ws.WindowEndTick); err != nil {
		r.logger.Error("failed to write perf", "error", err)
	}
	if err := r.opts.History.Record(context.Background(), ws); err != nil {
		r.logger.Error("failed to record history", "error", err)
	}

	for _, bm := range r.bookmarks.Check(ws) {
		if r.opts.LogStats {
			bm.LogBookmark(r.logger)
		}
		if err := r.opts.Output.WriteBookmark(bm); err != nil {
			r.logger.Error("failed to write bookmark", "error", err)
		}
		if r.opts.SnapshotDir != "" {
			r.pending = append(r.pending, bm)
		}
	}
}

// run steps until ctx is cancelled or maxTicks frames have completed
// (0 = unlimited), then saves the final state if requested.
func (r *runner) run(ctx context.Context, maxTicks uint64) error {
	r.logger.Info("starting headless simulation",
		"seed", r.engine.Seed(),
		"frame", r.engine.Frame(),
		"max_ticks", maxTicks,
	)
	for {
		if maxTicks > 0 && r.engine.Frame() >= maxTicks {
			r.logger.Info("max ticks reached", "tick", r.engine.Frame())
			break
		}
		if err := ctx.Err(); err != nil {
			r.logger.Info("interrupted", "tick", r.engine.Frame())
			break
		}
		r.engine.Step()
		r.savePending()
	}

	if r.opts.SavePath == "" {
		return nil
	}
	return r.save(r.opts.SavePath)
}

func (r *runner) savePending() {
	for _, bm := range r.pending {
		path := filepath.Join(r.opts.SnapshotDir, fmt.Sprintf("%s_%d.json.zst", bm.Type, bm.Tick))
		if err := r.save(path); err != nil {
			r.logger.Error("failed to save snapshot", "bookmark", string(bm.Type), "error", err)
		}
	}
	r.pending = r.pending[:0]
}

func (r *runner) save(path string) error {
	doc, err := persist.Capture(r.engine)
	if err != nil {
		return err
	}
	if err := persist.Write(path, doc); err != nil {
		return err
	}
	r.logger.Info("saved run", "path", path, "run_id", doc.RunID, "frame", doc.Frame)
	return nil
}
