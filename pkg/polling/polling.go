package polling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sw33tLie/lootscope/pkg/loot"
	"github.com/sw33tLie/lootscope/pkg/report"
	"github.com/sw33tLie/lootscope/pkg/storage"
)

// DefaultLootLimit is the threshold used when the caller gives none.
const DefaultLootLimit int64 = 5000000

// RunLog records report generations. *storage.DB satisfies it.
type RunLog interface {
	StartRun(ctx context.Context, lootLimit int64) (int64, error)
	FinishRun(ctx context.Context, id int64, out storage.RunOutcome) error
}

// Config holds everything a Generator needs.
type Config struct {
	Scanner *loot.Scanner
	Store   report.Store
	Runs    RunLog      // optional; nil = runs are not recorded
	Log     loot.Logger // optional; nil = no logging

	// BaseContext is the parent of every background generation. Defaults to context.Background().
	BaseContext context.Context
}

// Generator turns a loot limit into a published report.
type Generator struct {
	scanner *loot.Scanner
	store   report.Store
	runs    RunLog
	log     loot.Logger
	ctx     context.Context

	wg sync.WaitGroup
}

func NewGenerator(cfg Config) *Generator {
	g := &Generator{
		scanner: cfg.Scanner,
		store:   cfg.Store,
		runs:    cfg.Runs,
		log:     cfg.Log,
		ctx:     cfg.BaseContext,
	}
	if g.log == nil {
		g.log = loot.NopLogger()
	}
	if g.ctx == nil {
		g.ctx = context.Background()
	}
	return g
}

// GenerateReport scans the upstream with lootLimit as threshold and publishes
// the rows. When publishing fails the previously published report stays in place.
func (g *Generator) GenerateReport(ctx context.Context, lootLimit int64) (*loot.Result, error) {
	start := time.Now()
	runID := g.startRun(ctx, lootLimit)

	result := g.scanner.Scan(ctx, lootLimit)

	var err error
	if result.StopReason == loot.StopCanceled {
		err = fmt.Errorf("scan canceled after %d pages: %w", result.PagesFetched, context.Cause(ctx))
	} else if perr := g.store.Publish(result.Rows); perr != nil {
		err = fmt.Errorf("publish report: %w", perr)
	}

	g.finishRun(runID, storage.RunOutcome{
		Rows:       len(result.Rows),
		Pages:      result.PagesFetched,
		StopReason: string(result.StopReason),
		Err:        err,
	})

	if err != nil {
		return result, err
	}

	g.log.Infof("Report generated with %d rows from %d pages in %s (loot limit %d, stop: %s)",
		len(result.Rows), result.PagesFetched, time.Since(start).Round(time.Millisecond), lootLimit, result.StopReason)
	return result, nil
}

// Trigger starts GenerateReport in the background and returns immediately.
// Failures are logged, never returned. Concurrent triggers are not serialized;
// the last successful publish wins.
func (g *Generator) Trigger(lootLimit int64) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.log.Errorf("Report generation panicked (loot limit %d): %v", lootLimit, r)
			}
		}()

		if _, err := g.GenerateReport(g.ctx, lootLimit); err != nil {
			g.log.Errorf("Report generation failed (loot limit %d): %v", lootLimit, err)
		}
	}()
}

// Wait blocks until every triggered generation has finished.
func (g *Generator) Wait() {
	g.wg.Wait()
}

// GetLastReport opens the most recently published report, or returns report.ErrNotFound.
func (g *Generator) GetLastReport() (*report.Artifact, error) {
	return g.store.Open()
}

func (g *Generator) startRun(ctx context.Context, lootLimit int64) int64 {
	if g.runs == nil {
		return 0
	}
	id, err := g.runs.StartRun(ctx, lootLimit)
	if err != nil {
		g.log.Warnf("Could not record run start: %v", err)
		return 0
	}
	return id
}

func (g *Generator) finishRun(id int64, out storage.RunOutcome) {
	if g.runs == nil || id == 0 {
		return
	}
	// The scan context may already be canceled; the outcome should still land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.runs.FinishRun(ctx, id, out); err != nil {
		g.log.Warnf("Could not record outcome of run %d: %v", id, err)
	}
}
