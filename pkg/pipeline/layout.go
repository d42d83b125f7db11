package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/graph"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/observability"
)

// =============================================================================
// Layout Generation
// =============================================================================

// ComputeLayout builds an engine for m and ticks it until it settles or
// opts.MaxTicks is reached. The engine is stopped before returning.
func ComputeLayout(ctx context.Context, m flow.Model, opts Options) (graph.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, err
	}
	if m.Mode != opts.Mode {
		return graph.Layout{}, errors.New(errors.ErrCodeInvalidMode, "model is %s, layout requested for %s", m.Mode, opts.Mode)
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, string(opts.Mode), len(m.Nodes))
	start := time.Now()

	e := layout.Build(m, layout.WithParams(opts.Params))
	defer e.Stop()

	frame, err := e.RunUntilSettled(ctx, opts.MaxTicks)
	hooks.OnLayoutComplete(ctx, string(opts.Mode), frame.Tick, time.Since(start), err)
	if err != nil {
		return graph.Layout{}, err
	}

	if e.State().Running {
		opts.Logger.Warn("layout did not settle", "mode", opts.Mode, "ticks", frame.Tick, "alpha", frame.Alpha)
	}
	return graph.FromFrame(opts.Mode, frame), nil
}
