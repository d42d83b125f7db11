package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/graph"
	"github.com/matzehuels/flowscope/pkg/observability"
	"github.com/matzehuels/flowscope/pkg/packet"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    DefaultTTL,
	}
}

// Execute runs the complete load → aggregate → layout → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	loadStart := time.Now()
	records, skipped, err := Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Records = len(records)
	result.Stats.Skipped = skipped
	result.Stats.LoadTime = time.Since(loadStart)
	r.Logger.Info("loaded capture",
		"records", len(records),
		"skipped", skipped,
		"duration", result.Stats.LoadTime)

	aggStart := time.Now()
	models, hash, hit, err := r.ModelsWithCacheInfo(ctx, records, opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	m := models.For(opts.Mode)
	result.Models = models
	result.PacketsHash = hash
	result.CacheInfo.ModelsHit = hit
	result.Stats.AggregateTime = time.Since(aggStart)
	result.Stats.NodeCount = len(m.Nodes)
	result.Stats.LinkCount = len(m.Links)
	r.Logger.Info("aggregated flows",
		"mode", opts.Mode,
		"nodes", len(m.Nodes),
		"links", len(m.Links),
		"cached", hit)

	layoutStart := time.Now()
	l, hit, err := r.LayoutWithCacheInfo(ctx, m, hash, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.CacheInfo.LayoutHit = hit
	result.Stats.LayoutTime = time.Since(layoutStart)
	r.Logger.Info("computed layout",
		"ticks", l.Ticks,
		"stable", l.Stable,
		"duration", result.Stats.LayoutTime)

	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, l, m, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = hit
	result.Stats.RenderTime = time.Since(renderStart)
	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ModelsWithCacheInfo aggregates records into both models, reusing a
// cached pair for the same packet content. It also returns the packet
// hash that keys the later stages.
func (r *Runner) ModelsWithCacheInfo(ctx context.Context, records []packet.Record, opts Options) (flow.Models, string, bool, error) {
	r.applyLogger(&opts)

	hash, err := cache.HashJSON(records)
	if err != nil {
		return flow.Models{}, "", false, fmt.Errorf("hash records: %w", err)
	}
	key := r.Keyer.ModelsKey(hash)

	if !opts.Refresh {
		if models, ok := r.cachedModels(ctx, key); ok {
			return models, hash, true, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnAggregateStart(ctx, len(records))
	start := time.Now()
	models := flow.BuildModels(records)
	hooks.OnAggregateComplete(ctx, len(models.Host.Nodes), len(models.Port.Nodes), time.Since(start), nil)

	var buf bytes.Buffer
	if err := graph.WriteModels(models, &buf); err == nil {
		r.store(ctx, cache.KindModels, key, buf.Bytes())
	}
	return models, hash, false, nil
}

func (r *Runner) cachedModels(ctx context.Context, key string) (flow.Models, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, cache.KindModels)
		return flow.Models{}, false
	}

	var g graph.Models
	if err := json.Unmarshal(data, &g); err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "key", key, "err", err)
		observability.Cache().OnCacheMiss(ctx, cache.KindModels)
		return flow.Models{}, false
	}
	models, err := graph.ToModels(g)
	if err != nil {
		r.Logger.Debug("discarding invalid cache entry", "key", key, "err", err)
		observability.Cache().OnCacheMiss(ctx, cache.KindModels)
		return flow.Models{}, false
	}
	observability.Cache().OnCacheHit(ctx, cache.KindModels)
	return models, true
}

// Models is a convenience wrapper that discards the hash and cache info.
func (r *Runner) Models(ctx context.Context, records []packet.Record, opts Options) (flow.Models, error) {
	models, _, _, err := r.ModelsWithCacheInfo(ctx, records, opts)
	return models, err
}

// LayoutWithCacheInfo computes a settled layout of m with caching.
// packetsHash identifies the packet list m was aggregated from.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, m flow.Model, packetsHash string, opts Options) (graph.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, false, err
	}
	key := r.Keyer.LayoutKey(packetsHash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if cached, err := graph.UnmarshalLayout(data); err == nil {
				observability.Cache().OnCacheHit(ctx, cache.KindLayout)
				return cached, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, cache.KindLayout)
	}

	l, err := ComputeLayout(ctx, m, opts)
	if err != nil {
		return graph.Layout{}, false, err
	}
	if data, err := graph.MarshalLayout(l); err == nil {
		r.store(ctx, cache.KindLayout, key, data)
	}
	return l, false, nil
}

// Layout is a convenience wrapper that discards the cache info.
func (r *Runner) Layout(ctx context.Context, m flow.Model, packetsHash string, opts Options) (graph.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, m, packetsHash, opts)
	return l, err
}

// RenderWithCacheInfo generates artifacts with caching. The bool is true
// only when every format came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l graph.Layout, m flow.Model, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutData, err := graph.MarshalLayout(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, cache.KindArtifact)
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, cache.KindArtifact)
	}

	rendered, err := RenderFromLayout(ctx, l, m, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		r.store(ctx, cache.KindArtifact, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)), data)
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that discards the cache info.
func (r *Runner) Render(ctx context.Context, l graph.Layout, m flow.Model, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, m, opts)
	return artifacts, err
}

func (r *Runner) store(ctx context.Context, kind, key string, data []byte) {
	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		r.Logger.Warn("cache write failed", "kind", kind, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
