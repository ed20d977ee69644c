package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options; identical layout computations in flight
// at the same time are collapsed into one.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	group singleflight.Group
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
	}
}

// Execute runs the complete fetch → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Fetch
	fetchStart := time.Now()
	items, err := r.Fetch(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	result.Items = items
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.ItemCount = len(items)

	r.Logger.Info("fetched items",
		"items", len(items),
		"duration", result.Stats.FetchTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	layout, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, items, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = layout
	result.ItemsHash = HashItems(gallery.LayoutItems(items))
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.NumCols = layout.NumCols
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"cols", layout.NumCols,
		"col_width", layout.ColWidth,
		"blocks", len(layout.Blocks),
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, layout, items, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Fetch collects the items to lay out, reporting to the pipeline hooks.
func (r *Runner) Fetch(ctx context.Context, opts Options) ([]gallery.MediaItem, error) {
	r.applyLogger(&opts)
	name := sourceName(opts)
	hooks := observability.Pipeline()

	start := time.Now()
	hooks.OnFetchStart(ctx, name)
	items, err := FetchItems(ctx, opts)
	hooks.OnFetchComplete(ctx, name, len(items), time.Since(start), err)
	return items, err
}

// ComputeLayoutWithCacheInfo computes a layout with caching and returns cache hit info.
// The cache key covers the layout-relevant item fields, the constraints and the width.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, items []gallery.MediaItem, opts Options) (masonry.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return masonry.Layout{}, false, err
	}

	cacheKey := r.Keyer.LayoutKey(HashItems(gallery.LayoutItems(items)), opts.LayoutKeyOpts())

	type outcome struct {
		layout masonry.Layout
		hit    bool
	}
	v, err, shared := r.group.Do(cacheKey, func() (any, error) {
		// Try cache first (unless refresh requested)
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				var cached masonry.Layout
				if err := json.Unmarshal(data, &cached); err == nil {
					observability.Cache().OnCacheHit(ctx, "layout")
					return outcome{cached, true}, nil
				}
				// If deserialization fails, fall through to recompute
			}
			observability.Cache().OnCacheMiss(ctx, "layout")
		}

		hooks := observability.Pipeline()
		start := time.Now()
		hooks.OnLayoutStart(ctx, len(items))
		layout, err := GenerateLayout(items, opts)
		hooks.OnLayoutComplete(ctx, layout.NumCols, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(layout); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err == nil {
				observability.Cache().OnCacheSet(ctx, "layout", len(data))
			} else {
				r.Logger.Debug("cache write failed", "key", cacheKey, "err", err)
			}
		}
		return outcome{layout, false}, nil
	})
	if err != nil {
		return masonry.Layout{}, false, err
	}
	if shared {
		r.Logger.Debug("shared layout computation", "key", cacheKey)
	}
	o := v.(outcome)
	return o.layout, o.hit, nil
}

// ComputeLayout is a convenience wrapper that calls ComputeLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, items []gallery.MediaItem, opts Options) (masonry.Layout, error) {
	layout, _, err := r.ComputeLayoutWithCacheInfo(ctx, items, opts)
	return layout, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, layout masonry.Layout, items []gallery.MediaItem, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	// Compute cache key from layout data
	layoutData, err := json.Marshal(layout)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)
	metaHash := hashMeta(BuildMeta(items))

	// Try to get all formats from cache
	artifacts := make(map[string][]byte)
	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format, metaHash))
			data, hit, err := r.Cache.Get(ctx, cacheKey)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil // All artifacts from cache
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	// Render all formats
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRenderStart(ctx, opts.Formats)
	rendered, err := RenderFromLayout(layout, items, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format, metaHash))
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, layout masonry.Layout, items []gallery.MediaItem, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, layout, items, opts)
	return artifacts, err
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
