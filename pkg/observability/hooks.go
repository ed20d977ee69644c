// Package observability lets a binary observe reflows, pipeline stages,
// cache traffic and outgoing HTTP calls without the libraries importing a
// metrics backend.
//
// Libraries emit through the accessors:
//
//	observability.Pipeline().OnFetchStart(ctx, "mongo")
//	observability.Cache().OnCacheHit(ctx, "layout")
//
// and main installs implementations once at startup, before controllers or
// runners exist. Until then every accessor returns a no-op. [Counters]
// implements all four hook sets; Install registers it for all of them:
//
//	c := observability.NewCounters()
//	observability.Install(c)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// LayoutHooks receives masonry controller events. Reflows run under the
// controller's lock and are frequent, so implementations must be cheap.
type LayoutHooks interface {
	OnReflow(trigger string, numCols, itemCount int, duration time.Duration)
}

// PipelineHooks receives fetch, layout and render stage events.
type PipelineHooks interface {
	OnFetchStart(ctx context.Context, source string)
	OnFetchComplete(ctx context.Context, source string, itemCount int, duration time.Duration, err error)
	OnLayoutStart(ctx context.Context, itemCount int)
	OnLayoutComplete(ctx context.Context, numCols int, duration time.Duration, err error)
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks receives cache lookups and writes. keyType is "layout",
// "artifact" or "page".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives gallery API client events. OnError covers transport
// failures only; error statuses arrive through OnResponse.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// Noop implements every hook set and does nothing. Embed it to implement
// only some methods.
type Noop struct{}

func (Noop) OnReflow(string, int, int, time.Duration) {}

func (Noop) OnFetchStart(context.Context, string)                               {}
func (Noop) OnFetchComplete(context.Context, string, int, time.Duration, error) {}
func (Noop) OnLayoutStart(context.Context, int)                                 {}
func (Noop) OnLayoutComplete(context.Context, int, time.Duration, error)        {}
func (Noop) OnRenderStart(context.Context, []string)                            {}
func (Noop) OnRenderComplete(context.Context, []string, time.Duration, error)   {}

func (Noop) OnCacheHit(context.Context, string)      {}
func (Noop) OnCacheMiss(context.Context, string)     {}
func (Noop) OnCacheSet(context.Context, string, int) {}

func (Noop) OnRequest(context.Context, string, string, string)                      {}
func (Noop) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (Noop) OnError(context.Context, string, string, string, error)                 {}

// slot holds one installed hook set, or nothing.
type slot[T any] struct{ p atomic.Pointer[T] }

func (s *slot[T]) load(fallback T) T {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return fallback
}

func (s *slot[T]) store(v T) {
	if any(v) != nil {
		s.p.Store(&v)
	}
}

var (
	layoutSlot   slot[LayoutHooks]
	pipelineSlot slot[PipelineHooks]
	cacheSlot    slot[CacheHooks]
	httpSlot     slot[HTTPHooks]
)

// SetLayoutHooks installs h. A nil h is ignored.
func SetLayoutHooks(h LayoutHooks) { layoutSlot.store(h) }

// SetPipelineHooks installs h. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.store(h) }

// SetCacheHooks installs h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) { cacheSlot.store(h) }

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) { httpSlot.store(h) }

// Hooks implements every hook set.
type Hooks interface {
	LayoutHooks
	PipelineHooks
	CacheHooks
	HTTPHooks
}

// Install registers h for all four hook sets.
func Install(h Hooks) {
	SetLayoutHooks(h)
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func Layout() LayoutHooks     { return layoutSlot.load(Noop{}) }
func Pipeline() PipelineHooks { return pipelineSlot.load(Noop{}) }
func Cache() CacheHooks       { return cacheSlot.load(Noop{}) }
func HTTP() HTTPHooks         { return httpSlot.load(Noop{}) }

// Reset restores the no-op hooks.
func Reset() {
	layoutSlot.p.Store(nil)
	pipelineSlot.p.Store(nil)
	cacheSlot.p.Store(nil)
	httpSlot.p.Store(nil)
}
