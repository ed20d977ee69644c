package observability

import (
	"context"
	"sync"
	"time"
)

// Counters is an in-process Hooks implementation that tallies events.
// `masonry serve` installs one and reports it on GET /v1/stats.
type Counters struct {
	mu sync.Mutex
	s  Snapshot
}

// Snapshot is a point-in-time copy of a Counters.
type Snapshot struct {
	Reflows        int64            `json:"reflows"`
	ReflowTriggers map[string]int64 `json:"reflow_triggers"`
	ReflowTime     time.Duration    `json:"reflow_time_ns"`
	LastNumCols    int              `json:"last_num_cols"`

	Fetches      int64 `json:"fetches"`
	Layouts      int64 `json:"layouts"`
	Renders      int64 `json:"renders"`
	StageErrors  int64 `json:"stage_errors"`
	ItemsFetched int64 `json:"items_fetched"`

	CacheHits   map[string]int64 `json:"cache_hits"`
	CacheMisses map[string]int64 `json:"cache_misses"`
	CacheBytes  int64            `json:"cache_bytes_written"`

	HTTPRequests int64         `json:"http_requests"`
	HTTPErrors   int64         `json:"http_errors"`
	HTTPStatus   map[int]int64 `json:"http_status"`
}

func NewCounters() *Counters {
	return &Counters{s: Snapshot{
		ReflowTriggers: map[string]int64{},
		CacheHits:      map[string]int64{},
		CacheMisses:    map[string]int64{},
		HTTPStatus:     map[int]int64{},
	}}
}

// Snapshot copies the current counts.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.s
	out.ReflowTriggers = cloneMap(c.s.ReflowTriggers)
	out.CacheHits = cloneMap(c.s.CacheHits)
	out.CacheMisses = cloneMap(c.s.CacheMisses)
	out.HTTPStatus = cloneMap(c.s.HTTPStatus)
	return out
}

func cloneMap[K comparable](m map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c *Counters) update(f func(s *Snapshot)) {
	c.mu.Lock()
	f(&c.s)
	c.mu.Unlock()
}

func (c *Counters) OnReflow(trigger string, numCols, _ int, d time.Duration) {
	c.update(func(s *Snapshot) {
		s.Reflows++
		s.ReflowTriggers[trigger]++
		s.ReflowTime += d
		s.LastNumCols = numCols
	})
}

func countStage(s *Snapshot, stage *int64, err error) {
	*stage++
	if err != nil {
		s.StageErrors++
	}
}

func (c *Counters) OnFetchStart(context.Context, string) {}

func (c *Counters) OnFetchComplete(_ context.Context, _ string, n int, _ time.Duration, err error) {
	c.update(func(s *Snapshot) {
		countStage(s, &s.Fetches, err)
		if err == nil {
			s.ItemsFetched += int64(n)
		}
	})
}

func (c *Counters) OnLayoutStart(context.Context, int) {}

func (c *Counters) OnLayoutComplete(_ context.Context, _ int, _ time.Duration, err error) {
	c.update(func(s *Snapshot) { countStage(s, &s.Layouts, err) })
}

func (c *Counters) OnRenderStart(context.Context, []string) {}

func (c *Counters) OnRenderComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	c.update(func(s *Snapshot) { countStage(s, &s.Renders, err) })
}

func (c *Counters) OnCacheHit(_ context.Context, keyType string) {
	c.update(func(s *Snapshot) { s.CacheHits[keyType]++ })
}

func (c *Counters) OnCacheMiss(_ context.Context, keyType string) {
	c.update(func(s *Snapshot) { s.CacheMisses[keyType]++ })
}

func (c *Counters) OnCacheSet(_ context.Context, _ string, size int) {
	c.update(func(s *Snapshot) { s.CacheBytes += int64(size) })
}

func (c *Counters) OnRequest(context.Context, string, string, string) {
	c.update(func(s *Snapshot) { s.HTTPRequests++ })
}

func (c *Counters) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	c.update(func(s *Snapshot) { s.HTTPStatus[status]++ })
}

func (c *Counters) OnError(context.Context, string, string, string, error) {
	c.update(func(s *Snapshot) { s.HTTPErrors++ })
}

var _ Hooks = (*Counters)(nil)
