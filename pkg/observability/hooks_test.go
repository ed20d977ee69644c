package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

type reflowRecorder struct {
	Noop
	triggers []string
}

func (r *reflowRecorder) OnReflow(trigger string, _, _ int, _ time.Duration) {
	r.triggers = append(r.triggers, trigger)
}

func TestRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Layout().(Noop); !ok {
		t.Fatalf("Layout() = %T before install, want Noop", Layout())
	}

	rec := &reflowRecorder{}
	SetLayoutHooks(rec)
	SetLayoutHooks(nil)
	Layout().OnReflow("resize", 3, 10, time.Millisecond)
	if len(rec.triggers) != 1 || rec.triggers[0] != "resize" {
		t.Errorf("recorded %v", rec.triggers)
	}
	if _, ok := Cache().(Noop); !ok {
		t.Errorf("Cache() = %T, want Noop after SetLayoutHooks only", Cache())
	}

	c := NewCounters()
	Install(c)
	for name, got := range map[string]any{"layout": Layout(), "pipeline": Pipeline(), "cache": Cache(), "http": HTTP()} {
		if got != any(c) {
			t.Errorf("%s hooks = %T, want the installed counters", name, got)
		}
	}

	Reset()
	if _, ok := Pipeline().(Noop); !ok {
		t.Errorf("Pipeline() = %T after Reset, want Noop", Pipeline())
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	c := NewCounters()

	c.OnReflow("resize", 3, 12, 2*time.Millisecond)
	c.OnReflow("append", 3, 20, time.Millisecond)
	c.OnReflow("resize", 2, 20, time.Millisecond)

	c.OnFetchComplete(ctx, "api", 20, time.Second, nil)
	c.OnFetchComplete(ctx, "api", 0, time.Second, errors.New("timeout"))
	c.OnLayoutComplete(ctx, 3, time.Millisecond, nil)
	c.OnRenderComplete(ctx, []string{"svg"}, time.Millisecond, nil)

	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 512)

	c.OnRequest(ctx, "GET", "127.0.0.1:5000", "/api/v1/file/")
	c.OnResponse(ctx, "GET", "127.0.0.1:5000", "/api/v1/file/", 200, time.Millisecond)
	c.OnError(ctx, "GET", "127.0.0.1:5000", "/api/v1/file/", errors.New("refused"))

	s := c.Snapshot()
	if s.Reflows != 3 || s.ReflowTriggers["resize"] != 2 || s.LastNumCols != 2 || s.ReflowTime != 4*time.Millisecond {
		t.Errorf("reflow counts = %+v", s)
	}
	if s.Fetches != 2 || s.ItemsFetched != 20 || s.Layouts != 1 || s.Renders != 1 || s.StageErrors != 1 {
		t.Errorf("stage counts = %+v", s)
	}
	if s.CacheHits["layout"] != 1 || s.CacheMisses["artifact"] != 2 || s.CacheBytes != 512 {
		t.Errorf("cache counts = %+v", s)
	}
	if s.HTTPRequests != 1 || s.HTTPStatus[200] != 1 || s.HTTPErrors != 1 {
		t.Errorf("http counts = %+v", s)
	}

	s.CacheHits["layout"] = 99
	if c.Snapshot().CacheHits["layout"] != 1 {
		t.Error("Snapshot shares maps with the counters")
	}
}
