package masonry

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCoalescerFlush(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(time.Hour, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		c.Trigger()
	}
	c.Flush()
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	c.Flush()
	if n := calls.Load(); n != 1 {
		t.Errorf("Flush() without pending trigger called fn, calls = %d", n)
	}
}

func TestCoalescerFires(t *testing.T) {
	done := make(chan struct{}, 4)
	c := NewCoalescer(5*time.Millisecond, func() { done <- struct{}{} })
	c.Trigger()
	c.Trigger()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coalesced call never fired")
	}
	select {
	case <-done:
		t.Error("burst produced more than one call")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCoalescerStop(t *testing.T) {
	var calls atomic.Int32
	c := NewCoalescer(time.Hour, func() { calls.Add(1) })
	c.Trigger()
	c.Stop()
	c.Flush()
	c.Trigger()
	c.Flush()
	if n := calls.Load(); n != 0 {
		t.Errorf("calls = %d after Stop, want 0", n)
	}
}
