package masonry

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/observability"
)

// Phase is the measurement phase of a [Controller].
type Phase int

const (
	// Unmeasured means no container width is known yet. The layout uses
	// MinCols columns of MinColWidth as a placeholder.
	Unmeasured Phase = iota
	// Measured means the layout was resolved from a real container width.
	Measured
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	if p == Measured {
		return "measured"
	}
	return "unmeasured"
}

// Trigger names the reason for a reflow.
type Trigger string

// Reflow triggers.
const (
	TriggerResize      Trigger = "resize"
	TriggerConstraints Trigger = "constraints"
	TriggerItems       Trigger = "items"
	TriggerRecompute   Trigger = "recompute"
)

// State is the derived layout owned by a [Controller]. It is recomputed
// wholesale on every trigger and never patched in place.
type State struct {
	Phase          Phase      `json:"phase"`
	ContainerWidth float64    `json:"container_width"`
	NumCols        int        `json:"num_cols"`
	ColWidth       float64    `json:"col_width"`
	Gap            float64    `json:"gap"`
	Columns        Assignment `json:"columns"`
	// Version increases by one with every reflow.
	Version uint64 `json:"version"`
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	s.Columns = s.Columns.Clone()
	return s
}

// Container is the host element a controller lays out into.
type Container interface {
	// Width returns the current content-box width. An error means the
	// container cannot be measured right now (e.g. not attached yet).
	Width() (float64, error)
	// OnResize registers fn to be called whenever the width may have changed.
	OnResize(fn func()) (unsubscribe func())
}

// Option configures a [Controller].
type Option func(*Controller)

// WithLogger sets the logger used for reflow diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCoalesce merges resize notifications from attached containers that
// arrive within d of each other into one measurement.
func WithCoalesce(d time.Duration) Option {
	return func(c *Controller) { c.coalesce = d }
}

// Controller owns the layout state of one view and keeps it in sync with the
// container width, the constraints and the item list.
//
// All methods are safe for concurrent use. Reflows are synchronous; when two
// triggers race, the last one to finish wins. Subscribers are invoked after
// the state lock is released and receive their own copy of the state.
type Controller struct {
	mu          sync.Mutex
	constraints Constraints
	items       []Item
	ids         map[string]struct{}
	state       State
	subs        map[int]func(State)
	nextSub     int

	logger   *log.Logger
	coalesce time.Duration
}

// NewController creates an unmeasured controller. Invalid constraints are a
// programming error and are reported immediately.
func NewController(c Constraints, opts ...Option) (*Controller, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ctrl := &Controller{
		constraints: c,
		ids:         make(map[string]struct{}),
		subs:        make(map[int]func(State)),
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	ctrl.state = State{
		Phase:    Unmeasured,
		NumCols:  c.MinCols,
		ColWidth: c.MinColWidth,
		Gap:      c.Gap,
		Columns:  Distribute(nil, c.MinColWidth, c.MinCols, c.Gap),
	}
	return ctrl, nil
}

// State returns a snapshot of the current layout state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Constraints returns the active constraints.
func (c *Controller) Constraints() Constraints {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.constraints
}

// Items returns a copy of the current item list.
func (c *Controller) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

// Layout returns the current state with coordinates for every item.
func (c *Controller) Layout() Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := Arrange(c.items, c.state.NumCols, c.state.ColWidth, c.state.Gap)
	l.ContainerWidth = c.state.ContainerWidth
	return l
}

// Resize reflows for a new container width. Widths that are zero, negative
// or not finite mean the container is not measurable yet; the previous state
// is kept and Resize reports false.
func (c *Controller) Resize(width float64) bool {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		c.logger.Debug("skipping reflow, container not measurable", "width", width)
		return false
	}
	c.mu.Lock()
	c.state.Phase = Measured
	c.state.ContainerWidth = width
	s := c.reflowLocked(TriggerResize)
	c.mu.Unlock()

	c.notify(s)
	return true
}

// SetConstraints replaces the constraints and reflows. Unmeasured controllers
// switch to the new placeholder column count and width.
func (c *Controller) SetConstraints(cs Constraints) error {
	if err := cs.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.constraints = cs
	s := c.reflowLocked(TriggerConstraints)
	c.mu.Unlock()

	c.notify(s)
	return nil
}

// Append adds items to the end of the list, dropping any whose ID is already
// present. It returns the number of items actually added; when nothing is
// added no reflow happens.
func (c *Controller) Append(items ...Item) int {
	c.mu.Lock()
	fresh := Dedupe(c.items, items)
	if len(fresh) == 0 {
		c.mu.Unlock()
		return 0
	}
	for _, it := range fresh {
		c.ids[it.ID] = struct{}{}
	}
	c.items = append(c.items, fresh...)
	s := c.reflowLocked(TriggerItems)
	c.mu.Unlock()

	c.notify(s)
	return len(fresh)
}

// Replace swaps in a new item list. Later duplicates of an ID are dropped.
func (c *Controller) Replace(items []Item) {
	c.mu.Lock()
	c.items = Dedupe(nil, items)
	c.ids = make(map[string]struct{}, len(c.items))
	for _, it := range c.items {
		c.ids[it.ID] = struct{}{}
	}
	s := c.reflowLocked(TriggerItems)
	c.mu.Unlock()

	c.notify(s)
}

// Remove deletes the items with the given IDs and returns how many were
// removed. Unknown IDs are ignored.
func (c *Controller) Remove(ids ...string) int {
	c.mu.Lock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.ids[id]; ok {
			drop[id] = struct{}{}
		}
	}
	if len(drop) == 0 {
		c.mu.Unlock()
		return 0
	}
	kept := c.items[:0:0]
	for _, it := range c.items {
		if _, gone := drop[it.ID]; gone {
			delete(c.ids, it.ID)
			continue
		}
		kept = append(kept, it)
	}
	c.items = kept
	s := c.reflowLocked(TriggerItems)
	c.mu.Unlock()

	c.notify(s)
	return len(drop)
}

// Recompute reflows from the current inputs.
func (c *Controller) Recompute() {
	c.mu.Lock()
	s := c.reflowLocked(TriggerRecompute)
	c.mu.Unlock()

	c.notify(s)
}

// Subscribe registers fn to receive every new state. The returned function
// removes the subscription and is safe to call more than once.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Attach measures ct immediately and then on every resize notification.
// Measurement errors are logged and skipped; the next notification retries.
// The returned detach function unregisters from ct.
func (c *Controller) Attach(ct Container) (detach func()) {
	measure := func() {
		w, err := ct.Width()
		if err != nil {
			c.logger.Debug("container measurement failed", "err", err)
			return
		}
		c.Resize(w)
	}

	trigger := measure
	var co *Coalescer
	if c.coalesce > 0 {
		co = NewCoalescer(c.coalesce, measure)
		trigger = co.Trigger
	}

	measure()
	unsubscribe := ct.OnResize(trigger)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			if co != nil {
				co.Stop()
			}
		})
	}
}

// reflowLocked recomputes the state from the current inputs. Only item-list
// changes keep the current column parameters; every other trigger resolves
// them again. c.mu must be held.
func (c *Controller) reflowLocked(trigger Trigger) State {
	start := time.Now()
	cs := c.constraints

	if trigger != TriggerItems {
		if c.state.Phase == Measured {
			c.state.NumCols, c.state.ColWidth = Resolve(cs, c.state.ContainerWidth)
		} else {
			c.state.NumCols, c.state.ColWidth = cs.MinCols, cs.MinColWidth
		}
		c.state.Gap = cs.Gap
	}
	c.state.Columns = Distribute(c.items, c.state.ColWidth, c.state.NumCols, c.state.Gap)
	c.state.Version++

	elapsed := time.Since(start)
	c.logger.Debug("reflow",
		"trigger", trigger,
		"phase", c.state.Phase,
		"cols", c.state.NumCols,
		"col_width", c.state.ColWidth,
		"items", len(c.items),
		"duration", elapsed)
	observability.Layout().OnReflow(string(trigger), c.state.NumCols, len(c.items), elapsed)

	return c.state.Clone()
}

func (c *Controller) notify(s State) {
	c.mu.Lock()
	subs := make([]func(State), 0, len(c.subs))
	for id := 0; id < c.nextSub; id++ {
		if fn, ok := c.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s.Clone())
	}
}
