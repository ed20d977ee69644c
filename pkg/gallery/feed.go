package gallery

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/masonry"
)

// Sink receives the visible item sequence. *masonry.Controller is a Sink.
type Sink interface {
	Replace(items []masonry.Item)
	Append(items ...masonry.Item) int
	Remove(ids ...string) int
}

// FeedState is a snapshot of a Feed.
type FeedState struct {
	// Items are all loaded media items, deduplicated, in arrival order.
	Items []MediaItem
	// Visible are the Items matching SearchTerm.
	Visible []MediaItem

	LoadingInitial bool
	FetchingMore   bool
	EndOfList      bool
	Next           string
	SearchTerm     string
	Err            error
}

// Feed drives infinite scroll over a Source. Pages are filtered to images
// and videos and deduplicated on LayoutID, keeping the first occurrence.
// Every change to the visible sequence is pushed to the sink: Replace for
// initial loads, searches and refreshes, Append for further pages, Remove
// for deletions.
type Feed struct {
	src    Source
	sink   Sink
	logger *log.Logger

	// pushMu orders sink updates; mu guards the fields below. Sink calls
	// happen without mu so subscribers may call Snapshot.
	pushMu sync.Mutex
	mu     sync.Mutex

	items          []MediaItem
	seen           map[string]struct{}
	next           string
	loadingInitial bool
	fetchingMore   bool
	endOfList      bool
	term           string
	err            error
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithFeedLogger sets the feed's logger.
func WithFeedLogger(l *log.Logger) FeedOption {
	return func(f *Feed) { f.logger = l }
}

// NewFeed creates a feed reading from src and pushing into sink. A nil
// sink discards updates.
func NewFeed(src Source, sink Sink, opts ...FeedOption) *Feed {
	f := &Feed{
		src:    src,
		sink:   sink,
		logger: log.New(io.Discard),
		seen:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load fetches the first page. It does nothing when items are already
// loaded or an initial load is in flight.
func (f *Feed) Load(ctx context.Context) error {
	f.mu.Lock()
	if len(f.items) > 0 || f.loadingInitial {
		f.mu.Unlock()
		return nil
	}
	f.loadingInitial = true
	f.err = nil
	f.mu.Unlock()

	page, err := f.src.FetchInitialPage(ctx)

	f.pushMu.Lock()
	defer f.pushMu.Unlock()

	f.mu.Lock()
	f.loadingInitial = false
	if err != nil {
		f.err = err
		f.mu.Unlock()
		f.logger.Warn("initial load failed", "error", err)
		return err
	}
	f.items = f.items[:0]
	clear(f.seen)
	f.accept(page.Items)
	f.setNext(page.Next, "")
	visible := f.visibleLocked(f.items)
	f.mu.Unlock()

	f.logger.Debug("loaded initial page", "items", len(visible), "end", page.Next == "")
	if f.sink != nil {
		f.sink.Replace(LayoutItems(visible))
	}
	return nil
}

// LoadMore fetches the next page. It does nothing at the end of the list,
// before the first page, or while another fetch is in flight.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.endOfList || f.fetchingMore || f.loadingInitial || f.next == "" {
		f.mu.Unlock()
		return nil
	}
	f.fetchingMore = true
	f.err = nil
	token := f.next
	f.mu.Unlock()

	page, err := f.src.FetchPage(ctx, token)

	f.pushMu.Lock()
	defer f.pushMu.Unlock()

	f.mu.Lock()
	f.fetchingMore = false
	if err != nil {
		f.err = err
		f.mu.Unlock()
		f.logger.Warn("load more failed", "error", err)
		return err
	}
	added := f.accept(page.Items)
	f.setNext(page.Next, token)
	visible := f.visibleLocked(added)
	f.mu.Unlock()

	f.logger.Debug("loaded page", "new", len(added), "visible", len(visible), "end", f.EndOfList())
	if f.sink != nil && len(visible) > 0 {
		f.sink.Append(LayoutItems(visible)...)
	}
	return nil
}

// Refresh drops every loaded item and loads the first page again.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.loadingInitial || f.fetchingMore {
		f.mu.Unlock()
		return nil
	}
	f.items = nil
	clear(f.seen)
	f.next = ""
	f.endOfList = false
	f.mu.Unlock()
	return f.Load(ctx)
}

// Delete deletes a file at the source and removes it from the feed.
func (f *Feed) Delete(ctx context.Context, fileID int64) error {
	d, ok := f.src.(Deleter)
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "source does not support deletion")
	}
	if err := d.DeleteFile(ctx, fileID); err != nil {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		return err
	}

	f.pushMu.Lock()
	defer f.pushMu.Unlock()

	f.mu.Lock()
	var ids []string
	f.items = slices.DeleteFunc(f.items, func(it MediaItem) bool {
		if it.FileID != fileID {
			return false
		}
		ids = append(ids, it.LayoutID())
		delete(f.seen, it.LayoutID())
		return true
	})
	f.mu.Unlock()

	if f.sink != nil && len(ids) > 0 {
		f.sink.Remove(ids...)
	}
	return nil
}

// SetSearchTerm filters the visible items and replaces the sink's sequence.
func (f *Feed) SetSearchTerm(term string) error {
	if err := errors.ValidateSearchTerm(term); err != nil {
		return err
	}

	f.pushMu.Lock()
	defer f.pushMu.Unlock()

	f.mu.Lock()
	if term == f.term {
		f.mu.Unlock()
		return nil
	}
	f.term = term
	visible := f.visibleLocked(f.items)
	f.mu.Unlock()

	if f.sink != nil {
		f.sink.Replace(LayoutItems(visible))
	}
	return nil
}

// ClearError resets the last error.
func (f *Feed) ClearError() {
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
}

// EndOfList reports whether the source has no further pages.
func (f *Feed) EndOfList() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endOfList
}

// Snapshot returns a copy of the feed state.
func (f *Feed) Snapshot() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedState{
		Items:          slices.Clone(f.items),
		Visible:        f.visibleLocked(f.items),
		LoadingInitial: f.loadingInitial,
		FetchingMore:   f.fetchingMore,
		EndOfList:      f.endOfList,
		Next:           f.next,
		SearchTerm:     f.term,
		Err:            f.err,
	}
}

// accept appends the media items of a page that are not yet loaded and
// returns them.
func (f *Feed) accept(page []MediaItem) []MediaItem {
	var added []MediaItem
	for _, it := range FilterMedia(page) {
		id := it.LayoutID()
		if _, dup := f.seen[id]; dup {
			continue
		}
		f.seen[id] = struct{}{}
		f.items = append(f.items, it)
		added = append(added, it)
	}
	return added
}

// setNext records the next token. A source that answers with the token it
// was asked for is treated as exhausted.
func (f *Feed) setNext(next, requested string) {
	if next == requested {
		next = ""
	}
	f.next = next
	f.endOfList = next == ""
}

func (f *Feed) visibleLocked(items []MediaItem) []MediaItem {
	out := make([]MediaItem, 0, len(items))
	for _, it := range items {
		if it.Matches(f.term) {
			out = append(out, it)
		}
	}
	return out
}

var _ Sink = (*masonry.Controller)(nil)
