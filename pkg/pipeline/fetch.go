package pipeline

import (
	"context"

	"github.com/matzehuels/masonry/pkg/gallery"
)

// =============================================================================
// Fetching
// =============================================================================

// FetchItems collects the items to lay out. Inline items take precedence over
// the source. Non-media files are dropped, the search term is applied and
// duplicates are removed by layout ID, keeping the first occurrence.
// Limit caps the filtered result. For a source it also bounds how many raw
// items are drained, so a source result may hold fewer matches than Limit.
func FetchItems(ctx context.Context, opts Options) ([]gallery.MediaItem, error) {
	if err := opts.ValidateForFetch(); err != nil {
		return nil, err
	}

	items := opts.Items
	if items == nil {
		var err error
		if items, err = gallery.FetchAll(ctx, opts.Source, opts.Limit); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]gallery.MediaItem, 0, len(items))
	for _, it := range gallery.FilterMedia(items) {
		if len(out) == opts.Limit {
			break
		}
		if !it.Matches(opts.Search) {
			continue
		}
		id := it.LayoutID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, it)
	}

	if dropped := len(items) - len(out); dropped > 0 {
		opts.Logger.Debug("filtered items", "kept", len(out), "dropped", dropped)
	}
	return out, nil
}

// sourceName labels the item origin for observability hooks.
func sourceName(opts Options) string {
	if opts.Items != nil || opts.Source == nil {
		return "inline"
	}
	if s, ok := opts.Source.(interface{ String() string }); ok {
		return s.String()
	}
	return "source"
}
