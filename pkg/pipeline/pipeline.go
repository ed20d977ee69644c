// Package pipeline runs the fetch → layout → render pipeline shared by the
// CLI and the server.
//
// # Stages
//
//  1. Fetch: read media items from a gallery.Source (or take them inline),
//     keep images and videos, drop duplicates, apply the search term
//  2. Layout: resolve columns for the container width and distribute items
//  3. Render: produce SVG, JSON or text artifacts
//
// Layouts and artifacts are cached by content hash, so re-running with the
// same items, constraints and width is free.
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  client,
//	    Width:   1280,
//	    Formats: []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the container width used when none is given.
	DefaultWidth = 960.0

	// DefaultLimit caps how many items a fetch drains from a source.
	DefaultLimit = 500

	// DefaultTextWidth is the character width of text renderings.
	DefaultTextWidth = 80
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Fetch options
	Items  []gallery.MediaItem `json:"items,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Search string              `json:"search,omitempty"`

	// Layout options
	Constraints masonry.Constraints `json:"constraints"`
	Width       float64             `json:"width,omitempty"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	TextWidth int      `json:"text_width,omitempty"`
	Padding   float64  `json:"padding,omitempty"`

	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Source gallery.Source `json:"-"`
	Logger *log.Logger    `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Items are the media items that were laid out, in layout order.
	Items []gallery.MediaItem

	// ItemsHash is the content hash of the layout items.
	ItemsHash string

	Layout    masonry.Layout
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ItemCount  int
	NumCols    int
	FetchTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForFetch(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForFetch checks that there is something to lay out.
func (o *Options) ValidateForFetch() error {
	if o.Source == nil && o.Items == nil {
		return errors.New(errors.ErrCodeInvalidInput, "a source or inline items are required")
	}
	if o.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "limit must not be negative")
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if err := errors.ValidateSearchTerm(o.Search); err != nil {
		return err
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Constraints.IsZero() {
		o.Constraints = masonry.DefaultConstraints()
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	o.setLogger()
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := o.Constraints.Validate(); err != nil {
		return err
	}
	return errors.ValidateContainerWidth(o.Width)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{render.FormatSVG}
	}
	if o.TextWidth == 0 {
		o.TextWidth = DefaultTextWidth
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.TextWidth < 0 || o.Padding < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "text_width and padding must not be negative")
	}
	return render.ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		ContainerWidth: o.Width,
		MinCols:        o.Constraints.MinCols,
		MaxCols:        o.Constraints.MaxCols,
		MinColWidth:    o.Constraints.MinColWidth,
		MaxColWidth:    o.Constraints.MaxColWidth,
		Gap:            o.Constraints.Gap,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format, metaHash string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, MetaHash: metaHash}
	switch format {
	case render.FormatText:
		k.TextWidth = o.TextWidth
	case render.FormatSVG:
		k.Padding = o.Padding
	}
	return k
}

// HashItems returns the content hash of the layout-relevant item fields.
func HashItems(items []masonry.Item) string {
	data, _ := json.Marshal(items)
	return cache.Hash(data)
}
