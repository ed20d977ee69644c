package pipeline

import (
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout resolves the column parameters for opts.Width and arranges
// the items into a positioned masonry.
func GenerateLayout(items []gallery.MediaItem, opts Options) (masonry.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return masonry.Layout{}, err
	}
	l := masonry.Compute(opts.Constraints, opts.Width, gallery.LayoutItems(items))
	opts.Logger.Debug("resolved columns",
		"width", opts.Width,
		"cols", l.NumCols,
		"col_width", l.ColWidth)
	return l, nil
}
