package pipeline

import (
	"encoding/json"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/render"
)

// =============================================================================
// Rendering
// =============================================================================

// RenderFromLayout renders a layout into every requested format.
// Item titles and sources are attached to the blocks when items are given.
func RenderFromLayout(l masonry.Layout, items []gallery.MediaItem, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	renderOpts := []render.Option{
		render.WithMeta(BuildMeta(items)),
		render.WithTextWidth(opts.TextWidth),
	}
	if opts.Padding > 0 {
		renderOpts = append(renderOpts, render.WithPadding(opts.Padding))
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := render.Render(l, format, renderOpts...)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// BuildMeta maps layout IDs to the display information of their items.
func BuildMeta(items []gallery.MediaItem) map[string]render.Meta {
	meta := make(map[string]render.Meta, len(items))
	for _, it := range items {
		meta[it.LayoutID()] = render.Meta{
			Title: it.Title,
			Src:   it.Src,
			Video: it.FileType == gallery.FileTypeVideo,
		}
	}
	return meta
}

// hashMeta is the cache key component for per-item display information.
func hashMeta(meta map[string]render.Meta) string {
	if len(meta) == 0 {
		return ""
	}
	data, _ := json.Marshal(meta) // map keys are sorted
	return cache.Hash(data)
}
