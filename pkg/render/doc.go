// Package render turns a computed masonry layout into output artifacts.
//
// Supported formats:
//   - svg: one rect per block, with the item title as tooltip
//   - json: the layout document plus optional per-item metadata
//   - txt: a character-cell sketch of the columns for terminals
//
//	l := masonry.Compute(c, 960, items)
//	svg := render.RenderSVG(l, render.WithMeta(meta))
//
// Rendering is pure: the same layout and options give identical bytes.
package render
