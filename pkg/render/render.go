package render

import (
	"slices"
	"strings"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/masonry"
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatText = "txt"
)

// Formats lists the supported formats in display order.
var Formats = []string{FormatSVG, FormatJSON, FormatText}

// ContentType returns the MIME type of a format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ValidateFormats rejects unknown formats.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if !slices.Contains(Formats, f) {
			return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be one of %s)", f, strings.Join(Formats, ", "))
		}
	}
	return nil
}

// Meta is optional per-item information shown alongside a block.
type Meta struct {
	Title string `json:"title,omitempty"`
	Src   string `json:"src,omitempty"`
	Video bool   `json:"video,omitempty"`
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	meta    map[string]Meta
	padding float64
	palette []string
	cols    int
}

// WithMeta attaches titles and sources, keyed by block ID.
func WithMeta(meta map[string]Meta) Option { return func(r *renderer) { r.meta = meta } }

// WithPadding sets the SVG margin around the grid.
func WithPadding(p float64) Option { return func(r *renderer) { r.padding = max(p, 0) } }

// WithPalette sets the SVG fill colors, cycled by block index.
func WithPalette(colors ...string) Option {
	return func(r *renderer) {
		if len(colors) > 0 {
			r.palette = colors
		}
	}
}

// WithTextWidth sets the character width of the text rendering.
func WithTextWidth(cols int) Option { return func(r *renderer) { r.cols = cols } }

var defaultPalette = []string{"#e8d5b7", "#b8d8d8", "#d6c1e0", "#f2b5a7", "#c7dba6", "#a9c6e8"}

func newRenderer(opts ...Option) renderer {
	r := renderer{padding: 16, palette: defaultPalette, cols: 80}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Render renders l in the given format.
func Render(l masonry.Layout, format string, opts ...Option) ([]byte, error) {
	switch format {
	case FormatSVG:
		return RenderSVG(l, opts...), nil
	case FormatJSON:
		return RenderJSON(l, opts...)
	case FormatText:
		return []byte(RenderText(l, opts...)), nil
	default:
		return nil, ValidateFormats([]string{format})
	}
}
