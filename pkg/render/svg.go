package render

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/masonry/pkg/masonry"
)

const blockCSS = `
    .block { stroke: #5a5a5a; stroke-width: 1; transition: stroke-width 0.2s ease; }
    .block:hover { stroke-width: 3; }
    .block-label { font: 12px sans-serif; fill: #333; pointer-events: none; }`

// RenderSVG renders the layout as a standalone SVG document.
func RenderSVG(l masonry.Layout, opts ...Option) []byte {
	r := newRenderer(opts...)
	w := l.Width + 2*r.padding
	h := l.Height + 2*r.padding

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", blockCSS)
	fmt.Fprintf(&buf, `  <rect width="%.1f" height="%.1f" fill="#fafafa"/>`+"\n", w, h)

	for i, b := range l.Blocks {
		renderBlock(&buf, &r, i, b)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderBlock(buf *bytes.Buffer, r *renderer, i int, b masonry.Block) {
	x, y := b.X+r.padding, b.Y+r.padding
	m := r.meta[b.ID]

	fmt.Fprintf(buf, `  <g id="block-%s">`+"\n", escape(b.ID))
	fmt.Fprintf(buf, `    <rect class="block" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" fill="%s">`,
		x, y, b.Width, b.Height, r.palette[i%len(r.palette)])
	title := m.Title
	if title == "" {
		title = b.ID
	}
	fmt.Fprintf(buf, "<title>%s</title></rect>\n", escape(title))

	if m.Title != "" && b.Height >= 24 {
		fmt.Fprintf(buf, `    <text class="block-label" x="%.1f" y="%.1f">%s</text>`+"\n",
			x+8, y+18, escape(truncate(m.Title, int(b.Width/7))))
	}
	if m.Video {
		cx, cy := x+b.Width/2, y+b.Height/2
		fmt.Fprintf(buf, `    <polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="#ffffff" opacity="0.8"/>`+"\n",
			cx-8, cy-10, cx-8, cy+10, cx+10, cy)
	}
	buf.WriteString("  </g>\n")
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(rs) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(rs[:n-1]) + "…"
}
