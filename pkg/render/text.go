package render

import (
	"math"
	"strings"

	"github.com/matzehuels/masonry/pkg/masonry"
)

// RenderText sketches the layout with box-drawing characters, scaled to the
// WithTextWidth column budget. Terminal cells are about twice as tall as
// wide, so vertical extents are halved. Every block is at least three cells
// tall and columns stack their blocks without overlap.
func RenderText(l masonry.Layout, opts ...Option) string {
	r := newRenderer(opts...)
	if len(l.Blocks) == 0 || l.Width <= 0 {
		return ""
	}

	sx := float64(max(r.cols, l.NumCols*3)) / l.Width
	sy := sx / 2
	colW := max(3, int(math.Floor(l.ColWidth*sx)))

	type box struct {
		x, y, w, h int
		label      string
	}
	boxes := make([]box, 0, len(l.Blocks))
	next := make([]int, l.NumCols)
	width, height := 0, 0

	// Blocks are in arrival order, and a column's rows arrive in order.
	for _, b := range l.Blocks {
		x := int(math.Floor(float64(b.Column) * (l.ColWidth + l.Gap) * sx))
		h := max(3, int(math.Round(b.Height*sy)))
		label := b.ID
		if m, ok := r.meta[b.ID]; ok && m.Title != "" {
			label = m.Title
		}
		bx := box{x: x, y: next[b.Column], w: colW, h: h, label: label}
		boxes = append(boxes, bx)
		next[b.Column] += h
		width = max(width, x+colW)
		height = max(height, next[b.Column])
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	for _, bx := range boxes {
		drawBox(grid, bx.x, bx.y, bx.w, bx.h, bx.label)
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(strings.TrimRight(string(row), " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func drawBox(grid [][]rune, x, y, w, h int, label string) {
	for i := x; i < x+w; i++ {
		grid[y][i] = '─'
		grid[y+h-1][i] = '─'
	}
	for j := y; j < y+h; j++ {
		grid[j][x] = '│'
		grid[j][x+w-1] = '│'
	}
	grid[y][x], grid[y][x+w-1] = '┌', '┐'
	grid[y+h-1][x], grid[y+h-1][x+w-1] = '└', '┘'

	for i, c := range []rune(truncate(label, w-2)) {
		grid[y+1][x+1+i] = c
	}
}
