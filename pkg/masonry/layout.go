package masonry

// Block is a positioned item in a computed layout.
// Coordinates grow right and down from the container's top-left corner.
type Block struct {
	ID     string  `json:"id"`
	Column int     `json:"column"`
	Row    int     `json:"row"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the right edge of the block.
func (b Block) Right() float64 { return b.X + b.Width }

// Bottom returns the bottom edge of the block.
func (b Block) Bottom() float64 { return b.Y + b.Height }

// Layout is a fully positioned masonry: the column parameters, the column
// assignment and one block per item.
type Layout struct {
	ContainerWidth float64    `json:"container_width"`
	NumCols        int        `json:"num_cols"`
	ColWidth       float64    `json:"col_width"`
	Gap            float64    `json:"gap"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
	Columns        Assignment `json:"columns"`
	Blocks         []Block    `json:"blocks"`
}

// Compute resolves the column parameters for containerWidth and arranges items.
func Compute(c Constraints, containerWidth float64, items []Item) Layout {
	numCols, colWidth := Resolve(c, containerWidth)
	l := Arrange(items, numCols, colWidth, c.Gap)
	l.ContainerWidth = containerWidth
	return l
}

// Arrange distributes items and assigns coordinates. Blocks are returned in
// input order; Width and Height are the extents of the column grid, without
// a trailing gap below the last item of the tallest column.
func Arrange(items []Item, numCols int, colWidth, gap float64) Layout {
	numCols = max(numCols, 1)
	l := Layout{
		NumCols:  numCols,
		ColWidth: colWidth,
		Gap:      gap,
		Width:    float64(numCols)*colWidth + float64(numCols-1)*gap,
		Columns:  make(Assignment, numCols),
		Blocks:   make([]Block, 0, len(items)),
	}
	for i := range l.Columns {
		l.Columns[i] = []string{}
	}

	heights := make([]float64, numCols)
	for _, it := range items {
		col := shortestColumn(heights)
		h := it.ScaledHeight(colWidth)
		l.Blocks = append(l.Blocks, Block{
			ID:     it.ID,
			Column: col,
			Row:    len(l.Columns[col]),
			X:      float64(col) * (colWidth + gap),
			Y:      heights[col],
			Width:  colWidth,
			Height: h,
		})
		l.Columns[col] = append(l.Columns[col], it.ID)
		heights[col] += h + gap
	}

	for _, b := range l.Blocks {
		l.Height = max(l.Height, b.Bottom())
	}
	return l
}
