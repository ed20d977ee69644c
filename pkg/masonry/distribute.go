package masonry

// Assignment maps column index to the ordered IDs placed in that column.
type Assignment [][]string

// Len returns the total number of assigned items.
func (a Assignment) Len() int {
	n := 0
	for _, col := range a {
		n += len(col)
	}
	return n
}

// Clone returns a deep copy of the assignment.
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	out := make(Assignment, len(a))
	for i, col := range a {
		out[i] = append([]string(nil), col...)
	}
	return out
}

// Equal reports whether two assignments place the same IDs in the same
// columns in the same order.
func (a Assignment) Equal(b Assignment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// Distribute assigns items to numCols columns of width colWidth.
//
// Items are visited once, in input order. Each goes into the column with the
// smallest accumulated height (lowest index on ties), and that column grows by
// the item's scaled height plus gap. Input order is not re-sorted by size, so
// recency or ranking from the item source is preserved as far as possible.
func Distribute(items []Item, colWidth float64, numCols int, gap float64) Assignment {
	cols, _ := distribute(items, colWidth, numCols, gap)
	return cols
}

// ColumnHeights returns the accumulated height of each column after
// distributing items, including the trailing gap of every item.
func ColumnHeights(items []Item, colWidth float64, numCols int, gap float64) []float64 {
	_, heights := distribute(items, colWidth, numCols, gap)
	return heights
}

func distribute(items []Item, colWidth float64, numCols int, gap float64) (Assignment, []float64) {
	numCols = max(numCols, 1)
	heights := make([]float64, numCols)
	cols := make(Assignment, numCols)
	for i := range cols {
		cols[i] = []string{}
	}

	for _, it := range items {
		shortest := shortestColumn(heights)
		heights[shortest] += it.ScaledHeight(colWidth) + gap
		cols[shortest] = append(cols[shortest], it.ID)
	}
	return cols, heights
}

// shortestColumn returns the index of the first column with minimal height.
func shortestColumn(heights []float64) int {
	shortest := 0
	for c := 1; c < len(heights); c++ {
		if heights[c] < heights[shortest] {
			shortest = c
		}
	}
	return shortest
}
