package masonry

import (
	"fmt"
	"math"
	"testing"
)

func squares(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("item-%d", i), Width: 100, Height: 100}
	}
	return items
}

func TestDistributeAlternatesEqualItems(t *testing.T) {
	cols := Distribute(squares(10), 100, 2, 0)

	if len(cols) != 2 {
		t.Fatalf("got %d columns, want 2", len(cols))
	}
	for c, col := range cols {
		if len(col) != 5 {
			t.Errorf("column %d has %d items, want 5", c, len(col))
		}
		for row, id := range col {
			want := fmt.Sprintf("item-%d", row*2+c)
			if id != want {
				t.Errorf("column %d row %d = %s, want %s", c, row, id, want)
			}
		}
	}
}

func TestDistributeShortestColumnFirst(t *testing.T) {
	items := []Item{
		{ID: "tall", Width: 100, Height: 300},
		{ID: "a", Width: 100, Height: 100},
		{ID: "b", Width: 100, Height: 100},
		{ID: "c", Width: 100, Height: 100},
	}
	got := Distribute(items, 100, 2, 0)
	want := Assignment{{"tall"}, {"a", "b", "c"}}
	if !got.Equal(want) {
		t.Errorf("Distribute() = %v, want %v", got, want)
	}
}

func TestDistributeGapCountsTowardHeight(t *testing.T) {
	items := []Item{
		{ID: "a", Width: 100, Height: 100},
		{ID: "b", Width: 100, Height: 95},
		{ID: "c", Width: 100, Height: 10},
	}
	heights := ColumnHeights(items, 100, 2, 10)
	if heights[0] != 110 || heights[1] != 115 {
		t.Errorf("ColumnHeights() = %v, want [110 115]", heights)
	}
	cols := Distribute(items, 100, 2, 10)
	if !cols.Equal(Assignment{{"a"}, {"b", "c"}}) {
		t.Errorf("Distribute() = %v", cols)
	}
}

func TestDistributeCoverage(t *testing.T) {
	items := make([]Item, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, Item{ID: fmt.Sprintf("m%d", i), Width: float64(50 + i*7%90), Height: float64(40 + i*13%200)})
	}
	for numCols := 1; numCols <= 6; numCols++ {
		cols := Distribute(items, 240, numCols, 12)
		seen := make(map[string]int)
		for _, col := range cols {
			for _, id := range col {
				seen[id]++
			}
		}
		if len(seen) != len(items) {
			t.Fatalf("numCols=%d: %d distinct ids placed, want %d", numCols, len(seen), len(items))
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("numCols=%d: %s placed %d times", numCols, id, n)
			}
		}
	}
}

func TestDistributePreservesRelativeOrder(t *testing.T) {
	items := squares(12)
	order := make(map[string]int, len(items))
	for i, it := range items {
		order[it.ID] = i
	}
	for _, col := range Distribute(items, 100, 3, 4) {
		for i := 1; i < len(col); i++ {
			if order[col[i-1]] > order[col[i]] {
				t.Errorf("column order %v not increasing", col)
			}
		}
	}
}

func TestDistributeDeterministic(t *testing.T) {
	items := []Item{
		{ID: "a", Width: 640, Height: 480},
		{ID: "b", Width: 1080, Height: 1920},
		{ID: "c", Width: 300, Height: 300},
		{ID: "d", Width: 1920, Height: 1080},
		{ID: "e", Width: 500, Height: 800},
	}
	first := Distribute(items, 300, 3, 16)
	for i := 0; i < 5; i++ {
		if again := Distribute(items, 300, 3, 16); !again.Equal(first) {
			t.Fatalf("run %d: %v != %v", i, again, first)
		}
	}
}

func TestDistributeBalance(t *testing.T) {
	items := []Item{
		{ID: "a", Width: 100, Height: 250},
		{ID: "b", Width: 100, Height: 40},
		{ID: "c", Width: 100, Height: 120},
		{ID: "d", Width: 100, Height: 90},
		{ID: "e", Width: 100, Height: 300},
		{ID: "f", Width: 100, Height: 60},
		{ID: "g", Width: 100, Height: 180},
		{ID: "h", Width: 100, Height: 75},
	}
	const gap = 8
	var tallest float64
	for _, it := range items {
		tallest = math.Max(tallest, it.ScaledHeight(100)+gap)
	}
	for numCols := 2; numCols <= 4; numCols++ {
		heights := ColumnHeights(items, 100, numCols, gap)
		lo, hi := heights[0], heights[0]
		for _, h := range heights {
			lo, hi = math.Min(lo, h), math.Max(hi, h)
		}
		if hi-lo > tallest {
			t.Errorf("numCols=%d: spread %v exceeds tallest item %v", numCols, hi-lo, tallest)
		}
	}
}

func TestDistributeDegenerateGeometry(t *testing.T) {
	items := []Item{
		{ID: "zero-width", Width: 0, Height: 100},
		{ID: "negative", Width: -5, Height: -5},
		{ID: "nan", Width: math.NaN(), Height: 10},
		{ID: "inf", Width: 10, Height: math.Inf(1)},
	}
	for _, h := range ColumnHeights(items, 150, 2, 0) {
		if math.IsNaN(h) || math.IsInf(h, 0) {
			t.Fatalf("non-finite column height %v", h)
		}
	}
	if got := items[0].ScaledHeight(150); got != 150 {
		t.Errorf("zero-width item scaled height = %v, want 150 (square)", got)
	}
}

func TestDistributeEmpty(t *testing.T) {
	cols := Distribute(nil, 200, 3, 16)
	if len(cols) != 3 || cols.Len() != 0 {
		t.Errorf("Distribute(nil) = %v, want 3 empty columns", cols)
	}
}

func TestDedupe(t *testing.T) {
	existing := []Item{{ID: "a"}, {ID: "b"}}
	incoming := []Item{{ID: "c"}, {ID: "a"}, {ID: "d"}, {ID: "c", Width: 9}}

	got := Dedupe(existing, incoming)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "d" {
		t.Fatalf("Dedupe() = %v, want [c d]", got)
	}
	if got[0].Width != 0 {
		t.Error("Dedupe() should keep the first occurrence")
	}
}
