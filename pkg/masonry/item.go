package masonry

// Item is a single layout element with intrinsic dimensions.
// ID must be unique within one distribution pass and stable across passes.
type Item struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AspectRatio returns Height/Width. Missing, non-positive or non-finite
// dimensions yield 1 so a malformed item is laid out as a square.
func (it Item) AspectRatio() float64 {
	if !finite(it.Width) || !finite(it.Height) || it.Width <= 0 || it.Height <= 0 {
		return 1
	}
	return it.Height / it.Width
}

// ScaledHeight returns the item's height once scaled to colWidth.
func (it Item) ScaledHeight(colWidth float64) float64 {
	return colWidth * it.AspectRatio()
}

// Dedupe returns the items of incoming whose IDs appear neither in existing
// nor earlier in incoming. Arrival order is preserved and the first
// occurrence of each ID wins.
func Dedupe(existing, incoming []Item) []Item {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, it := range existing {
		seen[it.ID] = struct{}{}
	}
	fresh := make([]Item, 0, len(incoming))
	for _, it := range incoming {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		fresh = append(fresh, it)
	}
	return fresh
}
