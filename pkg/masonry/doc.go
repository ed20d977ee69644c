// Package masonry computes responsive masonry layouts for media galleries.
//
// A masonry layout packs items of varying height into a fixed number of
// equal-width columns. The package has three parts:
//
//   - Resolver: [ResolveColumns] and [ResolveColumnWidth] turn a container
//     width and a set of [Constraints] into a column count and column width.
//   - Distributor: [Distribute] assigns an ordered item sequence to columns,
//     always placing the next item into the currently shortest column.
//   - Controller: [Controller] owns the current [State] and recomputes it on
//     container resize, constraint change and item-list mutation.
//
// # Usage
//
//	c := masonry.DefaultConstraints()
//	cols := masonry.ResolveColumns(c, 620)              // 2
//	width := masonry.ResolveColumnWidth(c, 620, cols)   // 300
//	assignment := masonry.Distribute(items, width, cols, c.Gap)
//
// Long-lived views use a controller instead:
//
//	ctrl, err := masonry.NewController(c)
//	if err != nil {
//	    return err
//	}
//	unsubscribe := ctrl.Subscribe(func(s masonry.State) { render(s) })
//	defer unsubscribe()
//	ctrl.Replace(items)
//	ctrl.Resize(1280)
//
// # Degenerate input
//
// Items with zero, negative or non-finite dimensions are laid out as squares.
// Non-positive container widths leave the controller in its previous state.
// None of these conditions produce errors.
package masonry
