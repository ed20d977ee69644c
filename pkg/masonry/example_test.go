package masonry_test

import (
	"fmt"

	"github.com/matzehuels/masonry/pkg/masonry"
)

func ExampleResolve() {
	c := masonry.Constraints{MinCols: 1, MaxCols: 3, MinColWidth: 200, MaxColWidth: 300, Gap: 16}
	cols, width := masonry.Resolve(c, 620)
	fmt.Println(cols, width)
	// Output: 2 300
}

func ExampleDistribute() {
	items := []masonry.Item{
		{ID: "portrait", Width: 600, Height: 900},
		{ID: "square", Width: 500, Height: 500},
		{ID: "landscape", Width: 800, Height: 400},
	}
	for i, col := range masonry.Distribute(items, 300, 2, 16) {
		fmt.Println(i, col)
	}
	// Output:
	// 0 [portrait]
	// 1 [square landscape]
}

func ExampleController() {
	ctrl, err := masonry.NewController(masonry.DefaultConstraints())
	if err != nil {
		panic(err)
	}
	ctrl.Replace([]masonry.Item{{ID: "a", Width: 1, Height: 1}, {ID: "b", Width: 1, Height: 1}})
	fmt.Println(ctrl.State().Phase, ctrl.State().NumCols)

	ctrl.Resize(1280)
	s := ctrl.State()
	fmt.Println(s.Phase, s.NumCols, s.ColWidth)
	// Output:
	// unmeasured 1
	// measured 3 300
}
