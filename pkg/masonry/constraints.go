package masonry

import (
	"math"

	"github.com/matzehuels/masonry/pkg/errors"
)

// Default constraints used by the gallery view.
const (
	DefaultMinCols     = 1
	DefaultMaxCols     = 3
	DefaultMinColWidth = 200.0
	DefaultMaxColWidth = 300.0
	DefaultGap         = 16.0
)

// Constraints bound the column count and column width of a layout.
type Constraints struct {
	MinCols     int     `json:"min_cols" toml:"min_cols" yaml:"min_cols"`
	MaxCols     int     `json:"max_cols" toml:"max_cols" yaml:"max_cols"`
	MinColWidth float64 `json:"min_col_width" toml:"min_col_width" yaml:"min_col_width"`
	MaxColWidth float64 `json:"max_col_width" toml:"max_col_width" yaml:"max_col_width"`
	Gap         float64 `json:"gap" toml:"gap" yaml:"gap"`
}

// DefaultConstraints returns the gallery defaults: 1–3 columns, 200–300 units
// wide, 16 units apart.
func DefaultConstraints() Constraints {
	return Constraints{
		MinCols:     DefaultMinCols,
		MaxCols:     DefaultMaxCols,
		MinColWidth: DefaultMinColWidth,
		MaxColWidth: DefaultMaxColWidth,
		Gap:         DefaultGap,
	}
}

// IsZero reports whether no field has been set.
func (c Constraints) IsZero() bool { return c == Constraints{} }

// Validate checks the constraint invariants. Constraints are a caller
// contract, so every violation is reported as ErrCodeInvalidConstraints.
func (c Constraints) Validate() error {
	switch {
	case c.MinCols < 1:
		return errors.New(errors.ErrCodeInvalidConstraints, "min_cols must be at least 1, got %d", c.MinCols)
	case c.MaxCols < c.MinCols:
		return errors.New(errors.ErrCodeInvalidConstraints, "max_cols (%d) must not be less than min_cols (%d)", c.MaxCols, c.MinCols)
	case !finite(c.MinColWidth) || c.MinColWidth <= 0:
		return errors.New(errors.ErrCodeInvalidConstraints, "min_col_width must be positive, got %v", c.MinColWidth)
	case !finite(c.MaxColWidth) || c.MaxColWidth < c.MinColWidth:
		return errors.New(errors.ErrCodeInvalidConstraints, "max_col_width (%v) must not be less than min_col_width (%v)", c.MaxColWidth, c.MinColWidth)
	case !finite(c.Gap) || c.Gap < 0:
		return errors.New(errors.ErrCodeInvalidConstraints, "gap must be non-negative, got %v", c.Gap)
	}
	return nil
}

// ResolveColumns returns the number of columns for a container of the given
// width: as many columns as fit at the widest allowed column size, clamped to
// [MinCols, MaxCols].
//
// The clamp can force a column count whose natural width falls outside
// [MinColWidth, MaxColWidth]; [ResolveColumnWidth] absorbs that.
func ResolveColumns(c Constraints, containerWidth float64) int {
	raw := math.Floor((containerWidth + c.Gap) / (c.MaxColWidth + c.Gap))
	if math.IsNaN(raw) {
		return c.MinCols
	}
	if raw > float64(c.MaxCols) {
		return c.MaxCols
	}
	if raw < float64(c.MinCols) {
		return c.MinCols
	}
	return int(raw)
}

// ResolveColumnWidth returns the width of each of numCols columns sharing
// containerWidth with (numCols-1) gaps, clamped to [MinColWidth, MaxColWidth].
//
// At extreme container widths the clamped columns no longer fill the
// container exactly; they may underfill it or overflow it.
func ResolveColumnWidth(c Constraints, containerWidth float64, numCols int) float64 {
	numCols = max(numCols, 1)
	w := (containerWidth - float64(numCols-1)*c.Gap) / float64(numCols)
	switch {
	case math.IsNaN(w):
		return c.MinColWidth
	case w > c.MaxColWidth:
		return c.MaxColWidth
	case w < c.MinColWidth:
		return c.MinColWidth
	}
	return w
}

// Resolve is shorthand for ResolveColumns followed by ResolveColumnWidth.
func Resolve(c Constraints, containerWidth float64) (numCols int, colWidth float64) {
	numCols = ResolveColumns(c, containerWidth)
	return numCols, ResolveColumnWidth(c, containerWidth, numCols)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
