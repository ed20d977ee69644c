package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// layoutFlags are the column constraint and width flags. Constraint flags
// override the config file only when given.
type layoutFlags struct {
	width float64
	c     masonry.Constraints
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	d := masonry.DefaultConstraints()
	fl := cmd.Flags()
	fl.Float64VarP(&f.width, "width", "w", pipeline.DefaultWidth, "container width in pixels")
	fl.IntVar(&f.c.MinCols, "min-cols", d.MinCols, "minimum number of columns")
	fl.IntVar(&f.c.MaxCols, "max-cols", d.MaxCols, "maximum number of columns")
	fl.Float64Var(&f.c.MinColWidth, "min-col-width", d.MinColWidth, "minimum column width")
	fl.Float64Var(&f.c.MaxColWidth, "max-col-width", d.MaxColWidth, "maximum column width")
	fl.Float64Var(&f.c.Gap, "gap", d.Gap, "gap between columns and items")
}

// constraints returns base with every explicitly set flag applied.
func (f *layoutFlags) constraints(cmd *cobra.Command, base masonry.Constraints) masonry.Constraints {
	fl := cmd.Flags()
	if fl.Changed("min-cols") {
		base.MinCols = f.c.MinCols
	}
	if fl.Changed("max-cols") {
		base.MaxCols = f.c.MaxCols
	}
	if fl.Changed("min-col-width") {
		base.MinColWidth = f.c.MinColWidth
	}
	if fl.Changed("max-col-width") {
		base.MaxColWidth = f.c.MaxColWidth
	}
	if fl.Changed("gap") {
		base.Gap = f.c.Gap
	}
	return base
}

// sourceFlags select where items come from.
type sourceFlags struct {
	from    string
	search  string
	limit   int
	noCache bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.from, "from", fromAPI, "item source when no file is given: api, mongo")
	fl.StringVarP(&f.search, "search", "s", "", "only include items matching this term")
	fl.IntVar(&f.limit, "limit", pipeline.DefaultLimit, "maximum number of items")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable caching")
}

// pipelineOptions builds pipeline options from the flags. Items are read from
// args[0] when given, otherwise from the selected source. The returned close
// function is never nil.
func (c *CLI) pipelineOptions(ctx context.Context, cmd *cobra.Command, args []string, lf *layoutFlags, sf *sourceFlags, ch cache.Cache) (pipeline.Options, func(), error) {
	opts := pipeline.Options{
		Constraints: lf.constraints(cmd, c.cfg.Layout),
		Width:       lf.width,
		Search:      sf.search,
		Limit:       sf.limit,
		Refresh:     sf.noCache,
		Logger:      loggerFromContext(ctx),
	}
	if len(args) > 0 {
		items, err := readItems(args[0])
		if err != nil {
			return opts, func() {}, err
		}
		opts.Items = items
		return opts, func() {}, nil
	}
	src, closeSrc, err := c.openSource(ctx, sf.from, ch)
	if err != nil {
		return opts, closeSrc, err
	}
	opts.Source = src
	return opts, closeSrc, nil
}

// outputBase derives an output path prefix from the input file name.
func outputBase(args []string, fallback string) string {
	if len(args) == 0 || args[0] == "-" {
		return fallback
	}
	return strings.TrimSuffix(args[0], filepath.Ext(args[0]))
}
