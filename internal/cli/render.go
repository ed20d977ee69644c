package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/render"
)

// renderOpts holds the render-specific flags.
type renderOpts struct {
	output    string  // output base path, or "-" for stdout (single format)
	formats   string  // comma-separated output formats
	textWidth int     // character width of txt output
	padding   float64 // svg margin
}

// renderCommand creates the render command for producing SVG, JSON and text.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		ro renderOpts
		lf layoutFlags
		sf sourceFlags
	)

	cmd := &cobra.Command{
		Use:   "render [items.json]",
		Short: "Render a gallery layout to SVG, JSON or text",
		Long: `Render a gallery as a masonry layout.

Items are loaded like in 'layout'. Each requested format is written to
<output>.<format>; with a single format, -o - writes to stdout.

Formats:
  svg   one rectangle per item with its title, videos marked with a play glyph
  json  the layout with per-item titles and sources
  txt   a box drawing of the columns sized for the terminal`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), cmd, args, &lf, &sf, ro)
		},
	}

	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output base path (default: <input> or gallery)")
	cmd.Flags().StringVarP(&ro.formats, "format", "f", render.FormatSVG, "output formats, comma-separated: svg, json, txt")
	cmd.Flags().IntVar(&ro.textWidth, "text-width", 0, "character width of txt output (default 80)")
	cmd.Flags().Float64Var(&ro.padding, "padding", 0, "svg margin around the grid (default 16)")
	lf.register(cmd)
	sf.register(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, cmd *cobra.Command, args []string, lf *layoutFlags, sf *sourceFlags, ro renderOpts) error {
	formats := parseFormats(ro.formats)
	if err := render.ValidateFormats(formats); err != nil {
		return err
	}
	if ro.output == "-" && len(formats) != 1 {
		return fmt.Errorf("writing to stdout needs exactly one format, got %d", len(formats))
	}

	runner, err := c.newRunner(ctx, sf.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts, closeSrc, err := c.pipelineOptions(ctx, cmd, args, lf, sf, runner.Cache)
	defer closeSrc()
	if err != nil {
		return err
	}
	opts.Formats = formats
	opts.TextWidth = ro.textWidth
	opts.Padding = ro.padding

	spinner := newSpinnerWithContext(ctx, "Rendering gallery...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ro.output == "-" {
		_, err := cmd.OutOrStdout().Write(result.Artifacts[formats[0]])
		return err
	}

	base := ro.output
	if base == "" {
		base = outputBase(args, "gallery")
	}
	c.ui().success("Rendered %d items in %d columns", result.Stats.ItemCount, result.Stats.NumCols)
	for _, f := range slices.Sorted(maps.Keys(result.Artifacts)) {
		path := base + "." + f
		if err := os.WriteFile(path, result.Artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		c.ui().file(path)
	}
	c.ui().stats(result.Stats.ItemCount, result.Stats.NumCols, result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	return nil
}
