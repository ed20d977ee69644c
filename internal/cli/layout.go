package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/gallery"
)

// layoutCommand creates the layout command for computing column layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		lf     layoutFlags
		sf     sourceFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [items.json]",
		Short: "Compute a masonry layout",
		Long: `Compute a masonry layout for a list of items.

Items are read from a JSON file (an array of items, or an object with "items"
or "results"), from stdin with "-", or from the gallery API or MongoDB store
with --from. The column count is resolved from --width and the column
constraints; every item then goes to the currently shortest column.

The output is a layout.json document with the column assignment and the
position of every block. Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), cmd, args, &lf, &sf, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: <input>.layout.json)`)
	lf.register(cmd)
	sf.register(cmd)

	return cmd
}

// runLayout writes the layout of the selected items as JSON.
func (c *CLI) runLayout(ctx context.Context, cmd *cobra.Command, args []string, lf *layoutFlags, sf *sourceFlags, output string) error {
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

	spinner := newSpinnerWithContext(ctx, "Fetching items...")
	spinner.Start()

	items, err := runner.Fetch(ctx, opts)
	if err != nil {
		spinner.StopWithError("Fetching items failed")
		return fmt.Errorf("fetch items: %w", err)
	}
	spinner.SetMessage(fmt.Sprintf("Computing layout for %s...", pluralize(len(items), "item")))
	layout, cacheHit, err := runner.ComputeLayoutWithCacheInfo(ctx, items, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(args, "gallery") + ".layout.json"
	}
	if err := writeJSON(cmd.OutOrStdout(), outputPath, layout); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}
	if outputPath == "-" {
		return nil
	}

	c.ui().success("Layout complete")
	c.ui().file(outputPath)
	c.ui().stats(len(items), layout.NumCols, cacheHit)
	c.ui().newline()
	if len(args) > 0 {
		c.ui().nextStep("Render", appName+" render "+args[0])
	} else {
		c.ui().nextStep("Preview", appName+" preview")
	}
	return nil
}

// countMedia reports how many items are images and videos.
func countMedia(items []gallery.MediaItem) (images, videos int) {
	for _, it := range items {
		switch it.FileType {
		case gallery.FileTypeImage:
			images++
		case gallery.FileTypeVideo:
			videos++
		}
	}
	return images, videos
}
