package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
)

// defaultCellWidth approximates the pixel width of one terminal cell.
const defaultCellWidth = 10

// previewCommand creates the interactive gallery preview.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		lf       layoutFlags
		sf       sourceFlags
		cellPx   float64
		coalesce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "preview [items.json]",
		Short: "Browse a gallery in the terminal with live reflow",
		Long: `Browse a gallery in the terminal.

The terminal width, times --cell-width pixels, is the container width: resize
the terminal and the columns reflow. --coalesce merges bursts of resizes into
one reflow. Scrolling to the bottom loads the next
page, which is appended without moving items already placed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(cmd.Context(), cmd, args, &lf, &sf, cellPx, coalesce)
		},
	}

	lf.register(cmd)
	sf.register(cmd)
	cmd.Flags().Float64Var(&cellPx, "cell-width", defaultCellWidth, "pixels per terminal column")
	cmd.Flags().DurationVar(&coalesce, "coalesce", 0, "merge terminal resizes closer together than this (e.g. 50ms)")

	return cmd
}

func (c *CLI) runPreview(ctx context.Context, cmd *cobra.Command, args []string, lf *layoutFlags, sf *sourceFlags, cellPx float64, coalesce time.Duration) error {
	if cellPx <= 0 {
		return fmt.Errorf("--cell-width must be positive")
	}
	ch, err := c.newCache(ctx, sf.noCache)
	if err != nil {
		return err
	}
	defer ch.Close()

	var (
		src      gallery.Source
		closeSrc = func() {}
	)
	if len(args) > 0 {
		items, err := readItems(args[0])
		if err != nil {
			return err
		}
		src = gallery.NewMemorySource(items, c.cfg.API.PageSize)
	} else if src, closeSrc, err = c.openSource(ctx, sf.from, ch); err != nil {
		closeSrc()
		return err
	}
	defer closeSrc()

	ctrlOpts := []masonry.Option{masonry.WithLogger(c.Logger)}
	if coalesce > 0 {
		ctrlOpts = append(ctrlOpts, masonry.WithCoalesce(coalesce))
	}
	ctrl, err := masonry.NewController(lf.constraints(cmd, c.cfg.Layout), ctrlOpts...)
	if err != nil {
		return err
	}

	feed := gallery.NewFeed(src, ctrl, gallery.WithFeedLogger(c.Logger))
	if err := feed.SetSearchTerm(sf.search); err != nil {
		return err
	}

	// Logs would tear the alternate screen; keep only the log file.
	if c.logSink != nil {
		c.Logger.SetOutput(c.logSink)
	} else {
		c.Logger.SetOutput(io.Discard)
	}
	defer c.Logger.SetOutput(c.logWriter())

	model := NewPreviewModel(ctx, feed, ctrl, cellPx)
	defer model.Close()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
