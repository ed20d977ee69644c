package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// fetchCommand creates the fetch command for downloading gallery items.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		output string
		sf     sourceFlags
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download gallery items to a JSON file",
		Long: `Download gallery items from the API or the MongoDB store.

Pages are followed until the source is exhausted or --limit items were read.
Only images and videos are kept and duplicates are dropped. The result can be
passed to 'layout', 'render' or 'import'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd.Context(), cmd.OutOrStdout(), &sf, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "items.json", `output file, "-" for stdout`)
	sf.register(cmd)

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, stdout io.Writer, sf *sourceFlags, output string) error {
	ch, err := c.newCache(ctx, sf.noCache)
	if err != nil {
		return err
	}
	defer ch.Close()

	src, closeSrc, err := c.openSource(ctx, sf.from, ch)
	defer closeSrc()
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	items, err := pipeline.FetchItems(ctx, pipeline.Options{
		Source: src,
		Search: sf.search,
		Limit:  sf.limit,
		Logger: c.Logger,
	})
	if err != nil {
		return fmt.Errorf("fetch items: %w", err)
	}
	prog.done(fmt.Sprintf("Fetched %d items", len(items)))

	if err := writeJSON(stdout, output, items); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}
	if output == "-" {
		return nil
	}

	images, videos := countMedia(items)
	c.ui().success("Fetched %d items", len(items))
	c.ui().file(output)
	c.ui().detail("%d images · %d videos", images, videos)
	c.ui().newline()
	c.ui().nextStep("Lay out", appName+" layout "+output)
	return nil
}

// importCommand creates the import command for loading items into MongoDB.
func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <items.json>",
		Short: "Insert items into the MongoDB store",
		Long: `Insert items from a JSON file into the MongoDB store configured under
[mongo]. Indexes are created on first use. Items whose file_id already exists
are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			items, err := readItems(args[0])
			if err != nil {
				return err
			}
			if c.cfg.Mongo.URI == "" {
				return fmt.Errorf("mongo.uri is not configured")
			}
			store, err := gallery.NewMongoStore(ctx, c.cfg.Mongo.URI, c.cfg.Mongo.Database, c.cfg.API.PageSize)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			if err := store.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("create indexes: %w", err)
			}
			if err := store.Insert(ctx, items...); err != nil {
				return fmt.Errorf("insert items: %w", err)
			}
			c.ui().success("Imported %d items", len(items))
			c.ui().detail("Database: %s", c.cfg.Mongo.Database)
			return nil
		},
	}
}
