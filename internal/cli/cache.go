package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/config"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local layout and page cache",
		Long: `Manage the file cache that holds computed layouts, rendered artifacts and
fetched API pages. Only the file backend is managed here; a Redis cache is
shared with servers and expires on its own.`,
	}
	cmd.AddCommand(c.cacheClearCommand(), c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	var expired bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached layouts, renders and API pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}

			clear, what := fc.Clear, "cached"
			if expired {
				clear, what = fc.Prune, "expired"
			}
			n, err := clear()
			if err != nil {
				return fmt.Errorf("clearing %s: %w", fc.Dir(), err)
			}
			if n == 0 {
				c.ui().info("Nothing to remove")
				return nil
			}
			noun := "entries"
			if n == 1 {
				noun = "entry"
			}
			c.ui().success("Removed %d %s %s", n, what, noun)
			c.ui().detail("Directory: %s", fc.Dir())
			return nil
		},
	}
	cmd.Flags().BoolVar(&expired, "expired", false, "only remove expired and unreadable entries")
	return cmd
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Cache.Backend != config.BackendFile {
				return fmt.Errorf("cache backend %q has no directory", c.cfg.Cache.Backend)
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.ExpandPath(c.cfg.Cache.Dir))
			return nil
		},
	}
}

// fileCache opens the configured file cache for maintenance.
func (c *CLI) fileCache() (*cache.FileCache, error) {
	if c.cfg.Cache.Backend != config.BackendFile {
		return nil, fmt.Errorf("cache backend %q is not managed from the CLI", c.cfg.Cache.Backend)
	}
	return cache.NewFileCache(config.ExpandPath(c.cfg.Cache.Dir))
}
