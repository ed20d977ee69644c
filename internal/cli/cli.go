package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/buildinfo"
	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "masonry"

	// Item origins accepted by --from.
	fromFile  = "file"
	fromAPI   = "api"
	fromMongo = "mongo"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out        io.Writer
	configPath string
	logFile    string
	cfg        config.Config
	logSink    io.WriteCloser
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:     newLogger(w, level),
		out:        w,
		configPath: config.DefaultPath,
		cfg:        config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the loaded configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Masonry packs media galleries into balanced columns",
		Long: `Masonry lays out images and videos of varying aspect ratios in a responsive
column grid. Each item goes to the currently shortest column, and the column
count follows the available width.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.Close()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", c.configPath, "config file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&c.logFile, "log-file", "", "also write logs to this file (rotated)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.fileCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	for _, cmd := range root.Commands() {
		registerFlagCompletions(cmd)
	}
	return root
}

// loadConfig reads the config file and attaches the log file, if any.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if cfg.Cache.Backend == config.BackendFile && cfg.Cache.Dir == "" {
		if dir, err := cacheDir(); err == nil {
			cfg.Cache.Dir = dir
		}
	}
	if c.logFile != "" {
		cfg.Log.File = config.ExpandPath(c.logFile)
	}
	c.cfg = cfg

	c.Logger.SetFormatter(logFormatter(cfg.Log.Format))
	if cfg.Log.File != "" && c.logSink == nil {
		c.logSink = newRotatingFile(cfg.Log)
		c.Logger.SetOutput(c.logWriter())
		c.Logger.Debug("logging to file", "path", cfg.Log.File)
	}
	return nil
}

// Close releases resources held by the CLI.
func (c *CLI) Close() error {
	if c.logSink == nil {
		return nil
	}
	err := c.logSink.Close()
	c.logSink = nil
	c.Logger.SetOutput(c.out)
	return err
}

// logWriter returns the writer the logger normally writes to.
func (c *CLI) logWriter() io.Writer {
	if c.logSink == nil {
		return c.out
	}
	return io.MultiWriter(c.out, c.logSink)
}

// =============================================================================
// Factories
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	ch, err := c.cfg.Cache.Open(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", c.cfg.Cache.Backend, "err", err)
		return cache.NewNullCache(), nil
	}
	return ch, nil
}

// newClient creates an API client authenticated with the stored session.
func (c *CLI) newClient(ctx context.Context, ch cache.Cache) (*gallery.Client, error) {
	opts := []gallery.ClientOption{gallery.WithClientLogger(c.Logger)}
	if sess, err := loadSession(ctx); err == nil && sess != nil {
		opts = append(opts, gallery.WithCredentials(sess))
	}
	if ch != nil {
		opts = append(opts, gallery.WithCache(ch, cache.Scoped(nil, "api", apiHost(c.cfg.API.BaseURL))))
	}
	return gallery.NewClient(c.cfg.API.BaseURL, opts...)
}

// openSource opens the item source named by from. The returned close
// function is never nil.
func (c *CLI) openSource(ctx context.Context, from string, ch cache.Cache) (gallery.Source, func(), error) {
	noop := func() {}
	switch from {
	case fromAPI:
		client, err := c.newClient(ctx, ch)
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	case fromMongo:
		if c.cfg.Mongo.URI == "" {
			return nil, noop, fmt.Errorf("mongo.uri is not configured")
		}
		store, err := gallery.NewMongoStore(ctx, c.cfg.Mongo.URI, c.cfg.Mongo.Database, c.cfg.API.PageSize)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close(context.Background()) }, nil
	default:
		return nil, noop, fmt.Errorf("unknown source %q (must be %s or %s)", from, fromAPI, fromMongo)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/masonry/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// sessionDir returns the directory holding CLI sessions; empty selects
// session.DefaultDir.
func sessionDir() string {
	return os.Getenv("MASONRY_SESSION_DIR")
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{render.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// apiHost returns the host of the configured API, used to scope cached
// pages. An unparsable URL yields "" and fails later in gallery.NewClient.
func apiHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
