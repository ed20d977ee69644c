package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/masonry/internal/server"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/observability"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/session"
)

const (
	fromNone = "none"

	sessionCleanupInterval = time.Hour
)

// serveCommand creates the HTTP server command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		from  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts over HTTP",
		Long: `Start the layout HTTP server.

POST /v1/layout lays out items sent in the request body. With --from api or
--from mongo the gallery routes serve the configured item source, laid out
and rendered. Layouts and renders share the configured cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, from, limit)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&from, "from", fromNone, "gallery source: api, mongo, or none")
	cmd.Flags().IntVar(&limit, "limit", pipeline.DefaultLimit, "maximum items per gallery request")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, from string, limit int) error {
	ch, err := c.newCache(ctx, false)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(ch, nil, c.Logger)
	defer runner.Close()

	var src gallery.Source
	if from != fromNone {
		s, closeSrc, err := c.openSource(ctx, from, ch)
		defer closeSrc()
		if err != nil {
			return err
		}
		src = s
	}

	sessions, err := c.serverSessions(ctx)
	if err != nil {
		return err
	}
	defer sessions.Close()

	stats := observability.NewCounters()
	observability.Install(stats)
	defer observability.Reset()

	srv := server.New(server.Options{
		Addr:        addr,
		Runner:      runner,
		Source:      src,
		Sessions:    sessions,
		Constraints: c.cfg.Layout,
		Limit:       limit,
		Stats:       stats,
		Logger:      c.Logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(c.cfg.Server.ShutdownSeconds) * time.Second
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		c.Logger.Info("shutting down", "timeout", timeout)
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := sessions.Cleanup(gctx); err != nil {
					c.Logger.Warn("session cleanup failed", "err", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	c.Logger.Info("server stopped")
	return nil
}

// closableStore is a session store that owns a connection.
type closableStore interface {
	session.Store
	Close() error
}

// serverSessions opens the session store used to authorize deletes. Redis
// is used when enabled and the cache backend is Redis; otherwise the CLI's
// session directory, so a `masonry login` session ID is accepted.
func (c *CLI) serverSessions(ctx context.Context) (closableStore, error) {
	if c.cfg.Server.RedisSessions {
		if c.cfg.Cache.Backend != config.BackendRedis {
			return nil, fmt.Errorf("server.redis_sessions requires cache.backend = %q", config.BackendRedis)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     c.cfg.Cache.RedisAddr,
			Password: c.cfg.Cache.RedisPassword,
			DB:       c.cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", c.cfg.Cache.RedisAddr, err)
		}
		return redisSessions{session.NewRedisStore(client, c.cfg.Cache.Prefix+"session:"), client}, nil
	}

	return session.NewFileStore(sessionDir())
}

// redisSessions closes the client with the store.
type redisSessions struct {
	*session.RedisStore
	client *redis.Client
}

func (r redisSessions) Close() error { return r.client.Close() }
