package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/internal/server"
	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// serveFlags holds the serve command's flags.
type serveFlags struct {
	addr          string
	redisAddr     string
	redisPassword string
	redisDB       int
	keyPrefix     string
	noCache       bool
	maxNodes      int
	maxSteps      int
	maxConcurrent int
}

// serveCommand creates the serve command, which runs the HTTP layout service.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP layout service",
		Long: `Run the HTTP layout service.

POST a JSON body {"graph": {...}, "options": {...}} to /v1/layouts to get a
layout back. Metrics are served on /metrics.

Without --redis, layouts are cached in the local cache directory. With
--redis, every instance pointed at the same Redis shares one cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			lc, err := c.serveCache(cmd, flags)
			if err != nil {
				return err
			}
			keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), flags.keyPrefix)
			runner := pipeline.NewRunner(lc, keyer, logger)
			defer runner.Close()

			srv := server.New(server.Config{
				Addr:          flags.addr,
				Runner:        runner,
				Logger:        logger,
				MaxNodes:      flags.maxNodes,
				MaxSteps:      flags.maxSteps,
				MaxConcurrent: flags.maxConcurrent,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&flags.redisAddr, "redis", "", "Redis address (host:port) for a shared layout cache")
	cmd.Flags().StringVar(&flags.redisPassword, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&flags.redisDB, "redis-db", 0, "Redis database number")
	cmd.Flags().StringVar(&flags.keyPrefix, "key-prefix", appName+":", "prefix for cache keys")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVar(&flags.maxNodes, "max-nodes", server.DefaultMaxNodes, "largest graph accepted")
	cmd.Flags().IntVar(&flags.maxSteps, "max-steps", server.DefaultMaxSteps, "largest step cap a request may set")
	cmd.Flags().IntVar(&flags.maxConcurrent, "max-concurrent", 0, "simultaneous layout runs (default: GOMAXPROCS)")

	return cmd
}

func (c *CLI) serveCache(cmd *cobra.Command, flags serveFlags) (cache.Cache, error) {
	if flags.redisAddr == "" || flags.noCache {
		return c.newCache(flags.noCache)
	}
	rc, err := cache.NewRedisCache(cmd.Context(), cache.RedisConfig{
		Addr:     flags.redisAddr,
		Password: flags.redisPassword,
		DB:       flags.redisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rc, nil
}
