package run

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	cachepkg "github.com/fgribreau/img-optimizer/internal/cache"
	diskpkg "github.com/fgribreau/img-optimizer/internal/cache/disk"
	memorypkg "github.com/fgribreau/img-optimizer/internal/cache/memory"
	s3pkg "github.com/fgribreau/img-optimizer/internal/cache/s3"
	configpkg "github.com/fgribreau/img-optimizer/internal/config"
	"github.com/fgribreau/img-optimizer/internal/logginglevel"
	"github.com/fgribreau/img-optimizer/internal/opentelemetry"
	serverpkg "github.com/fgribreau/img-optimizer/internal/server"
	"github.com/fgribreau/img-optimizer/internal/server/rule"
)

const (
	defaultTTL        = 24 * time.Hour
	defaultEvictEvery = time.Minute
)

var configPath string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the image optimizer server",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&configPath, "file", "f", "",
		"configuration file path (e.g. /etc/img-optimizer.yml)")

	return cmd
}

//nolint:cyclop // configuration surface is wide, but each branch is trivial
func run(cmd *cobra.Command, _ []string) error {
	if configPath == "" {
		return fmt.Errorf("configuration file path (-f or --file) needs to be specified")
	}

	// Parse the configuration file
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read configuration file at path %s: %w", configPath, err)
	}

	config, err := configpkg.Parse(bytes.NewReader(configBytes))
	if err != nil {
		return fmt.Errorf("failed to parse configuration file at path %s: %w", configPath, err)
	}

	if config.LogLevel != "" {
		level, err := zapcore.ParseLevel(config.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level %q: %w", config.LogLevel, err)
		}

		logginglevel.Level.SetLevel(level)
	}

	if err := opentelemetry.Init(cmd.Context()); err != nil {
		return err
	}

	opts := []serverpkg.Option{
		serverpkg.WithLogger(zap.S()),
	}

	ttl := defaultTTL
	evictEvery := defaultEvictEvery

	var cache cachepkg.Cache

	if config.Cache != nil {
		if config.Cache.TTL != 0 {
			ttl = time.Duration(config.Cache.TTL) * time.Second
		}

		if config.Cache.EvictEvery != 0 {
			evictEvery = time.Duration(config.Cache.EvictEvery) * time.Second
		}

		switch {
		case config.Cache.Disk != nil:
			limitBytes, err := humanize.ParseBytes(config.Cache.Disk.Limit)
			if err != nil {
				return fmt.Errorf("failed to parse disk limit value %q: %w",
					config.Cache.Disk.Limit, err)
			}

			cache, err = diskpkg.New(config.Cache.Disk.Dir, limitBytes, ttl)
			if err != nil {
				return err
			}
		case config.Cache.S3 != nil:
			cache, err = s3pkg.NewFromConfig(cmd.Context(), &s3pkg.Config{
				Endpoint:        config.Cache.S3.Endpoint,
				Region:          config.Cache.S3.Region,
				Bucket:          config.Cache.S3.Bucket,
				AccessKeyID:     config.Cache.S3.AccessKeyID,
				AccessKeySecret: config.Cache.S3.AccessKeySecret,
				TTL:             ttl,
			})
			if err != nil {
				return err
			}
		default:
			cache = memorypkg.New(ttl)
		}

		opts = append(opts, serverpkg.WithCache(cache))
	}

	if config.Fetch != nil {
		if config.Fetch.Timeout != 0 {
			opts = append(opts, serverpkg.WithFetchTimeout(
				time.Duration(config.Fetch.Timeout)*time.Second))
		}

		if config.Fetch.ComputeTimeout != 0 {
			opts = append(opts, serverpkg.WithComputeTimeout(
				time.Duration(config.Fetch.ComputeTimeout)*time.Second))
		}

		if config.Fetch.MaxSourceSize != "" {
			maxSourceSize, err := humanize.ParseBytes(config.Fetch.MaxSourceSize)
			if err != nil {
				return fmt.Errorf("failed to parse max source size value %q: %w",
					config.Fetch.MaxSourceSize, err)
			}

			opts = append(opts, serverpkg.WithMaxSourceSize(int64(maxSourceSize)))
		}
	}

	if len(config.Sources) != 0 {
		var rules rule.Rules

		for _, configSource := range config.Sources {
			compiled, err := rule.New(configSource.Expr)
			if err != nil {
				return err
			}

			rules = append(rules, compiled)
		}

		opts = append(opts, serverpkg.WithRules(rules))
	}

	server, err := serverpkg.New(config.Addr, opts...)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(cmd.Context())

	group.Go(func() error {
		return server.Run(ctx)
	})

	if cache != nil {
		group.Go(func() error {
			return janitor(ctx, cache, evictEvery)
		})
	}

	return group.Wait()
}

// janitor periodically sweeps expired cache entries so that the disk (or
// bucket) doesn't accumulate dead blobs between lookups.
func janitor(ctx context.Context, cache cachepkg.Cache, evictEvery time.Duration) error {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := cache.EvictExpired(ctx); err != nil {
				zap.S().Warnf("failed to evict expired cache entries: %v", err)
			}
		}
	}
}
