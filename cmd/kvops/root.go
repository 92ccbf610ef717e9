package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonwraymond/kvops/cache"
	"github.com/jonwraymond/kvops/config"
	"github.com/jonwraymond/kvops/health"
	"github.com/jonwraymond/kvops/logstats"
	"github.com/jonwraymond/kvops/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// logSource is the MongoDB side: queries for logstats plus ping and close.
type logSource interface {
	logstats.Collection
	health.Pinger
	Close(ctx context.Context) error
}

type rootCommand struct {
	stdout io.Writer
	stderr io.Writer

	v      *viper.Viper
	cfg    *config.Config
	obs    observe.Observer
	logger observe.Logger

	newBackend   func(config.Redis) (cache.Backend, error)
	newLogSource func(context.Context, config.Mongo) (logSource, error)
}

func newRootCommand(stdout, stderr io.Writer) *rootCommand {
	return &rootCommand{
		stdout:       stdout,
		stderr:       stderr,
		v:            viper.New(),
		logger:       observe.NopLogger(),
		newBackend:   redisBackend,
		newLogSource: mongoSource,
	}
}

func redisBackend(cfg config.Redis) (cache.Backend, error) {
	return cache.NewRedisBackend(cfg.Options())
}

func mongoSource(ctx context.Context, cfg config.Mongo) (logSource, error) {
	src, err := logstats.Connect(ctx, cfg.Options())
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (r *rootCommand) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kvops",
		Short:         "Instrumented Redis cache and nginx log statistics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.setup(cmd.Context(), cmd)
		},
	}
	cmd.SetOut(r.stdout)
	cmd.SetErr(r.stderr)
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		r.cacheCommand(),
		r.logstatsCommand(),
		r.healthCommand(),
	)
	return cmd
}

// setup loads configuration and starts telemetry before any subcommand runs.
func (r *rootCommand) setup(ctx context.Context, cmd *cobra.Command) error {
	if err := config.BindFlags(r.v, cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	cfg, err := config.Load(r.v)
	if err != nil {
		return err
	}
	r.cfg = cfg

	obs, err := observe.NewObserver(ctx, cfg.Observe.ObserveConfig(version, r.stderr))
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}
	r.obs = obs
	r.logger = obs.Logger().With(observe.F("command", cmd.Name()))
	return nil
}

func (r *rootCommand) shutdown(ctx context.Context) error {
	if r.obs == nil {
		return nil
	}
	return r.obs.Shutdown(ctx)
}

type cacheOptions struct {
	backend         string
	keep            bool
	instrumentReads bool
}

// openCache connects an instrumented cache to the configured Redis. Unless
// opts.keep is set the Redis database is flushed. The memory backend lives
// only as long as the process.
func (r *rootCommand) openCache(ctx context.Context, opts cacheOptions) (*cache.InstrumentedCache, error) {
	var backend cache.Backend
	switch opts.backend {
	case "", "redis":
		b, err := r.newBackend(r.cfg.Redis)
		if err != nil {
			return nil, err
		}
		backend = b
	case "memory":
		backend = cache.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown --backend %q: want redis or memory", opts.backend)
	}
	if backend == nil {
		return nil, cache.ErrNilBackend
	}

	mw, err := observe.MiddlewareFromObserver(r.obs)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	cacheOpts := []cache.Option{
		cache.WithLogger(r.logger),
		cache.WithMiddleware(cache.Observed(mw, backendName(opts.backend))),
	}
	if opts.keep {
		cacheOpts = append(cacheOpts, cache.WithoutFlush())
	}
	if opts.instrumentReads {
		cacheOpts = append(cacheOpts, cache.WithInstrumentedReads())
	}

	c, err := cache.New(ctx, backend, cacheOpts...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return c, nil
}

func backendName(flag string) string {
	if flag == "" {
		return "redis"
	}
	return flag
}
