package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/kvops/health"
)

var errUnhealthy = errors.New("one or more stores are unhealthy")

func (r *rootCommand) healthCommand() *cobra.Command {
	var timeout, slow time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Ping Redis and MongoDB and report their health",
		Long: `Ping Redis and MongoDB once each and print one line per store.

Exits non-zero when any store is unhealthy. A store slower than --slow is
reported as degraded, which does not fail the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			agg := health.NewAggregator(health.AggregatorConfig{Timeout: timeout})

			backend, err := r.newBackend(r.cfg.Redis)
			if err != nil {
				agg.Register("redis", failedChecker("redis", err))
			} else {
				defer backend.Close()
				agg.Register("redis", pingChecker("redis", backend, slow))
			}

			src, err := r.newLogSource(ctx, r.cfg.Mongo)
			if err != nil {
				agg.Register("mongo", failedChecker("mongo", err))
			} else {
				defer func() { _ = src.Close(context.WithoutCancel(ctx)) }()
				agg.Register("mongo", pingChecker("mongo", src, slow))
			}

			report, err := agg.Run(ctx)
			if err != nil {
				return err
			}
			if err := report.Write(cmd.OutOrStdout()); err != nil {
				return err
			}
			if report.Status == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "time allowed for all checks")
	cmd.Flags().DurationVar(&slow, "slow", health.DefaultSlowThreshold, "ping latency above which a store is degraded")
	return cmd
}

func pingChecker(name string, p health.Pinger, slow time.Duration) health.Checker {
	c := health.NewPingChecker(name, p)
	c.SlowThreshold = slow
	return c
}

// failedChecker reports a store whose client could not be created.
func failedChecker(name string, err error) health.Checker {
	return health.NewCheckerFunc(name, func(context.Context) health.Result {
		return health.Unhealthy(name+" not configured", err)
	})
}
