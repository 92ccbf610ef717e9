// Package health checks that the stores kvops depends on are reachable.
//
// A Checker reports a Result with a Status: Healthy, Degraded, or Unhealthy.
// NewPingChecker turns anything with a Ping method, such as a Redis backend
// or a MongoDB client, into a Checker that also measures round-trip latency.
//
//	agg := health.NewAggregator()
//	agg.Register("redis", health.NewPingChecker("redis", backend))
//	agg.Register("mongo", health.NewPingChecker("mongo", source))
//
//	report, err := agg.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	_ = report.Write(os.Stdout)
//	if report.Status != health.StatusHealthy {
//	    os.Exit(1)
//	}
//
// Checks run in parallel under a shared timeout. A check that does not return
// in time is reported as unhealthy with ErrCheckTimeout.
package health
