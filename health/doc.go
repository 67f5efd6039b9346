// Package health reports whether promptrelay can serve requests.
//
// Checkers cover the upstream service, the weather slot and the caption
// cache. An Aggregator runs them together and the HTTP handlers expose the
// result:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewUpstreamChecker(client))
//	agg.Register(health.NewWeatherChecker(store, 36*time.Hour))
//	health.RegisterHandlers(mux, agg)
//
// /healthz only reports that the process is up. /readyz and /health run
// every check; degraded checks still answer 200.
package health
