package health

import (
	"context"
	"time"
)

// Pinger reaches the upstream service. *upstream.Client satisfies it.
type Pinger interface {
	Configured() bool
	Ping(ctx context.Context) error
}

// NewUpstreamChecker reports unhealthy when the upstream service is not
// configured or does not answer.
func NewUpstreamChecker(p Pinger) Checker {
	return NewCheckerFunc("upstream", func(ctx context.Context) Result {
		if !p.Configured() {
			return Unhealthy("upstream not configured", nil)
		}
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("upstream unreachable", err)
		}
		return Healthy("upstream reachable")
	})
}

// WeatherSource exposes the weather slot. *contextstore.Store satisfies it.
type WeatherSource interface {
	Weather() string
	WeatherRefreshedAt() time.Time
}

// NewWeatherChecker reports degraded when the weather was never refreshed
// successfully or the last success is older than maxAge.
func NewWeatherChecker(src WeatherSource, maxAge time.Duration) Checker {
	return NewCheckerFunc("weather", func(context.Context) Result {
		at := src.WeatherRefreshedAt()
		if at.IsZero() {
			return Degraded("weather never refreshed").WithDetails(map[string]any{
				"value": src.Weather(),
			})
		}
		age := time.Since(at)
		details := map[string]any{
			"refreshed_at": at.UTC().Format(time.RFC3339),
			"age":          age.Truncate(time.Second).String(),
		}
		if maxAge > 0 && age > maxAge {
			return Degraded("weather stale").WithDetails(details)
		}
		return Healthy("weather fresh").WithDetails(details)
	})
}

// Counter reports a size. cache.Store satisfies it.
type Counter interface {
	Len() int
}

// NewCaptionCacheChecker reports the caption cache size. A nil cache means
// captions are disabled, which is healthy.
func NewCaptionCacheChecker(c Counter) Checker {
	return NewCheckerFunc("caption_cache", func(context.Context) Result {
		if c == nil {
			return Healthy("captions disabled")
		}
		return Healthy("caption cache loaded").WithDetails(map[string]any{"entries": c.Len()})
	})
}
