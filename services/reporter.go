package services

import (
	"context"
	"time"

	"listings/cache"
	"listings/metrics"
	"listings/utils"
)

// StartCacheMetricsReporter publishes Redis cache statistics to Prometheus every
// interval until ctx is done.
func StartCacheMetricsReporter(ctx context.Context, c *cache.PropertyCache, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		RunCacheMetricsReport(ctx, c)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				RunCacheMetricsReport(ctx, c)
			}
		}
	}()
}

// RunCacheMetricsReport takes one metrics sample and updates the gauges
func RunCacheMetricsReport(ctx context.Context, c *cache.PropertyCache) cache.CacheMetrics {
	m := c.Metrics(ctx)
	if m.Error != "" {
		metrics.IncrementError("metrics", "redis")
		return m
	}
	metrics.UpdateRedisCacheStats(m.HitRatio, m.CachedKeysCount, m.UsedMemory)
	utils.LogDebug("Cache metrics reported", "hit_ratio", m.HitRatio, "cached_keys", m.CachedKeysCount)
	return m
}
