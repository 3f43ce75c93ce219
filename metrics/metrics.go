package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listings_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Listings cache metrics
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_cache_lookups_total",
			Help: "Listings cache lookups by key kind and result",
		},
		[]string{"kind", "result"}, // kind: list, detail; result: hit, miss, error
	)

	cacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listings_cache_invalidations_total",
			Help: "Number of listings cache invalidations",
		},
	)

	redisHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listings_redis_keyspace_hit_ratio",
			Help: "Redis keyspace hit ratio as reported by INFO",
		},
	)

	redisCachedKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listings_redis_cached_keys",
			Help: "Number of Redis keys under the listings prefix",
		},
	)

	redisUsedMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "listings_redis_used_memory_bytes",
			Help: "Redis used_memory as reported by INFO",
		},
	)

	propertyOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_property_operations_total",
			Help: "Total number of listing write operations",
		},
		[]string{"operation"}, // create, update, delete
	)

	// Error metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

// PrometheusMiddleware creates a Fiber middleware for Prometheus metrics
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		method := c.Method()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// RecordCacheLookup counts a listings cache lookup
func RecordCacheLookup(kind, result string) {
	cacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// IncrementCacheInvalidation counts a listings cache invalidation
func IncrementCacheInvalidation() {
	cacheInvalidationsTotal.Inc()
}

// UpdateRedisCacheStats publishes the figures gathered from Redis INFO
func UpdateRedisCacheStats(hitRatio float64, cachedKeys int, usedMemory int64) {
	redisHitRatio.Set(hitRatio)
	redisCachedKeys.Set(float64(cachedKeys))
	redisUsedMemory.Set(float64(usedMemory))
}

// IncrementPropertyOperation increments the listing write counter
func IncrementPropertyOperation(operation string) {
	propertyOperationsTotal.WithLabelValues(operation).Inc()
}

// IncrementError increments error counter
func IncrementError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
