package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInfo = `# Server
redis_version:7.2.4
uptime_in_seconds:172800
uptime_in_days:2

# Clients
connected_clients:5

# Memory
used_memory:1048576
used_memory_human:1.00M

# Stats
keyspace_hits:180
keyspace_misses:20
`

func TestParseInfo(t *testing.T) {
	fields := ParseInfo(sampleInfo)
	assert.Equal(t, "7.2.4", fields["redis_version"])
	assert.Equal(t, "1.00M", fields["used_memory_human"])
	assert.Equal(t, "180", fields["keyspace_hits"])
	assert.NotContains(t, fields, "# Server")
}

func TestMetricsFromInfo(t *testing.T) {
	m := MetricsFromInfo(ParseInfo(sampleInfo), 3)

	assert.Equal(t, int64(180), m.KeyspaceHits)
	assert.Equal(t, int64(20), m.KeyspaceMisses)
	assert.Equal(t, int64(200), m.TotalOperations)
	assert.InDelta(t, 0.9, m.HitRatio, 1e-9)
	assert.Equal(t, 90.0, m.HitRatioPercentage)
	assert.InDelta(t, 0.1, m.MissRatio, 1e-9)
	assert.Equal(t, 10.0, m.MissRatioPercentage)
	assert.Equal(t, int64(1048576), m.UsedMemory)
	assert.Equal(t, 3, m.CachedKeysCount)
	assert.Equal(t, int64(5), m.ConnectedClients)
	assert.Equal(t, int64(2), m.UptimeInDays)
	assert.Empty(t, m.Error)
}

func TestMetricsFromInfoWithoutOperations(t *testing.T) {
	m := MetricsFromInfo(map[string]string{}, 0)

	assert.Zero(t, m.TotalOperations)
	assert.Zero(t, m.HitRatio)
	assert.Zero(t, m.MissRatio)
	assert.Zero(t, m.MissRatioPercentage)
	assert.Equal(t, "0B", m.UsedMemoryHuman)
	assert.Equal(t, "unknown", m.RedisVersion)
}

func TestMetricsFromInfoRoundsPercentages(t *testing.T) {
	m := MetricsFromInfo(map[string]string{"keyspace_hits": "1", "keyspace_misses": "2"}, 0)
	assert.Equal(t, 33.33, m.HitRatioPercentage)
	assert.Equal(t, 66.67, m.MissRatioPercentage)
}

func TestMetricsRedisUnavailable(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	m := c.Metrics(context.Background())
	require.NotEmpty(t, m.Error)
	assert.Zero(t, m.KeyspaceHits)
	assert.Equal(t, "0B", m.UsedMemoryHuman)
	assert.Equal(t, "unknown", m.RedisVersion)

	assert.Equal(t, Analysis{Error: "No metrics available"}, Analyze(m))
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		metrics  CacheMetrics
		level    string
		status   string
		contains []string
		count    int
	}{
		{
			name:    "excellent with plenty of traffic",
			metrics: CacheMetrics{HitRatio: 0.95, TotalOperations: 1000, CachedKeysCount: 10},
			level:   "Excellent", status: "success",
			contains: []string{"performing very well"},
			count:    1,
		},
		{
			name:    "good at the boundary",
			metrics: CacheMetrics{HitRatio: 0.7, TotalOperations: 500, CachedKeysCount: 10},
			level:   "Good", status: "info",
			contains: []string{"Monitor for any degradation"},
			count:    1,
		},
		{
			name:    "fair with low usage",
			metrics: CacheMetrics{HitRatio: 0.5, TotalOperations: 10, CachedKeysCount: 1},
			level:   "Fair", status: "warning",
			contains: []string{"optimizing cache keys", "Low cache usage"},
			count:    2,
		},
		{
			name:    "poor with no keys",
			metrics: CacheMetrics{HitRatio: 0.1, TotalOperations: 10, CachedKeysCount: 0},
			level:   "Poor", status: "error",
			contains: []string{"hit ratio is low", "Low cache usage", "No cached keys found"},
			count:    3,
		},
		{
			name:    "many keys",
			metrics: CacheMetrics{HitRatio: 0.92, TotalOperations: 5000, CachedKeysCount: 1001},
			level:   "Excellent", status: "success",
			contains: []string{"expiration policies"},
			count:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(tt.metrics)
			assert.Equal(t, tt.level, a.PerformanceLevel)
			assert.Equal(t, tt.status, a.Status)
			assert.Len(t, a.Recommendations, tt.count)
			joined := ""
			for _, r := range a.Recommendations {
				joined += r + "\n"
			}
			for _, want := range tt.contains {
				assert.Contains(t, joined, want)
			}
		})
	}
}
