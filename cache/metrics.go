package cache

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"listings/utils"
)

// CacheMetrics summarises Redis keyspace statistics for the listings cache
type CacheMetrics struct {
	KeyspaceHits        int64   `json:"keyspace_hits"`
	KeyspaceMisses      int64   `json:"keyspace_misses"`
	TotalOperations     int64   `json:"total_operations"`
	HitRatio            float64 `json:"hit_ratio"`
	HitRatioPercentage  float64 `json:"hit_ratio_percentage"`
	MissRatio           float64 `json:"miss_ratio"`
	MissRatioPercentage float64 `json:"miss_ratio_percentage"`
	UsedMemory          int64   `json:"used_memory"`
	UsedMemoryHuman     string  `json:"used_memory_human"`
	CachedKeysCount     int     `json:"cached_keys_count"`
	RedisVersion        string  `json:"redis_version"`
	ConnectedClients    int64   `json:"connected_clients"`
	UptimeInSeconds     int64   `json:"uptime_in_seconds"`
	UptimeInDays        int64   `json:"uptime_in_days"`
	Error               string  `json:"error,omitempty"`
}

// Analysis grades cache performance
type Analysis struct {
	PerformanceLevel string   `json:"performance_level,omitempty"`
	Status           string   `json:"status,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
	Error            string   `json:"error,omitempty"`
}

func emptyMetrics(err error) CacheMetrics {
	return CacheMetrics{
		UsedMemoryHuman: "0B",
		RedisVersion:    "unknown",
		Error:           err.Error(),
	}
}

// Metrics reads INFO and counts keys under the cache prefix. On failure the
// zeroed metrics are returned with Error set.
func (c *PropertyCache) Metrics(ctx context.Context) CacheMetrics {
	info, err := c.client.Info(ctx).Result()
	if err != nil {
		utils.LogError("Error retrieving Redis cache metrics", err)
		return emptyMetrics(err)
	}

	keys, err := c.countKeys(ctx)
	if err != nil {
		// Key counting is best effort.
		utils.LogWarn("Could not count cached keys", "error", err)
	}

	m := MetricsFromInfo(ParseInfo(info), keys)
	utils.LogInfo("Redis cache metrics",
		"hits", m.KeyspaceHits,
		"misses", m.KeyspaceMisses,
		"hit_ratio_percentage", m.HitRatioPercentage,
		"cached_keys", m.CachedKeysCount)
	return m
}

func (c *PropertyCache) countKeys(ctx context.Context) (int, error) {
	count := 0
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return count, nil
}

// ParseInfo turns the text of a Redis INFO reply into a field map
func ParseInfo(info string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[key] = value
	}
	return fields
}

// MetricsFromInfo computes CacheMetrics from parsed INFO fields
func MetricsFromInfo(fields map[string]string, cachedKeys int) CacheMetrics {
	intField := func(name string) int64 {
		v, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			return 0
		}
		return v
	}

	m := CacheMetrics{
		KeyspaceHits:     intField("keyspace_hits"),
		KeyspaceMisses:   intField("keyspace_misses"),
		UsedMemory:       intField("used_memory"),
		UsedMemoryHuman:  fields["used_memory_human"],
		CachedKeysCount:  cachedKeys,
		RedisVersion:     fields["redis_version"],
		ConnectedClients: intField("connected_clients"),
		UptimeInSeconds:  intField("uptime_in_seconds"),
		UptimeInDays:     intField("uptime_in_days"),
	}
	if m.UsedMemoryHuman == "" {
		m.UsedMemoryHuman = "0B"
	}
	if m.RedisVersion == "" {
		m.RedisVersion = "unknown"
	}

	m.TotalOperations = m.KeyspaceHits + m.KeyspaceMisses
	if m.TotalOperations > 0 {
		m.HitRatio = float64(m.KeyspaceHits) / float64(m.TotalOperations)
		m.MissRatio = 1 - m.HitRatio
		m.MissRatioPercentage = round2(m.MissRatio * 100)
	}
	m.HitRatioPercentage = round2(m.HitRatio * 100)
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Analyze grades hit ratio and usage into a performance level with recommendations
func Analyze(m CacheMetrics) Analysis {
	if m.Error != "" {
		return Analysis{Error: "No metrics available"}
	}

	var a Analysis
	switch {
	case m.HitRatio >= 0.9:
		a.PerformanceLevel = "Excellent"
		a.Status = "success"
		a.Recommendations = append(a.Recommendations,
			"Cache is performing very well. Consider increasing cache TTL for frequently accessed data.")
	case m.HitRatio >= 0.7:
		a.PerformanceLevel = "Good"
		a.Status = "info"
		a.Recommendations = append(a.Recommendations,
			"Cache performance is good. Monitor for any degradation.")
	case m.HitRatio >= 0.5:
		a.PerformanceLevel = "Fair"
		a.Status = "warning"
		a.Recommendations = append(a.Recommendations,
			"Consider optimizing cache keys or increasing TTL for better performance.")
	default:
		a.PerformanceLevel = "Poor"
		a.Status = "error"
		a.Recommendations = append(a.Recommendations,
			"Cache hit ratio is low. Review caching strategy and data access patterns.")
	}

	if m.TotalOperations < 100 {
		a.Recommendations = append(a.Recommendations,
			"Low cache usage. Consider if more data should be cached.")
	}

	switch {
	case m.CachedKeysCount == 0:
		a.Recommendations = append(a.Recommendations,
			"No cached keys found. Verify cache is being used properly.")
	case m.CachedKeysCount > 1000:
		a.Recommendations = append(a.Recommendations,
			"Large number of cached keys. Consider implementing cache key expiration policies.")
	}

	return a
}
