// Package metrics exposes asset serving and cache activity to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stupid-simple/assets/assetcache"
)

const namespace = "assets"

type Collector struct {
	registry *prometheus.Registry

	responses        *prometheus.CounterVec
	responseDuration *prometheus.HistogramVec
	lookups          *prometheus.CounterVec
	loads            *prometheus.CounterVec
	loadDuration     *prometheus.HistogramVec
	evictions        *prometheus.CounterVec
	entries          *prometheus.GaugeVec
	weight           *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry. Go runtime and
// process metrics are registered alongside.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "Responses sent, by mount and status code.",
		}, []string{"mount", "code"}),
		responseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_duration_seconds",
			Help:      "Time to answer a request, by mount.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"mount"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups, by mount and result (hit or miss).",
		}, []string{"mount", "result"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "loads_total",
			Help:      "Asset loads, by mount and result (success or error).",
		}, []string{"mount", "result"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "load_duration_seconds",
			Help:      "Time to resolve and read an asset, by mount.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"mount"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed from the cache, by mount and reason.",
		}, []string{"mount", "reason"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries in the cache, by mount.",
		}, []string{"mount"}),
		weight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "weight_bytes",
			Help:      "Summed content size of the cached entries, by mount.",
		}, []string{"mount"}),
	}

	for _, m := range []prometheus.Collector{
		c.responses,
		c.responseDuration,
		c.lookups,
		c.loads,
		c.loadDuration,
		c.evictions,
		c.entries,
		c.weight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveResponse implements handler.Observer.
func (c *Collector) ObserveResponse(mount string, status int, elapsed time.Duration) {
	c.responses.WithLabelValues(mount, strconv.Itoa(status)).Inc()
	c.responseDuration.WithLabelValues(mount).Observe(elapsed.Seconds())
}

// SetCacheStats publishes the size of a mount's cache.
func (c *Collector) SetCacheStats(mount string, stats assetcache.Stats) {
	c.entries.WithLabelValues(mount).Set(float64(stats.Entries))
	c.weight.WithLabelValues(mount).Set(float64(stats.Weight))
}

// Forget drops every series of a mount that is no longer served.
func (c *Collector) Forget(mount string) {
	labels := prometheus.Labels{"mount": mount}
	c.responses.DeletePartialMatch(labels)
	c.responseDuration.DeletePartialMatch(labels)
	c.lookups.DeletePartialMatch(labels)
	c.loads.DeletePartialMatch(labels)
	c.loadDuration.DeletePartialMatch(labels)
	c.evictions.DeletePartialMatch(labels)
	c.entries.DeletePartialMatch(labels)
	c.weight.DeletePartialMatch(labels)
}

// CacheObserver returns an assetcache.Observer reporting for mount.
func (c *Collector) CacheObserver(mount string) assetcache.Observer {
	return &cacheObserver{
		hits:         c.lookups.WithLabelValues(mount, "hit"),
		misses:       c.lookups.WithLabelValues(mount, "miss"),
		loadOK:       c.loads.WithLabelValues(mount, "success"),
		loadErr:      c.loads.WithLabelValues(mount, "error"),
		loadDuration: c.loadDuration.WithLabelValues(mount),
		evictions:    c.evictions.MustCurryWith(prometheus.Labels{"mount": mount}),
	}
}

type cacheObserver struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	loadOK       prometheus.Counter
	loadErr      prometheus.Counter
	loadDuration prometheus.Observer
	evictions    *prometheus.CounterVec
}

func (o *cacheObserver) OnHit() {
	o.hits.Inc()
}

func (o *cacheObserver) OnMiss() {
	o.misses.Inc()
}

func (o *cacheObserver) OnLoad(elapsed time.Duration, err error) {
	o.loadDuration.Observe(elapsed.Seconds())
	if err != nil {
		o.loadErr.Inc()
		return
	}
	o.loadOK.Inc()
}

func (o *cacheObserver) OnEvict(reason assetcache.EvictionReason) {
	if reason == assetcache.EvictReplaced {
		return
	}
	o.evictions.WithLabelValues(reason.String()).Inc()
}
