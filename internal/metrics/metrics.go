// Package metrics collects and exposes Prometheus metrics of the feed cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FeedRecorder is the set of feed cache events worth counting.
type FeedRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordPopulate(duration time.Duration, err error)
	RecordPatch(err error)
	RecordFlush(err error)
	RecordReconcileEvicted(count int)
}

// Collector is the Prometheus FeedRecorder.
type Collector struct {
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	populateLatency  prometheus.Histogram
	populateFailures prometheus.Counter
	patches          *prometheus.CounterVec
	flushes          prometheus.Counter
	flushFailures    prometheus.Counter
	reconcileEvicted prometheus.Counter
}

var _ FeedRecorder = (*Collector)(nil)

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_cache_hits_total",
			Help: "Feed pages served from cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_cache_misses_total",
			Help: "Feed page lookups that missed the cache",
		}),
		populateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feed_cache_populate_seconds",
			Help:    "Time spent assembling a feed page from the store",
			Buckets: prometheus.DefBuckets,
		}),
		populateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_cache_populate_failures_total",
			Help: "Feed page populations that failed",
		}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_cache_patches_total",
			Help: "Like totals patched into cached pages, by result",
		}, []string{"result"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_cache_flushes_total",
			Help: "Feed cache generation bumps",
		}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_cache_flush_failures_total",
			Help: "Feed cache generation bumps that failed",
		}),
		reconcileEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_cache_reconcile_evicted_total",
			Help: "Cached pages evicted by reconciliation",
		}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.populateLatency,
		c.populateFailures,
		c.patches,
		c.flushes,
		c.flushFailures,
		c.reconcileEvicted,
	)

	return c
}

func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

func (c *Collector) RecordPopulate(duration time.Duration, err error) {
	c.populateLatency.Observe(duration.Seconds())
	if err != nil {
		c.populateFailures.Inc()
	}
}

func (c *Collector) RecordPatch(err error) {
	if err != nil {
		c.patches.WithLabelValues("error").Inc()
		return
	}
	c.patches.WithLabelValues("ok").Inc()
}

func (c *Collector) RecordFlush(err error) {
	if err != nil {
		c.flushFailures.Inc()
		return
	}
	c.flushes.Inc()
}

func (c *Collector) RecordReconcileEvicted(count int) {
	c.reconcileEvicted.Add(float64(count))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordCacheHit()                    {}
func (Nop) RecordCacheMiss()                   {}
func (Nop) RecordPopulate(time.Duration, error) {}
func (Nop) RecordPatch(error)                  {}
func (Nop) RecordFlush(error)                  {}
func (Nop) RecordReconcileEvicted(int)         {}
