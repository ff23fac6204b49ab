package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	descSize = prometheus.NewDesc("lsmtable_block_cache_size_bytes",
		"Bytes held by the block cache.", []string{"cache"}, nil)
	descCount = prometheus.NewDesc("lsmtable_block_cache_entries",
		"Number of blocks held by the block cache.", []string{"cache"}, nil)
	descHits = prometheus.NewDesc("lsmtable_block_cache_hits_total",
		"Number of block cache hits.", []string{"cache"}, nil)
	descMisses = prometheus.NewDesc("lsmtable_block_cache_misses_total",
		"Number of block cache misses.", []string{"cache"}, nil)
	descEvictions = prometheus.NewDesc("lsmtable_block_cache_evictions_total",
		"Number of blocks evicted from the block cache.", []string{"cache"}, nil)
)

// Collector exports cache metrics to prometheus.
type Collector struct {
	name    string
	metrics func() Metrics
}

// NewCollector creates a collector for c, labelled with name.
func NewCollector[V any](name string, c *Cache[V]) *Collector {
	return &Collector{name: name, metrics: c.Metrics}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descSize
	ch <- descCount
	ch <- descHits
	ch <- descMisses
	ch <- descEvictions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.metrics()
	ch <- prometheus.MustNewConstMetric(descSize, prometheus.GaugeValue, float64(m.Size), c.name)
	ch <- prometheus.MustNewConstMetric(descCount, prometheus.GaugeValue, float64(m.Count), c.name)
	ch <- prometheus.MustNewConstMetric(descHits, prometheus.CounterValue, float64(m.Hits), c.name)
	ch <- prometheus.MustNewConstMetric(descMisses, prometheus.CounterValue, float64(m.Misses), c.name)
	ch <- prometheus.MustNewConstMetric(descEvictions, prometheus.CounterValue, float64(m.Evictions), c.name)
}
