package ledger

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ledger"

// Collector exports the counters kept by a Logger and its sinks as Prometheus
// metrics. Register it once and add sinks as they are created:
//
//	c := ledger.NewCollector(logger)
//	c.AddAsyncSink("audit", auditSink)
//	prometheus.MustRegister(c)
type Collector struct {
	logger *Logger

	mu       sync.RWMutex
	async    map[string]*AsyncSink
	rotating map[string]*RotatingFileSink

	failures  *prometheus.Desc
	dropped   *prometheus.Desc
	depth     *prometheus.Desc
	capacity  *prometheus.Desc
	rotations *prometheus.Desc
	fileSize  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for l. A nil l exports sink metrics only.
func NewCollector(l *Logger) *Collector {
	return &Collector{
		logger:   l,
		async:    make(map[string]*AsyncSink),
		rotating: make(map[string]*RotatingFileSink),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "sink_failures_total"),
			"Sink writes that returned an error.", nil, nil),
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "async", "dropped_total"),
			"Lines discarded by the async drop policy.", []string{"sink"}, nil),
		depth: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "async", "queue_depth"),
			"Lines waiting in the async queue.", []string{"sink"}, nil),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "async", "queue_capacity"),
			"Bound of the async queue.", []string{"sink"}, nil),
		rotations: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "file", "rotations_total"),
			"Rotations performed by the file sink.", []string{"sink"}, nil),
		fileSize: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "file", "active_bytes"),
			"Bytes in the active log file.", []string{"sink"}, nil),
	}
}

// AddAsyncSink exports s under the label sink=name, replacing any sink
// previously added under that name.
func (c *Collector) AddAsyncSink(name string, s *AsyncSink) {
	c.mu.Lock()
	c.async[name] = s
	c.mu.Unlock()
}

// AddRotatingFileSink exports s under the label sink=name.
func (c *Collector) AddRotatingFileSink(name string, s *RotatingFileSink) {
	c.mu.Lock()
	c.rotating[name] = s
	c.mu.Unlock()
}

// Remove stops exporting every sink added under name.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	delete(c.async, name)
	delete(c.rotating, name)
	c.mu.Unlock()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.failures
	ch <- c.dropped
	ch <- c.depth
	ch <- c.capacity
	ch <- c.rotations
	ch <- c.fileSize
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.logger != nil {
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(c.logger.Failures()))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, name := range sortedKeys(c.async) {
		s := c.async[name]
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.DroppedCount()), name)
		ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(s.Len()), name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity()), name)
	}
	for _, name := range sortedKeys(c.rotating) {
		s := c.rotating[name]
		ch <- prometheus.MustNewConstMetric(c.rotations, prometheus.CounterValue, float64(s.Rotations()), name)
		ch <- prometheus.MustNewConstMetric(c.fileSize, prometheus.GaugeValue, float64(s.Size()), name)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
