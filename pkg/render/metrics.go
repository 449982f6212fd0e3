// ABOUTME: Prometheus metrics for the renderer
// ABOUTME: Counts blocks, underruns and flushes and tracks queue depth
package render

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for one renderer. A nil *Metrics
// records nothing.
type Metrics struct {
	blocksTotal      *prometheus.CounterVec
	samplesConverted *prometheus.CounterVec
	underrunsTotal   prometheus.Counter
	flushesTotal     prometheus.Counter
	queueDepth       prometheus.Gauge

	// children of blocksTotal, resolved once so the device callback does
	// not look up labels
	queued  prometheus.Counter
	played  prometheus.Counter
	dropped prometheus.Counter
}

// NewMetrics creates and registers renderer metrics
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		blocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcmbridge_render_blocks_total",
				Help: "Total number of period blocks by stage",
			},
			[]string{"stage"}, // stage: queued, played, dropped
		),
		samplesConverted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcmbridge_render_samples_converted_total",
				Help: "Total number of samples converted to the device format",
			},
			[]string{"from", "to"},
		),
		underrunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmbridge_render_underruns_total",
			Help: "Total number of device periods with no block ready",
		}),
		flushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmbridge_render_flushes_total",
			Help: "Total number of queue flushes",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pcmbridge_render_queue_depth_blocks",
			Help: "Number of blocks waiting for the device",
		}),
	}

	m.queued = m.blocksTotal.WithLabelValues("queued")
	m.played = m.blocksTotal.WithLabelValues("played")
	m.dropped = m.blocksTotal.WithLabelValues("dropped")

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.blocksTotal.Describe(ch)
	m.samplesConverted.Describe(ch)
	m.underrunsTotal.Describe(ch)
	m.flushesTotal.Describe(ch)
	m.queueDepth.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.blocksTotal.Collect(ch)
	m.samplesConverted.Collect(ch)
	m.underrunsTotal.Collect(ch)
	m.flushesTotal.Collect(ch)
	m.queueDepth.Collect(ch)
}

func (m *Metrics) recordQueued() {
	if m == nil {
		return
	}
	m.queued.Inc()
}

func (m *Metrics) recordPlayed() {
	if m == nil {
		return
	}
	m.played.Inc()
}

func (m *Metrics) recordDropped(n int) {
	if m == nil {
		return
	}
	m.dropped.Add(float64(n))
}

// conversions returns the sample counter for one format pair
func (m *Metrics) conversions(from, to string) prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.samplesConverted.WithLabelValues(from, to)
}

func (m *Metrics) recordUnderrun() {
	if m == nil {
		return
	}
	m.underrunsTotal.Inc()
}

func (m *Metrics) recordFlush() {
	if m == nil {
		return
	}
	m.flushesTotal.Inc()
}

func (m *Metrics) setDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
