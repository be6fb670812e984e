package rowstore

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// latencyWindow bounds the samples kept for percentile estimates.
const latencyWindow = 1024

// Metrics records row-store call counts and latencies.
//
// Counters are exported to Prometheus and mirrored in memory so /healthz can
// report a Snapshot without scraping.
type Metrics struct {
	calls    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu          sync.Mutex
	queries     uint64
	failures    uint64
	iterQueries uint64
	iterErrors  uint64
	totalTime   time.Duration
	samples     []time.Duration
	next        int
}

// Snapshot is a point-in-time view of Metrics.
type Snapshot struct {
	LatencyAvgMs   uint64 `json:"latency_avg_ms"`
	LatencyP99Ms   uint64 `json:"latency_p99_ms"`
	LatencyP90Ms   uint64 `json:"latency_p90_ms"`
	ErrorsNum      uint64 `json:"errors_num"`
	QueriesNum     uint64 `json:"queries_num"`
	ErrorsIterNum  uint64 `json:"errors_iter_num"`
	QueriesIterNum uint64 `json:"queries_iter_num"`
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// skips registration (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logbase",
			Subsystem: "rowstore",
			Name:      "calls_total",
			Help:      "Row store calls by operation.",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logbase",
			Subsystem: "rowstore",
			Name:      "errors_total",
			Help:      "Failed row store calls by operation and kind.",
		}, []string{"op", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "logbase",
			Subsystem: "rowstore",
			Name:      "call_duration_seconds",
			Help:      "Row store call latency.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 3},
		}, []string{"op"}),
		samples: make([]time.Duration, 0, latencyWindow),
	}

	if reg != nil {
		reg.MustRegister(m.calls, m.errors, m.duration)
	}
	return m
}

// observe records one call. kind is empty on success.
func (m *Metrics) observe(op, kind string, elapsed time.Duration) {
	m.calls.WithLabelValues(op).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	if kind != "" {
		m.errors.WithLabelValues(op, kind).Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	iter := op == opQuery
	m.queries++
	if iter {
		m.iterQueries++
	}
	if kind != "" {
		m.failures++
		if iter {
			m.iterErrors++
		}
	}
	m.totalTime += elapsed

	if len(m.samples) < latencyWindow {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.next] = elapsed
		m.next = (m.next + 1) % latencyWindow
	}
}

// Snapshot returns the current counters. Percentiles cover the most recent
// calls only.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		ErrorsNum:      m.failures,
		QueriesNum:     m.queries,
		ErrorsIterNum:  m.iterErrors,
		QueriesIterNum: m.iterQueries,
	}
	if m.queries > 0 {
		s.LatencyAvgMs = uint64((m.totalTime / time.Duration(m.queries)).Milliseconds())
	}

	if len(m.samples) > 0 {
		sorted := slices.Clone(m.samples)
		slices.Sort(sorted)
		s.LatencyP90Ms = uint64(percentile(sorted, 90).Milliseconds())
		s.LatencyP99Ms = uint64(percentile(sorted, 99).Milliseconds())
	}
	return s
}

// percentile uses the nearest-rank method on sorted samples.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
