// Package metrics exposes Prometheus collectors for evn loops.
//
// Every method accepts a nil receiver, so code paths can record unconditionally
// and pay nothing when metrics are not configured.
package metrics

import (
	E "github.com/sagernet/evn/common/exceptions"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OpAccept    = "accept"
	OpConnect   = "connect"
	OpRecv      = "recv"
	OpSend      = "send"
	OpClose     = "close"
	OpAggregate = "aggregate"
	OpReactor   = "reactor"
)

type Metrics struct {
	accepted prometheus.Counter
	opened   prometheus.Counter
	received prometheus.Counter
	sent     prometheus.Counter
	drains   prometheus.Counter
	errors   *prometheus.CounterVec
	open     prometheus.Gauge
}

func New(namespace string) *Metrics {
	return &Metrics{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Connections accepted by servers.",
		}),
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_opened_total",
			Help:      "Outbound connections established.",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes read from streams.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Bytes handed to stream sockets.",
		}),
		drains: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drains_total",
			Help:      "Output buffers flushed after backpressure.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors reported by operation.",
		}, []string{"op"}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_open",
			Help:      "Streams not yet closed.",
		}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.accepted, m.opened, m.received, m.sent, m.drains, m.errors, m.open}
}

func (m *Metrics) Register(registerer prometheus.Registerer) error {
	var errs []error
	for _, collector := range m.Collectors() {
		errs = append(errs, registerer.Register(collector))
	}
	return E.Cause(E.Errors(errs...), "register metrics")
}

func (m *Metrics) StreamCreated() {
	if m == nil {
		return
	}
	m.open.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.open.Dec()
}

func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.accepted.Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.opened.Inc()
}

func (m *Metrics) BytesReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.received.Add(float64(n))
}

func (m *Metrics) BytesSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sent.Add(float64(n))
}

func (m *Metrics) Drained() {
	if m == nil {
		return
	}
	m.drains.Inc()
}

func (m *Metrics) Error(op string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op).Inc()
}
