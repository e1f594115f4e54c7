// Package metrics exposes the engine and bus's Prometheus instrumentation.
// It only observes call sites that already exist for the spec's
// algorithms — it never changes behavior.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collectors this engine registers.
type Metrics struct {
	OrdersTotal  *prometheus.CounterVec
	TradesTotal  prometheus.Counter
	CancelsTotal *prometheus.CounterVec
	BusQueueDepth prometheus.Gauge
	BusDropped   prometheus.Counter
}

// New creates and registers the engine's collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_orders_total",
			Help: "Orders processed by type and side.",
		}, []string{"type", "side"}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_trades_total",
			Help: "Trades executed by the matching engine.",
		}),
		CancelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_cancels_total",
			Help: "Cancel requests by result.",
		}, []string{"result"}),
		BusQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clob_bus_queue_depth",
			Help: "Current depth of the event bus's bounded queue.",
		}),
		BusDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_bus_dropped_total",
			Help: "Events dropped by the bus (always zero under the block-on-full policy).",
		}),
	}

	reg.MustRegister(m.OrdersTotal, m.TradesTotal, m.CancelsTotal, m.BusQueueDepth, m.BusDropped)
	return m
}

// ObserveOrder records one processed order.
func (m *Metrics) ObserveOrder(orderType, side string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(orderType, side).Inc()
}

// ObserveTrades records n executed trades.
func (m *Metrics) ObserveTrades(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TradesTotal.Add(float64(n))
}

// ObserveCancel records one cancel attempt's result ("ok" or "rejected").
func (m *Metrics) ObserveCancel(result string) {
	if m == nil {
		return
	}
	m.CancelsTotal.WithLabelValues(result).Inc()
}
