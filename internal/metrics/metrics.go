// Package metrics provides ambient, optional instrumentation for the
// command surface, per spec.md §9: command.Service depends only on the
// Recorder interface declared here, and an implementation is injected into it.
// Grounded on
// abdoElHodaky-tradSys's internal/metrics (prometheus.Registerer-based
// constructors, one *Vec per concern).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the seam command.Service depends on. NoOp satisfies it for
// tests and for any caller that doesn't want Prometheus wired in.
type Recorder interface {
	OrdersSubmitted(pair, side, kind string)
	OrdersCancelled(pair string)
	TradesExecuted(pair string, count int)
	SubscriberLag(pair string, lag uint64)
}

// Prometheus is the client_golang-backed Recorder.
type Prometheus struct {
	ordersSubmitted *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	tradesExecuted  *prometheus.CounterVec
	subscriberLag   *prometheus.GaugeVec
}

// NewPrometheus registers every metric against reg and returns a Recorder.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchforge_orders_submitted_total",
			Help: "Orders accepted by submit_order, by pair/side/kind.",
		}, []string{"pair", "side", "kind"}),
		ordersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchforge_orders_cancelled_total",
			Help: "Orders removed by cancel_order, by pair.",
		}, []string{"pair"}),
		tradesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchforge_trades_executed_total",
			Help: "Trades produced by submit_order, by pair.",
		}, []string{"pair"}),
		subscriberLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "matchforge_subscriber_lag_frames",
			Help: "Most recently reported dropped-frame count from any subscriber of a pair.",
		}, []string{"pair"}),
	}

	reg.MustRegister(p.ordersSubmitted, p.ordersCancelled, p.tradesExecuted, p.subscriberLag)
	return p
}

func (p *Prometheus) OrdersSubmitted(pair, side, kind string) {
	p.ordersSubmitted.WithLabelValues(pair, side, kind).Inc()
}

func (p *Prometheus) OrdersCancelled(pair string) {
	p.ordersCancelled.WithLabelValues(pair).Inc()
}

func (p *Prometheus) TradesExecuted(pair string, count int) {
	if count <= 0 {
		return
	}
	p.tradesExecuted.WithLabelValues(pair).Add(float64(count))
}

func (p *Prometheus) SubscriberLag(pair string, lag uint64) {
	p.subscriberLag.WithLabelValues(pair).Set(float64(lag))
}

type noop struct{}

// NoOp returns a Recorder that does nothing, used as command.Service's
// default when no Prometheus registerer is available.
func NoOp() Recorder { return noop{} }

func (noop) OrdersSubmitted(string, string, string) {}
func (noop) OrdersCancelled(string)                 {}
func (noop) TradesExecuted(string, int)             {}
func (noop) SubscriberLag(string, uint64)           {}
