package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	cartOperations   *prometheus.CounterVec
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	eventsPublished  *prometheus.CounterVec
	salesApplied     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		cartOperations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_cart_operations_total",
			Help: "Cart mutations by operation and outcome",
		}, []string{"operation", "outcome"})),
		checkouts: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_checkouts_total",
			Help: "Checkout attempts by outcome",
		}, []string{"outcome"})),
		checkoutDuration: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "market_checkout_duration_seconds",
			Help:    "Time to turn a cart into an order",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		})),
		eventsPublished: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_order_events_published_total",
			Help: "order.placed events by publish outcome",
		}, []string{"outcome"})),
		salesApplied: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_vendor_sales_applied_total",
			Help: "Vendor sales projection updates by outcome",
		}, []string{"outcome"})),
		httpDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})),
	}
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			existing, ok := already.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type: %T", already.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

func (m *Metrics) RecordCartOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.cartOperations.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) RecordCheckout(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordEventPublished(result string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordSalesApplied(result string) {
	if m == nil {
		return
	}
	m.salesApplied.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
