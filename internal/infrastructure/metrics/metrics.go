package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rizqara-backend/internal/domain"
)

const namespace = "rizqara"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced   *prometheus.CounterVec
	orderValue     *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	vouchersUsed   *prometheus.CounterVec
	voucherRejects *prometheus.CounterVec
	conflicts      *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders created at checkout, by payment method.",
		}, []string{"payment_method"}),
		orderValue: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_bdt",
			Help:      "Order totals in taka at checkout.",
			Buckets:   []float64{250, 500, 1000, 2000, 3500, 5000, 10000, 20000},
		}, []string{"payment_method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Committed order mutations by history event and resulting status.",
		}, []string{"event", "status"}),
		vouchersUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_redemptions_total",
			Help:      "Vouchers redeemed by placed orders.",
		}, []string{"code"}),
		voucherRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_rejections_total",
			Help:      "Voucher applications rejected at checkout, by reason.",
		}, []string{"kind"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_conflicts_total",
			Help:      "Order updates lost to a concurrent writer.",
		}, []string{"action"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by template and outcome.",
		}, []string{"template", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersPlaced, m.orderValue, m.transitions, m.vouchersUsed, m.voucherRejects,
		m.conflicts, m.notifications, m.httpRequests, m.httpDuration,
	)
	return m
}

// RegisterGauge exposes a value sampled at scrape time, such as connected websocket clients.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OrderPlaced(method domain.PaymentMethod, total float64) {
	m.ordersPlaced.WithLabelValues(string(method)).Inc()
	m.orderValue.WithLabelValues(string(method)).Observe(total)
}

func (m *Metrics) OrderTransition(event string, to domain.OrderStatus) {
	m.transitions.WithLabelValues(event, string(to)).Inc()
}

func (m *Metrics) VoucherRedeemed(code string) {
	m.vouchersUsed.WithLabelValues(code).Inc()
}

func (m *Metrics) VoucherRejected(kind domain.VoucherErrorKind) {
	m.voucherRejects.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) Conflict(action string) {
	m.conflicts.WithLabelValues(action).Inc()
}

func (m *Metrics) NotificationResult(template, outcome string) {
	m.notifications.WithLabelValues(template, outcome).Inc()
}

// ObserveHTTP records one request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
