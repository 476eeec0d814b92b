package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orders"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 30000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Observe records one finished request
func (m *ServerMetrics) Observe(handler, status string, elapsed time.Duration) {
	m.Requests.WithLabelValues(handler, status).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

// OrchestratorMetrics counts order and payment outcomes. A nil value records nothing.
type OrchestratorMetrics struct {
	OrdersCreated   *prometheus.CounterVec
	Payments        *prometheus.CounterVec
	PaymentSeconds  *prometheus.HistogramVec
	Compensations   *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

func NewOrchestratorMetrics(reg prometheus.Registerer) *OrchestratorMetrics {
	m := &OrchestratorMetrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Orders persisted by create, by resulting status.",
		}, []string{"status"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		PaymentSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_seconds",
			Help:      "Time spent processing a payment, PIX polling included.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"method"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_compensations_total",
			Help:      "Compensating stock increases run after a failed create, by result.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Order events handed to the broker, by event type and result.",
		}, []string{"event_type", "result"}),
	}
	reg.MustRegister(m.OrdersCreated, m.Payments, m.PaymentSeconds, m.Compensations, m.EventsPublished)
	return m
}

func (m *OrchestratorMetrics) OrderCreated(status string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(status).Inc()
}

func (m *OrchestratorMetrics) PaymentProcessed(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(method, outcome).Inc()
	m.PaymentSeconds.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *OrchestratorMetrics) Compensated(ok bool) {
	if m == nil {
		return
	}
	m.Compensations.WithLabelValues(result(ok)).Inc()
}

func (m *OrchestratorMetrics) EventPublished(eventType string, ok bool) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
