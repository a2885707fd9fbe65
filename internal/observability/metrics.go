package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and dispatcher flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	cyclesTotal              *prometheus.CounterVec
	cycleDuration            prometheus.Histogram
	tasksProcessedTotal      *prometheus.CounterVec
	deliveriesTotal          *prometheus.CounterVec
	deliveryDuration         prometheus.Histogram
	deliveriesInflight       prometheus.Gauge
	subscriptionsPrunedTotal prometheus.Counter
}

// Task outcome labels recorded per processed task.
const (
	TaskOutcomeDelivered        = "delivered"
	TaskOutcomePartialFailure   = "partial_failure"
	TaskOutcomeFailed           = "failed"
	TaskOutcomeIneligible       = "skipped_ineligible"
	TaskOutcomeRecipientMissing = "recipient_missing"
	TaskOutcomeNoSubscriptions  = "no_subscriptions"
)

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_dispatcher",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "push_dispatcher",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_dispatcher",
				Name:      "cycles_total",
				Help:      "Total number of dispatch cycles by result.",
			},
			[]string{"result"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "push_dispatcher",
				Name:      "cycle_duration_seconds",
				Help:      "Dispatch cycle duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		tasksProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_dispatcher",
				Name:      "tasks_processed_total",
				Help:      "Total number of scheduled tasks processed by outcome.",
			},
			[]string{"outcome"},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_dispatcher",
				Name:      "deliveries_total",
				Help:      "Total number of per-subscription delivery attempts by result.",
			},
			[]string{"result"},
		),
		deliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "push_dispatcher",
				Name:      "delivery_duration_seconds",
				Help:      "Push gateway call duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		deliveriesInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "push_dispatcher",
				Name:      "deliveries_inflight",
				Help:      "Current number of in-flight push gateway calls.",
			},
		),
		subscriptionsPrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "push_dispatcher",
				Name:      "subscriptions_pruned_total",
				Help:      "Total number of stale subscriptions removed after gone responses.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.cyclesTotal,
		m.cycleDuration,
		m.tasksProcessedTotal,
		m.deliveriesTotal,
		m.deliveryDuration,
		m.deliveriesInflight,
		m.subscriptionsPrunedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncCycle(result string) {
	if m == nil {
		return
	}
	label := strings.TrimSpace(strings.ToLower(result))
	if label == "" {
		label = "unknown"
	}
	m.cyclesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(positiveSeconds(duration))
}

func (m *Metrics) IncTaskProcessed(outcome string) {
	if m == nil {
		return
	}
	label := strings.TrimSpace(strings.ToLower(outcome))
	if label == "" {
		label = "unknown"
	}
	m.tasksProcessedTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncDelivery(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.deliveriesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDeliveryDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.deliveryDuration.Observe(positiveSeconds(duration))
}

func (m *Metrics) IncDeliveriesInFlight() {
	if m == nil {
		return
	}
	m.deliveriesInflight.Inc()
}

func (m *Metrics) DecDeliveriesInFlight() {
	if m == nil {
		return
	}
	m.deliveriesInflight.Dec()
}

func (m *Metrics) AddSubscriptionsPruned(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.subscriptionsPrunedTotal.Add(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func positiveSeconds(duration time.Duration) float64 {
	seconds := duration.Seconds()
	if seconds < 0 {
		return 0
	}
	return seconds
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
