package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDispatchCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncCycle("ok")
	metrics.ObserveCycleDuration(250 * time.Millisecond)
	metrics.IncTaskProcessed(TaskOutcomeDelivered)
	metrics.IncTaskProcessed(TaskOutcomeRecipientMissing)
	metrics.IncDelivery(true)
	metrics.IncDelivery(false)
	metrics.ObserveDeliveryDuration(80 * time.Millisecond)
	metrics.IncDeliveriesInFlight()
	metrics.DecDeliveriesInFlight()
	metrics.AddSubscriptionsPruned(2)

	if got := testutil.ToFloat64(metrics.cyclesTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("cycles_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.tasksProcessedTotal.WithLabelValues(TaskOutcomeDelivered)); got != 1 {
		t.Fatalf("tasks_processed_total{delivered} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.tasksProcessedTotal.WithLabelValues(TaskOutcomeRecipientMissing)); got != 1 {
		t.Fatalf("tasks_processed_total{recipient_missing} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.deliveriesTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("deliveries_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.deliveriesTotal.WithLabelValues("failure")); got != 1 {
		t.Fatalf("deliveries_total{failure} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.deliveriesInflight); got != 0 {
		t.Fatalf("deliveries_inflight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.subscriptionsPrunedTotal); got != 2 {
		t.Fatalf("subscriptions_pruned_total = %v, want 2", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncCycle("ok")
	metrics.IncTaskProcessed(TaskOutcomeFailed)
	metrics.IncDelivery(true)
	metrics.ObserveCycleDuration(time.Second)
	metrics.ObserveDeliveryDuration(time.Second)
	metrics.IncDeliveriesInFlight()
	metrics.DecDeliveriesInFlight()
	metrics.AddSubscriptionsPruned(1)
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
