package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rizqara-backend/internal/domain"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestOrderCounters(t *testing.T) {
	m := New()

	m.OrderPlaced(domain.PaymentMethodCOD, 1060)
	m.OrderPlaced(domain.PaymentMethodCOD, 560)
	m.OrderTransition("status_changed", domain.OrderStatusConfirmed)
	m.VoucherRejected(domain.VoucherUsageLimitReached)
	m.Conflict("confirm")

	body := scrape(t, m)
	assert.Contains(t, body, `rizqara_orders_placed_total{payment_method="cod"} 2`)
	assert.Contains(t, body, `rizqara_order_total_bdt_sum{payment_method="cod"} 1620`)
	assert.Contains(t, body, `rizqara_order_transitions_total{event="status_changed",status="confirmed"} 1`)
	assert.Contains(t, body, `rizqara_voucher_rejections_total{kind="UsageLimitReached"} 1`)
	assert.Contains(t, body, `rizqara_order_conflicts_total{action="confirm"} 1`)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/api/v1/orders", http.StatusCreated, 30*time.Millisecond)
	m.RegisterGauge("realtime_clients", "Connected dashboards.", func() float64 { return 3 })

	body := scrape(t, m)
	assert.Contains(t, body, `rizqara_http_requests_total{code="201",method="POST",route="/api/v1/orders"} 1`)
	assert.Contains(t, body, "rizqara_realtime_clients 3")
}
