package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestDomainCounters(t *testing.T) {
	m := NewMetrics()
	m.OrderCreated("order")
	m.OrderCreated("order")
	m.OrderCreated("proforma")
	m.StockRejected("order")
	m.ReceiptRecorded()
	m.ShipmentRecorded()

	body := scrape(t, m)
	require.Contains(t, body, `orderflow_orders_created_total{kind="order"} 2`)
	require.Contains(t, body, `orderflow_orders_created_total{kind="proforma"} 1`)
	require.Contains(t, body, `orderflow_stock_rejections_total{kind="order"} 1`)
	require.Contains(t, body, "orderflow_receipts_recorded_total 1")
	require.Contains(t, body, "orderflow_shipments_recorded_total 1")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.OrderCreated("order")
	m.StockRejected("order")
	m.ReceiptRecorded()
	m.ShipmentRecorded()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	m := NewMetrics()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, m)
	require.True(t, strings.Contains(body, `orderflow_http_requests_total{code="418",route="/test"} 1`), body)
	require.Contains(t, body, `orderflow_http_request_duration_seconds_bucket{route="/test"`)
}
