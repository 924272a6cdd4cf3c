package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/auth"
	"github.com/odyssey-erp/orderflow/internal/observability"
	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
	_ "github.com/odyssey-erp/orderflow/testing"
)

type noUsers struct{}

func (noUsers) FindByEmail(ctx context.Context, email string) (auth.User, error) {
	return auth.User{}, shared.ErrNotFound
}

func (noUsers) FindByID(ctx context.Context, id int64) (auth.User, error) {
	return auth.User{}, shared.ErrNotFound
}

func testRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	authSvc := auth.NewService(noUsers{}, auth.NewTokenIssuer("secret", time.Hour), nil)
	rbacMW := rbac.Middleware{Policy: rbac.DefaultPolicy()}
	return NewRouter(RouterParams{
		Logger:        NewLogger(cfg),
		Config:        cfg,
		AuthHandler:   auth.NewHandler(nil, authSvc),
		OrdersHandler: orders.NewHandler(nil, nil, rbacMW),
		Metrics:       observability.NewMetrics(),
	})
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "10")
	t.Setenv("CHECKOUT_LOCK_TTL", "5s")
	t.Setenv("SHIPMENT_SUMMARY_RECIPIENTS", "a@example.com,b@example.com")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 10, cfg.RateLimitPerMinute)
	require.Equal(t, 5*time.Second, cfg.CheckoutLockTTL)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.SummaryRecipients)
	require.Equal(t, "IN", cfg.PhoneRegion)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsShortProductionSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router := testRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 100})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Contains(t, rec.Body.String(), `"status":"success"`)
	require.Contains(t, rec.Body.String(), `"version":"`+Version()+`"`)
}

func TestRouterRequiresBearerForAPI(t *testing.T) {
	router := testRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 100})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"error"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterRateLimit(t *testing.T) {
	router := testRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouterExposesMetrics(t *testing.T) {
	router := testRouter(t, &Config{AppEnv: "test", RateLimitPerMinute: 100})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "orderflow_receipts_recorded_total 0")
}
