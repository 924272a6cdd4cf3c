package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(nil, svc, rbac.Middleware{Policy: rbac.DefaultPolicy()})
	r := chi.NewRouter()
	r.Route("/cart", h.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, principal shared.Principal, method, path, body string) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(shared.ContextWithPrincipal(context.Background(), principal))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandlerAddAndDuplicate(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)
	sales := shared.Principal{ID: 7, Designation: shared.DesignationSales}

	rec, env := doRequest(t, router, sales, http.MethodPost, "/cart/", `{"product_id":1,"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "success", env.Status)

	rec, env = doRequest(t, router, sales, http.MethodPost, "/cart/", `{"product_id":1,"quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "error", env.Status)

	rec, env = doRequest(t, router, sales, http.MethodPost, "/cart/", `{"product_id":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, env.Errors, "quantity")
}

func TestHandlerPricesForbiddenForSales(t *testing.T) {
	svc, _, _ := newFixture()
	router := newTestRouter(svc)

	rec, _ := doRequest(t, router, shared.Principal{ID: 7, Designation: shared.DesignationSales}, http.MethodPost, "/cart/prices",
		`{"changes":[{"product_id":1,"selling_price":"10"}]}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := doRequest(t, router, shared.Principal{ID: 2, Designation: shared.DesignationAccounts}, http.MethodPost, "/cart/prices",
		`{"changes":[{"product_id":1,"selling_price":"10"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "prices updated", env.Message)
}
