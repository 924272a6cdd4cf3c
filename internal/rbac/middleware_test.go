package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

func serve(t *testing.T, h http.Handler, principal *shared.Principal) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if principal != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), *principal))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestRequireAnyByDesignation(t *testing.T) {
	mw := Middleware{Policy: DefaultPolicy()}
	h := mw.RequireAny(shared.PermPaymentRecord)(okHandler)

	require.Equal(t, http.StatusNoContent, serve(t, h, &shared.Principal{ID: 1, Designation: shared.DesignationAccounts}).Code)
	require.Equal(t, http.StatusNoContent, serve(t, h, &shared.Principal{ID: 2, Designation: shared.DesignationAdmin}).Code)
	require.Equal(t, http.StatusForbidden, serve(t, h, &shared.Principal{ID: 3, Designation: shared.DesignationSales}).Code)
	require.Equal(t, http.StatusUnauthorized, serve(t, h, nil).Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := Middleware{Policy: DefaultPolicy()}
	h := mw.RequireAll(shared.PermShipmentRecord, shared.PermOrderStatus)(okHandler)

	require.Equal(t, http.StatusNoContent, serve(t, h, &shared.Principal{Designation: shared.DesignationWarehouse}).Code)
	require.Equal(t, http.StatusForbidden, serve(t, h, &shared.Principal{Designation: shared.DesignationAccounts}).Code)
}

func TestUnknownDesignationGetsNothing(t *testing.T) {
	policy := DefaultPolicy()
	require.False(t, policy.Allows(shared.Principal{Designation: "Intern"}, shared.PermCatalogView))
	require.Empty(t, policy.EffectivePermissions("Intern"))
	require.True(t, policy.Allows(shared.Principal{Designation: shared.DesignationAdmin}, " CATALOG.PRODUCT.IMPORT "))
}

func TestPermissionsHandlerListsGrants(t *testing.T) {
	r := chi.NewRouter()
	NewPermissionsHandler(DefaultPolicy()).MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: 5, Designation: shared.DesignationWarehouse}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Designation string   `json:"designation"`
			Permissions []string `json:"permissions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, shared.DesignationWarehouse, body.Data.Designation)
	require.Contains(t, body.Data.Permissions, shared.PermShipmentRecord)
	require.NotContains(t, body.Data.Permissions, shared.PermPaymentRecord)
	require.IsNonDecreasing(t, body.Data.Permissions)
}
