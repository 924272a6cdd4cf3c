package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// PermissionsHandler exposes the caller's effective permissions.
type PermissionsHandler struct {
	policy Policy
}

// NewPermissionsHandler constructs PermissionsHandler.
func NewPermissionsHandler(policy Policy) *PermissionsHandler {
	return &PermissionsHandler{policy: policy}
}

// MountRoutes attaches permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

func (h *PermissionsHandler) me(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, nil, shared.ErrUnauthorized)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{
		"designation": principal.Designation,
		"permissions": h.policy.EffectivePermissions(principal.Designation),
	})
}
