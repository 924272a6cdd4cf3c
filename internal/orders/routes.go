package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// MountRoutes attaches order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrderView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrderStatus))
		r.Patch("/{id}/status", h.updateStatus)
	})
}
