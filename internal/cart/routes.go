package cart

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// MountRoutes attaches cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCartUse))
		r.Get("/", h.list)
		r.Post("/", h.add)
		r.Delete("/{lineID}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCatalogPrice))
		r.Post("/prices", h.prices)
	})
}
