package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/orderflow/internal/auth"
	"github.com/odyssey-erp/orderflow/internal/cart"
	"github.com/odyssey-erp/orderflow/internal/catalog"
	"github.com/odyssey-erp/orderflow/internal/customers"
	"github.com/odyssey-erp/orderflow/internal/grv"
	"github.com/odyssey-erp/orderflow/internal/observability"
	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/payments"
	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/proforma"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/reports"
	"github.com/odyssey-erp/orderflow/internal/warehouse"
	"github.com/odyssey-erp/orderflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	CatalogHandler     *catalog.Handler
	CartHandler        *cart.Handler
	CustomersHandler   *customers.Handler
	OrdersHandler      *orders.Handler
	ProformaHandler    *proforma.Handler
	PaymentsHandler    *payments.Handler
	WarehouseHandler   *warehouse.Handler
	ReturnsHandler     *grv.Handler
	ReportsHandler     *reports.Handler
	JobHandler         *jobs.Handler
	PermissionsHandler *rbac.PermissionsHandler
	Metrics            *observability.Metrics
	// Ready reports dependency health for /healthz; nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter constructs the chi.Router serving the versioned API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				params.Logger.Warn("health check failed", slog.Any("error", err))
				httpx.Fail(w, http.StatusServiceUnavailable, "unavailable", nil)
				return
			}
		}
		httpx.OK(w, http.StatusOK, "ok", map[string]string{"version": Version()})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			httpx.OK(w, http.StatusOK, "ok", nil)
		})
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			if params.AuthHandler != nil {
				r.Use(params.AuthHandler.Middleware)
			}
			if params.CatalogHandler != nil {
				r.Route("/products", params.CatalogHandler.MountRoutes)
			}
			if params.CartHandler != nil {
				r.Route("/cart", params.CartHandler.MountRoutes)
			}
			if params.ProformaHandler != nil {
				r.Route("/proforma", params.ProformaHandler.MountRoutes)
			}
			if params.PaymentsHandler != nil {
				r.Route("/payments", params.PaymentsHandler.MountRoutes)
			}
			if params.WarehouseHandler != nil {
				r.Route("/shipments", params.WarehouseHandler.MountRoutes)
			}
			if params.ReturnsHandler != nil {
				r.Route("/returns", params.ReturnsHandler.MountRoutes)
			}
			if params.ReportsHandler != nil {
				r.Route("/reports", params.ReportsHandler.MountRoutes)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}

			r.Route("/orders", func(r chi.Router) {
				if params.OrdersHandler != nil {
					params.OrdersHandler.MountRoutes(r)
				}
				if params.PaymentsHandler != nil {
					params.PaymentsHandler.MountOrderRoutes(r)
				}
				if params.WarehouseHandler != nil {
					params.WarehouseHandler.MountOrderRoutes(r)
				}
				if params.ReturnsHandler != nil {
					params.ReturnsHandler.MountOrderRoutes(r)
				}
			})
			r.Route("/customers", func(r chi.Router) {
				if params.CustomersHandler != nil {
					params.CustomersHandler.MountRoutes(r)
				}
				if params.PaymentsHandler != nil {
					params.PaymentsHandler.MountCustomerRoutes(r)
				}
			})
		})
	})

	return r
}
