package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Handler exposes receipt endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes attaches /payments routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAll(shared.PermPaymentRecord)).Post("/", h.record)
}

// MountOrderRoutes attaches balance routes under /orders.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermPaymentView)).Get("/{id}/balance", h.balance)
}

// MountCustomerRoutes attaches ledger routes under /customers.
func (h *Handler) MountCustomerRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermPaymentView)).Get("/{id}/ledger", h.ledger)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var input RecordInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" && input.IdempotencyKey == "" {
		input.IdempotencyKey = key
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	out, err := h.service.RecordPayment(r.Context(), principal, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "payment recorded", out)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	balance, err := h.service.OrderBalance(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", balance)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	entries, err := h.service.Ledger(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", entries)
}
