package grv

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Handler exposes return voucher endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes attaches /returns routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermReturnCreate, shared.PermReturnApprove)).Get("/{id}", h.show)
	r.With(h.rbac.RequireAll(shared.PermReturnCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAll(shared.PermReturnApprove)).Patch("/{id}/status", h.updateStatus)
}

// MountOrderRoutes attaches voucher listings under /orders.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermReturnCreate, shared.PermReturnApprove)).Get("/{id}/returns", h.byOrder)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	ret, err := h.service.Create(r.Context(), principal, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "return created", ret)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ret, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", ret)
}

type statusRequest struct {
	Status Status `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	ret, err := h.service.UpdateStatus(r.Context(), principal, id, req.Status, req.Note)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "status updated", ret)
}

func (h *Handler) byOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ByOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", list)
}
