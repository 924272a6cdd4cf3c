package cart

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Handler exposes cart endpoints for the authenticated user.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	lines, err := h.service.Lines(r.Context(), principal.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", lines)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var input LineInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	line, err := h.service.AddLine(r.Context(), principal.ID, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "added to cart", line)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	lineID, err := httpx.IDParam(r, "lineID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.RemoveLine(r.Context(), principal.ID, lineID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "removed from cart", nil)
}

type pricesRequest struct {
	Changes []PriceChange `json:"changes"`
}

func (h *Handler) prices(w http.ResponseWriter, r *http.Request) {
	var req pricesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	products, err := h.service.UpdatePrices(r.Context(), principal, req.Changes)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "prices updated", products)
}
