package orders

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Handler exposes order endpoints.
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
	q := r.URL.Query()
	_, _, limit, offset := shared.PageParams(q)
	filter := ListFilter{Status: Status(q.Get("status")), Limit: limit, Offset: offset}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, h.logger, shared.NewValidationError("customer_id", "must be numeric"))
			return
		}
		filter.CustomerID = id
	}
	if q.Get("from") != "" {
		from, err := httpx.DateQuery(r, "from", time.Time{})
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		filter.From = &from
	}
	if q.Get("to") != "" {
		to, err := httpx.DateQuery(r, "to", time.Time{})
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", orders)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", order)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	order, err := h.service.CreateOrder(r.Context(), principal, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "order created", order)
}

type statusRequest struct {
	Status Status `json:"status"`
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
	order, err := h.service.UpdateOrderStatus(r.Context(), principal, id, req.Status)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "status updated", order)
}
