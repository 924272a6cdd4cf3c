package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler exposes the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes attaches /reports routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportView))
		r.Get("/sales", h.sales)
		r.Get("/collections", h.collections)
		r.Get("/stock", h.stock)
		r.Get("/shipments", h.shipments)
	})
}

func (h *Handler) dateRange(r *http.Request) (Range, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	from, err := httpx.DateQuery(r, "from", today.AddDate(0, 0, -29))
	if err != nil {
		return Range{}, err
	}
	to, err := httpx.DateQuery(r, "to", today)
	if err != nil {
		return Range{}, err
	}
	return Range{From: from, To: to}, nil
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	rng, err := h.dateRange(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	summary, err := h.service.SalesSummary(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if r.URL.Query().Get("format") == "xlsx" {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="sales-`+summary.From+`-`+summary.To+`.xlsx"`)
		if err := WriteSalesWorkbook(w, summary); err != nil && h.logger != nil {
			h.logger.Error("write sales workbook", slog.Any("error", err))
		}
		return
	}
	httpx.OK(w, http.StatusOK, "", summary)
}

func (h *Handler) collections(w http.ResponseWriter, r *http.Request) {
	rng, err := h.dateRange(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := h.service.Collections(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", out)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.StockByGroup(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", out)
}

func (h *Handler) shipments(w http.ResponseWriter, r *http.Request) {
	day, err := httpx.DateQuery(r, "date", h.now().UTC())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := h.service.ShipmentDay(r.Context(), day)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", out)
}
