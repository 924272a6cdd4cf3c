package catalog

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/odyssey-erp/orderflow/internal/platform/httpx"
	"github.com/odyssey-erp/orderflow/internal/rbac"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

const maxImportBytes = 10 << 20

// Handler exposes catalog endpoints.
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
	_, _, limit, offset := shared.PageParams(r.URL.Query())
	groups, err := h.service.ListGrouped(r.Context(), ListFilter{
		Search: r.URL.Query().Get("q"),
		Family: r.URL.Query().Get("family"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", groups)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	p, err := h.service.Create(r.Context(), principal.ID, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "product created", p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var input ProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	p, err := h.service.Update(r.Context(), principal.ID, id, input)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "product updated", p)
}

type variantsRequest struct {
	Attributes []Attribute `json:"attributes"`
}

func (h *Handler) variants(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req variantsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	variants, err := h.service.CreateVariants(r.Context(), principal.ID, id, req.Attributes)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "variants created", variants)
}

func (h *Handler) importProducts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("file", "multipart upload required"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, h.logger, shared.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var src BulkImportSource
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		src = ExcelSource{Reader: bytes.NewReader(content)}
	case ".csv":
		src = CSVSource{Reader: bytes.NewReader(content)}
	default:
		httpx.RespondError(w, h.logger, shared.NewValidationError("file", "must be .xlsx or .csv"))
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	result, err := h.service.Import(r.Context(), principal.ID, src)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("catalog import", slog.Int("total", result.Total), slog.Int("inserted", result.Inserted), slog.Int("failed", result.Failed))
	httpx.OK(w, http.StatusOK, "import processed", result)
}
