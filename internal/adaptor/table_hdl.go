package adaptor

import (
	"net/http"

	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TableHandler struct {
	service usecase.TableService
	log     *zap.Logger
}

func NewTableHandler(service usecase.TableService, log *zap.Logger) *TableHandler {
	return &TableHandler{
		service: service,
		log:     log.With(zap.String("handler", "table")),
	}
}

// ListTables handles GET /api/tables?page=1&per_page=10
func (h *TableHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	page := request.PaginatedRequest{
		Page:    utils.ParseInt(r.URL.Query().Get("page"), 1),
		PerPage: utils.ParseInt(r.URL.Query().Get("per_page"), 10),
	}
	if errs := utils.ValidateStruct(page); len(errs) > 0 {
		utils.ResponseBadRequest(w, "Invalid pagination", errs)
		return
	}

	tables, err := h.service.ListTables(r.Context(), page)
	if err != nil {
		handleServiceError(w, h.log, err, "list tables")
		return
	}

	utils.ResponseSuccess(w, "success", tables)
}

// GetTable handles GET /api/tables/{number}
func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	number := utils.ParseInt(chi.URLParam(r, "number"), 0)
	if number <= 0 {
		utils.ResponseBadRequest(w, "Invalid table number", nil)
		return
	}

	table, err := h.service.GetTable(r.Context(), number)
	if err != nil {
		handleServiceError(w, h.log, err, "get table")
		return
	}

	utils.ResponseSuccess(w, "success", table)
}
