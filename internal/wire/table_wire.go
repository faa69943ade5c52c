package wire

import (
	"restaurant-ops/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireTable(r chi.Router, tableHandler *adaptor.TableHandler, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/tables - floor plan with current holders
	r.Get("/api/tables", tableHandler.ListTables)

	// GET /api/tables/{number}
	r.Get("/api/tables/{number}", tableHandler.GetTable)
}
