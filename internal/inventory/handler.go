package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// ScanEnqueuer submits background low-stock scans.
type ScanEnqueuer interface {
	EnqueueLowStockScan(ctx context.Context) error
}

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	scans   ScanEnqueuer
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, scans ScanEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, scans: scans}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/levels", h.getLevel)
	r.Get("/movements", h.listMovements)
	r.Post("/low-stock-scan", h.enqueueScan)
}

func (h *Handler) getLevel(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if productID == 0 || warehouseID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id and warehouse_id are required")
		return
	}

	level, err := h.service.GetLevel(r.Context(), productID, warehouseID)
	if err != nil {
		h.logger.Error("get stock level failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, level)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	movements, err := h.service.ListMovements(r.Context(), MovementFilter{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Reference:   r.URL.Query().Get("reference"),
		Limit:       limit,
	})
	if err != nil {
		h.logger.Error("list stock movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) enqueueScan(w http.ResponseWriter, r *http.Request) {
	if h.scans == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "background jobs are not configured")
		return
	}
	if err := h.scans.EnqueueLowStockScan(r.Context()); err != nil {
		h.logger.Error("enqueue low stock scan failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}
