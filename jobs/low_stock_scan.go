package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
)

// LowStockScanJob sweeps stock levels for quantities under their minimum.
type LowStockScanJob struct {
	Inventory *inventory.Service
	Logger    *slog.Logger
}

// NewLowStockScanJob initialises the low stock scan handler.
func NewLowStockScanJob(inv *inventory.Service, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Inventory: inv, Logger: logger}
}

// Handle executes one low stock sweep.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	levels, err := j.Inventory.ListBelowMin(ctx)
	if err != nil {
		j.logger().Error("low stock scan failed", slog.Any("error", err))
		return err
	}
	if payload.Limit > 0 && len(levels) > payload.Limit {
		levels = levels[:payload.Limit]
	}

	for _, level := range levels {
		j.logger().Warn("stock below minimum",
			slog.Int64("product_id", level.ProductID),
			slog.Int64("warehouse_id", level.WarehouseID),
			slog.Float64("quantity", level.Quantity),
			slog.Float64("min_quantity", level.MinQuantity),
		)
	}
	j.logger().Info("low stock scan finished", slog.Int("flagged", len(levels)))
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
