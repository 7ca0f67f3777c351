package inventory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLevel(ctx context.Context, productID, warehouseID int64) (StockLevel, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
	ListBelowMin(ctx context.Context) ([]StockLevel, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// DeductForDelivery applies one delivery deduction against a stock level.
// The new quantity floors at zero: over-delivery under-deducts instead of
// erroring, and the movement records the applied delta. Level update and
// movement insert share one transaction so no deduction can commit without
// its audit row.
func (s *Service) DeductForDelivery(ctx context.Context, input DeductionInput) (StockMovement, error) {
	if input.ProductID == 0 || input.WarehouseID == 0 {
		return StockMovement{}, ErrMissingKey
	}
	if input.Quantity <= 0 {
		return StockMovement{}, ErrInvalidQuantity
	}
	return s.applyChange(ctx, input.ProductID, input.WarehouseID, -input.Quantity, ReasonDelivery, input.Reference, input.ActorID)
}

// PostAdjustment applies a signed manual correction. Negative adjustments
// floor at zero like deductions.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (StockMovement, error) {
	if input.ProductID == 0 || input.WarehouseID == 0 {
		return StockMovement{}, ErrMissingKey
	}
	if math.Abs(input.Delta) < 1e-9 {
		return StockMovement{}, ErrInvalidQuantity
	}
	return s.applyChange(ctx, input.ProductID, input.WarehouseID, input.Delta, ReasonAdjustment, input.Reference, input.ActorID)
}

func (s *Service) applyChange(ctx context.Context, productID, warehouseID int64, change float64, reason MovementReason, reference string, actorID int64) (StockMovement, error) {
	var movement StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		level, err := tx.GetLevelForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return err
		}

		before := level.Quantity
		after := before + change
		if after < 0 {
			after = 0
		}

		level.Quantity = after
		if err := tx.UpsertLevel(ctx, level); err != nil {
			return fmt.Errorf("upsert stock level: %w", err)
		}

		movement = StockMovement{
			ID:             uuid.NewString(),
			ProductID:      productID,
			WarehouseID:    warehouseID,
			QuantityBefore: before,
			QuantityAfter:  after,
			Delta:          after - before,
			Reason:         reason,
			Reference:      reference,
			ActorID:        actorID,
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return StockMovement{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   fmt.Sprintf("inventory:%s", reason),
			Entity:   "stock_movement",
			EntityID: movement.ID,
			Meta: map[string]any{
				"warehouse_id": warehouseID,
				"product_id":   productID,
				"delta":        movement.Delta,
				"reference":    reference,
			},
		})
	}
	return movement, nil
}

// GetLevel returns the stock level for a product/warehouse pair.
// A missing row reads as quantity zero.
func (s *Service) GetLevel(ctx context.Context, productID, warehouseID int64) (StockLevel, error) {
	if productID == 0 || warehouseID == 0 {
		return StockLevel{}, ErrMissingKey
	}
	return s.repo.GetLevel(ctx, productID, warehouseID)
}

// ListMovements lists the movement audit trail.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 200
	}
	return s.repo.ListMovements(ctx, filter)
}

// ListBelowMin reports levels that fell under their minimum quantity.
func (s *Service) ListBelowMin(ctx context.Context) ([]StockLevel, error) {
	return s.repo.ListBelowMin(ctx)
}
