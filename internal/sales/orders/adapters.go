package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/warehouses"
)

// ReceivableAdapter adapts ar.Poster to the ReceivableClient port.
type ReceivableAdapter struct {
	poster *ar.Poster
}

// NewReceivableAdapter creates a new receivable adapter.
func NewReceivableAdapter(poster *ar.Poster) *ReceivableAdapter {
	return &ReceivableAdapter{poster: poster}
}

// Post posts a pending receivable for the order.
func (a *ReceivableAdapter) Post(ctx context.Context, posting ReceivablePosting) (ReceivableOutcome, error) {
	if a.poster == nil {
		return "", fmt.Errorf("receivable poster not initialized")
	}
	result, err := a.poster.PostFromOrder(ctx, ar.PostingOrder{
		Number:     posting.Number,
		CustomerID: posting.CustomerID,
		TotalValue: posting.TotalValue,
	})
	if err != nil {
		return "", err
	}
	switch result {
	case ar.PostingSkippedDuplicate:
		return ReceivableSkippedDuplicate, nil
	case ar.PostingSkippedZeroValue:
		return ReceivableSkippedZero, nil
	default:
		return ReceivableCreated, nil
	}
}

// InventoryAdapter adapts inventory.Service to the InventoryClient port.
type InventoryAdapter struct {
	service *inventory.Service
}

// NewInventoryAdapter creates a new inventory adapter.
func NewInventoryAdapter(service *inventory.Service) *InventoryAdapter {
	return &InventoryAdapter{service: service}
}

// Deduct applies one delivery deduction.
func (a *InventoryAdapter) Deduct(ctx context.Context, deduction StockDeduction) error {
	if a.service == nil {
		return fmt.Errorf("inventory service not initialized")
	}
	_, err := a.service.DeductForDelivery(ctx, inventory.DeductionInput{
		ProductID:   deduction.ProductID,
		WarehouseID: deduction.WarehouseID,
		Quantity:    deduction.Quantity,
		Reference:   deduction.Reference,
		ActorID:     deduction.ActorID,
	})
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	return nil
}

// WarehouseAdapter adapts warehouses.Service to the WarehouseResolver port.
type WarehouseAdapter struct {
	service *warehouses.Service
}

// NewWarehouseAdapter creates a new warehouse adapter.
func NewWarehouseAdapter(service *warehouses.Service) *WarehouseAdapter {
	return &WarehouseAdapter{service: service}
}

// ResolveDefault resolves the warehouse for a delivery.
func (a *WarehouseAdapter) ResolveDefault(ctx context.Context, explicitID *int64) (int64, error) {
	if a.service == nil {
		return 0, fmt.Errorf("warehouse service not initialized")
	}
	id, err := a.service.ResolveDefault(ctx, explicitID)
	if err != nil {
		if errors.Is(err, warehouses.ErrNoActiveWarehouse) {
			return 0, ErrNoActiveWarehouse
		}
		return 0, err
	}
	return id, nil
}
