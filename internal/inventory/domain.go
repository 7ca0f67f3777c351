package inventory

import (
	"errors"
	"time"
)

// MovementReason classifies why a stock level changed.
type MovementReason string

const (
	// ReasonDelivery marks deductions driven by order delivery.
	ReasonDelivery MovementReason = "delivery"
	// ReasonAdjustment marks manual corrections.
	ReasonAdjustment MovementReason = "adjustment"
	// ReasonInbound marks goods receipt.
	ReasonInbound MovementReason = "inbound"
)

// StockLevel summarises on-hand quantity per product and warehouse.
type StockLevel struct {
	ProductID   int64     `json:"product_id"`
	WarehouseID int64     `json:"warehouse_id"`
	Quantity    float64   `json:"quantity"`
	MinQuantity float64   `json:"min_quantity"`
	MaxQuantity float64   `json:"max_quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StockMovement is the immutable audit record of a level change.
// Delta is always QuantityAfter - QuantityBefore; a floored deduction
// therefore reports the applied delta, not the requested one.
type StockMovement struct {
	ID             string         `json:"id"`
	ProductID      int64          `json:"product_id"`
	WarehouseID    int64          `json:"warehouse_id"`
	QuantityBefore float64        `json:"quantity_before"`
	QuantityAfter  float64        `json:"quantity_after"`
	Delta          float64        `json:"delta"`
	Reason         MovementReason `json:"reason"`
	Reference      string         `json:"reference"`
	ActorID        int64          `json:"actor_id"`
	CreatedAt      time.Time      `json:"created_at"`
}

// DeductionInput describes one delivery deduction.
type DeductionInput struct {
	ProductID   int64
	WarehouseID int64
	Quantity    float64
	Reference   string
	ActorID     int64
}

// AdjustmentInput describes a signed manual stock correction.
type AdjustmentInput struct {
	ProductID   int64
	WarehouseID int64
	Delta       float64
	Reference   string
	ActorID     int64
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID   int64
	WarehouseID int64
	Reference   string
	Limit       int
}

// ErrInvalidQuantity indicates a non-positive deduction quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrMissingKey indicates product or warehouse was not supplied.
var ErrMissingKey = errors.New("inventory: warehouse and product required")
