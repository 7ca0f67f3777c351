package orders

import "time"

// CreateOrderRequest creates an order with optional initial lines.
type CreateOrderRequest struct {
	CustomerID   int64             `json:"customer_id" validate:"required,gt=0"`
	IssueDate    time.Time         `json:"issue_date"`
	DeliveryDate *time.Time        `json:"delivery_date,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
	Lines        []CreateLineInput `json:"lines" validate:"dive"`
}

// CreateLineInput is one requested line on order creation.
type CreateLineInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// ChangeStatusRequest moves an order to a new status. The warehouse is only
// consulted for delivered; when absent the default resolution applies.
type ChangeStatusRequest struct {
	Status       string     `json:"status" validate:"required"`
	WarehouseID  *int64     `json:"warehouse_id,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	ActorID      int64      `json:"-"`
}

// AddLineRequest appends a line to an existing order.
type AddLineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// ListOrdersRequest filters order listings.
type ListOrdersRequest struct {
	CustomerID *int64
	Status     *OrderStatus
	Limit      int
	Offset     int
}

// StatusChangeResponse is the caller-facing result of a status change.
type StatusChangeResponse struct {
	Order    *SalesOrder `json:"order"`
	Warnings []Warning   `json:"warnings"`
}
