package orders

import "time"

// OrderStatus is the lifecycle state of a sales order. The set below is the
// conventional lifecycle, but the column is not an enforced enum: any status
// value may be written from any other, and operators rely on that to correct
// mis-set orders. Side effects key off the new value only.
type OrderStatus string

const (
	StatusDraft         OrderStatus = "draft"
	StatusPending       OrderStatus = "pending"
	StatusApproved      OrderStatus = "approved"
	StatusInPreparation OrderStatus = "in_preparation"
	StatusShipped       OrderStatus = "shipped"
	StatusDelivered     OrderStatus = "delivered"
	StatusCancelled     OrderStatus = "cancelled"
)

// SalesOrder is a customer order tracked through the status lifecycle.
// TotalValue is denormalized and recomputed after every line mutation.
type SalesOrder struct {
	ID           int64            `json:"id"`
	Number       string           `json:"number"`
	CustomerID   int64            `json:"customer_id"`
	Status       OrderStatus      `json:"status"`
	TotalValue   float64          `json:"total_value"`
	IssueDate    time.Time        `json:"issue_date"`
	DeliveryDate *time.Time       `json:"delivery_date,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Lines        []SalesOrderLine `json:"lines,omitempty"`
}

// SalesOrderLine is one item/quantity/price row belonging to an order.
type SalesOrderLine struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	ProductID int64     `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
	CreatedAt time.Time `json:"created_at"`
}

// Warning reports a non-fatal follow-on failure of a status change. The
// primary order write has already committed when a warning is produced.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnNoActiveWarehouse = "no_active_warehouse"
	WarnDuplicatePosting  = "duplicate_posting_avoided"
	WarnPostingFailed     = "receivable_posting_failed"
	WarnDeductionFailed   = "stock_deduction_failed"
)
