package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrNoActiveWarehouse mirrors the resolver failure at this package's
// boundary; the controller downgrades it to a warning.
var ErrNoActiveWarehouse = errors.New("no active warehouse found")

// ReceivablePosting carries the order fields the receivable poster needs.
type ReceivablePosting struct {
	Number     string
	CustomerID int64
	TotalValue float64
}

// ReceivableOutcome reports what the poster did.
type ReceivableOutcome string

const (
	ReceivableCreated          ReceivableOutcome = "created"
	ReceivableSkippedDuplicate ReceivableOutcome = "skipped_duplicate"
	ReceivableSkippedZero      ReceivableOutcome = "skipped_zero_value"
)

// ReceivableClient posts pending receivables for approved orders.
type ReceivableClient interface {
	Post(ctx context.Context, posting ReceivablePosting) (ReceivableOutcome, error)
}

// StockDeduction describes one per-line delivery deduction.
type StockDeduction struct {
	ProductID   int64
	WarehouseID int64
	Quantity    float64
	Reference   string
	ActorID     int64
}

// InventoryClient applies stock deductions.
type InventoryClient interface {
	Deduct(ctx context.Context, deduction StockDeduction) error
}

// WarehouseResolver picks the warehouse for a delivery. It must return
// ErrNoActiveWarehouse when no candidate exists.
type WarehouseResolver interface {
	ResolveDefault(ctx context.Context, explicitID *int64) (int64, error)
}

// Locker serializes concurrent mutations of the same order. A nil locker
// disables request-level serialization; storage guards still apply.
type Locker interface {
	Acquire(ctx context.Context, orderID int64) (func(), error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// WarningCounter records emitted workflow warnings by code.
type WarningCounter interface {
	CountWarning(code string)
}

// Service is the order workflow controller. It persists the requested
// change first and dispatches financial and inventory side effects based on
// the new status; side-effect failures surface as warnings, never as a
// rollback of the committed order write.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	receivables ReceivableClient
	inventory   InventoryClient
	warehouses  WarehouseResolver
	locker      Locker
	audit       AuditPort
	metrics     WarningCounter
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo Repository, receivables ReceivableClient, inventory InventoryClient, warehouses WarehouseResolver) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		receivables: receivables,
		inventory:   inventory,
		warehouses:  warehouses,
	}
}

// SetLocker installs the per-order lock used during status changes.
func (s *Service) SetLocker(locker Locker) {
	s.locker = locker
}

// SetAudit installs the audit logger.
func (s *Service) SetAudit(audit AuditPort) {
	s.audit = audit
}

// SetWarningCounter installs the workflow warning counter.
func (s *Service) SetWarningCounter(metrics WarningCounter) {
	s.metrics = metrics
}

// Create creates a new order with its initial lines. The denormalized total
// is computed from the requested lines before insert.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*SalesOrder, error) {
	if req.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer required", shared.ErrValidation)
	}
	for _, line := range req.Lines {
		if err := validateLine(line.ProductID, line.Quantity, line.UnitPrice); err != nil {
			return nil, err
		}
	}

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now().UTC()
	}

	number, err := s.repo.GenerateNumber(ctx, issueDate)
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}

	var total float64
	for _, line := range req.Lines {
		total += line.Quantity * line.UnitPrice
	}

	order := SalesOrder{
		Number:       number,
		CustomerID:   req.CustomerID,
		Status:       StatusDraft,
		TotalValue:   total,
		IssueDate:    issueDate,
		DeliveryDate: req.DeliveryDate,
		Notes:        req.Notes,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id

		for _, lineReq := range req.Lines {
			line := SalesOrderLine{
				OrderID:   orderID,
				ProductID: lineReq.ProductID,
				Quantity:  lineReq.Quantity,
				UnitPrice: lineReq.UnitPrice,
			}
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, orderID)
}

// SetStatus persists the requested status change and dispatches side
// effects keyed on the new value: approved posts a receivable, delivered
// deducts stock per line. Any status may be set from any other; no
// transition table is enforced.
func (s *Service) SetStatus(ctx context.Context, orderID int64, req ChangeStatusRequest) (*SalesOrder, []Warning, error) {
	status := strings.TrimSpace(req.Status)
	if status == "" {
		return nil, nil, fmt.Errorf("%w: status required", shared.ErrValidation)
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, orderID)
		if err != nil {
			return nil, nil, fmt.Errorf("lock order %d: %w", orderID, err)
		}
		defer release()
	}

	existing, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("get order: %w", err)
	}

	previous := existing.Status

	updates := map[string]interface{}{"status": status}
	if req.DeliveryDate != nil {
		updates["delivery_date"] = *req.DeliveryDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if err := s.repo.Update(ctx, orderID, updates); err != nil {
		return nil, nil, fmt.Errorf("update order: %w", err)
	}
	existing.Status = OrderStatus(status)

	// The order write is committed; everything below is best-effort.
	var warnings []Warning
	switch OrderStatus(status) {
	case StatusApproved:
		warnings = s.postReceivable(ctx, existing)
	case StatusDelivered:
		warnings = s.deductStock(ctx, existing, req)
	}
	if s.metrics != nil {
		for _, warning := range warnings {
			s.metrics.CountWarning(warning.Code)
		}
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  req.ActorID,
			Action:   "sales:status_change",
			Entity:   "sales_order",
			EntityID: existing.Number,
			Meta: map[string]any{
				"from":     string(previous),
				"to":       status,
				"warnings": len(warnings),
			},
		})
	}

	updated, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, warnings, fmt.Errorf("reload order: %w", err)
	}
	return updated, warnings, nil
}

func (s *Service) postReceivable(ctx context.Context, order *SalesOrder) []Warning {
	if s.receivables == nil {
		return nil
	}
	outcome, err := s.receivables.Post(ctx, ReceivablePosting{
		Number:     order.Number,
		CustomerID: order.CustomerID,
		TotalValue: order.TotalValue,
	})
	if err != nil {
		s.logger.Error("receivable posting failed", slog.String("order", order.Number), slog.Any("error", err))
		return []Warning{{
			Code:    WarnPostingFailed,
			Message: fmt.Sprintf("receivable for order %s was not posted: %v", order.Number, err),
		}}
	}
	if outcome == ReceivableSkippedDuplicate {
		return []Warning{{
			Code:    WarnDuplicatePosting,
			Message: fmt.Sprintf("a receivable for order %s already exists, duplicate posting avoided", order.Number),
		}}
	}
	return nil
}

func (s *Service) deductStock(ctx context.Context, order *SalesOrder, req ChangeStatusRequest) []Warning {
	if s.inventory == nil || s.warehouses == nil {
		return nil
	}

	warehouseID, err := s.warehouses.ResolveDefault(ctx, req.WarehouseID)
	if err != nil {
		if errors.Is(err, ErrNoActiveWarehouse) {
			return []Warning{{
				Code:    WarnNoActiveWarehouse,
				Message: "no active warehouse found, stock not adjusted",
			}}
		}
		s.logger.Error("warehouse resolution failed", slog.String("order", order.Number), slog.Any("error", err))
		return []Warning{{
			Code:    WarnDeductionFailed,
			Message: fmt.Sprintf("warehouse resolution failed, stock not adjusted: %v", err),
		}}
	}

	// One deduction per line. Lines touch disjoint (product, warehouse)
	// keys so they run concurrently; one failed line never stops the rest,
	// and all are awaited before the response is assembled.
	var (
		mu       sync.Mutex
		warnings []Warning
	)
	g := new(errgroup.Group)
	g.SetLimit(4)
	for _, line := range order.Lines {
		g.Go(func() error {
			err := s.inventory.Deduct(ctx, StockDeduction{
				ProductID:   line.ProductID,
				WarehouseID: warehouseID,
				Quantity:    line.Quantity,
				Reference:   order.Number,
				ActorID:     req.ActorID,
			})
			if err != nil {
				s.logger.Error("stock deduction failed",
					slog.String("order", order.Number),
					slog.Int64("product_id", line.ProductID),
					slog.Any("error", err))
				mu.Lock()
				warnings = append(warnings, Warning{
					Code:    WarnDeductionFailed,
					Message: fmt.Sprintf("stock for product %d was not deducted: %v", line.ProductID, err),
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return warnings
}

// AddLine appends a line and recomputes the parent's denormalized total in
// the same transaction.
func (s *Service) AddLine(ctx context.Context, orderID int64, req AddLineRequest) (*SalesOrder, error) {
	if err := validateLine(req.ProductID, req.Quantity, req.UnitPrice); err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, orderID); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		line := SalesOrderLine{
			OrderID:   orderID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
		}
		if _, err := repo.InsertLine(ctx, line); err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
		return repo.RecomputeTotal(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, orderID)
}

// RemoveLine deletes a line and recomputes the parent's total in the same
// transaction.
func (s *Service) RemoveLine(ctx context.Context, lineID int64) (*SalesOrder, error) {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("get line: %w", err)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteLine(ctx, lineID); err != nil {
			return fmt.Errorf("delete line: %w", err)
		}
		return repo.RecomputeTotal(ctx, line.OrderID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, line.OrderID)
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of orders.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, int, error) {
	return s.repo.List(ctx, req)
}

func validateLine(productID int64, quantity, unitPrice float64) error {
	if productID <= 0 {
		return fmt.Errorf("%w: product required", shared.ErrValidation)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if unitPrice < 0 {
		return fmt.Errorf("%w: unit price must not be negative", shared.ErrValidation)
	}
	return nil
}
