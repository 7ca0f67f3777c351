package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu        sync.Mutex
	orders    map[int64]SalesOrder
	lines     map[int64]SalesOrderLine
	nextOrder int64
	nextLine  int64
	numberSeq int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders: make(map[int64]SalesOrder),
		lines:  make(map[int64]SalesOrderLine),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Lines = r.linesOf(id)
	return &o, nil
}

func (r *memoryRepo) linesOf(orderID int64) []SalesOrderLine {
	var result []SalesOrderLine
	for _, l := range r.lines {
		if l.OrderID == orderID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r *memoryRepo) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []SalesOrder
	for _, o := range r.orders {
		result = append(result, o)
	}
	return result, len(result), nil
}

func (r *memoryRepo) Create(ctx context.Context, order SalesOrder) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextOrder++
	order.ID = r.nextOrder
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = order
	return order.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	for col, val := range updates {
		switch col {
		case "status":
			o.Status = OrderStatus(val.(string))
		case "total_value":
			o.TotalValue = val.(float64)
		case "delivery_date":
			d := val.(time.Time)
			o.DeliveryDate = &d
		case "notes":
			n := val.(string)
			o.Notes = &n
		}
	}
	o.UpdatedAt = time.Now()
	r.orders[id] = o
	return nil
}

func (r *memoryRepo) ListLines(ctx context.Context, orderID int64) ([]SalesOrderLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.linesOf(orderID), nil
}

func (r *memoryRepo) InsertLine(ctx context.Context, line SalesOrderLine) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextLine++
	line.ID = r.nextLine
	line.LineTotal = line.Quantity * line.UnitPrice
	line.CreatedAt = time.Now()
	r.lines[line.ID] = line
	return line.ID, nil
}

func (r *memoryRepo) GetLine(ctx context.Context, lineID int64) (*SalesOrderLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lines[lineID]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (r *memoryRepo) DeleteLine(ctx context.Context, lineID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lines[lineID]; !ok {
		return ErrNotFound
	}
	delete(r.lines, lineID)
	return nil
}

func (r *memoryRepo) RecomputeTotal(ctx context.Context, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil
	}
	var total float64
	for _, l := range r.linesOf(orderID) {
		total += l.Quantity * l.UnitPrice
	}
	o.TotalValue = total
	r.orders[orderID] = o
	return nil
}

func (r *memoryRepo) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numberSeq++
	return fmt.Sprintf("SO-%d-%04d", date.Year(), r.numberSeq), nil
}

// fakeReceivables mimics the poster's dedup on document number.
type fakeReceivables struct {
	mu     sync.Mutex
	posted map[string]float64
	err    error
}

func newFakeReceivables() *fakeReceivables {
	return &fakeReceivables{posted: make(map[string]float64)}
}

func (f *fakeReceivables) Post(ctx context.Context, posting ReceivablePosting) (ReceivableOutcome, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if posting.TotalValue <= 0 {
		return ReceivableSkippedZero, nil
	}
	if _, ok := f.posted[posting.Number]; ok {
		return ReceivableSkippedDuplicate, nil
	}
	f.posted[posting.Number] = posting.TotalValue
	return ReceivableCreated, nil
}

// fakeInventory applies floor-at-zero deductions against an in-memory level map.
type fakeInventory struct {
	mu         sync.Mutex
	levels     map[string]float64
	deductions []StockDeduction
	failFor    int64
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{levels: make(map[string]float64)}
}

func (f *fakeInventory) set(productID, warehouseID int64, qty float64) {
	f.levels[fmt.Sprintf("%d:%d", productID, warehouseID)] = qty
}

func (f *fakeInventory) level(productID, warehouseID int64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[fmt.Sprintf("%d:%d", productID, warehouseID)]
}

func (f *fakeInventory) Deduct(ctx context.Context, d StockDeduction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor != 0 && d.ProductID == f.failFor {
		return errors.New("storage unavailable")
	}
	key := fmt.Sprintf("%d:%d", d.ProductID, d.WarehouseID)
	current := f.levels[key]
	next := current - d.Quantity
	if next < 0 {
		next = 0
	}
	f.levels[key] = next
	f.deductions = append(f.deductions, d)
	return nil
}

type fakeResolver struct {
	id  int64
	err error
}

func (f *fakeResolver) ResolveDefault(ctx context.Context, explicitID *int64) (int64, error) {
	if explicitID != nil && *explicitID > 0 {
		return *explicitID, nil
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.id, nil
}

func newTestService(repo Repository, receivables ReceivableClient, inv InventoryClient, resolver WarehouseResolver) *Service {
	return NewService(slog.Default(), repo, receivables, inv, resolver)
}

func createOrder(t *testing.T, svc *Service, lines ...CreateLineInput) *SalesOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateOrderRequest{CustomerID: 1, Lines: lines})
	require.NoError(t, err)
	return order
}

func TestApproveTwicePostsOneReceivable(t *testing.T) {
	repo := newMemoryRepo()
	receivables := newFakeReceivables()
	svc := newTestService(repo, receivables, newFakeInventory(), &fakeResolver{id: 1})
	ctx := context.Background()

	order := createOrder(t, svc, CreateLineInput{ProductID: 1, Quantity: 2, UnitPrice: 100})

	_, warnings, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "approved"})
	require.NoError(t, err)
	require.Empty(t, warnings)

	_, warnings, err = svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "approved"})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnDuplicatePosting, warnings[0].Code)

	require.Len(t, receivables.posted, 1)
	require.InDelta(t, 200.0, receivables.posted[order.Number], 0.0001)
}

func TestApproveZeroValueSkipsReceivable(t *testing.T) {
	repo := newMemoryRepo()
	receivables := newFakeReceivables()
	svc := newTestService(repo, receivables, newFakeInventory(), &fakeResolver{id: 1})

	order := createOrder(t, svc)

	_, warnings, err := svc.SetStatus(context.Background(), order.ID, ChangeStatusRequest{Status: "approved"})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Empty(t, receivables.posted)
}

func TestReceivableFailureIsWarningNotError(t *testing.T) {
	repo := newMemoryRepo()
	receivables := newFakeReceivables()
	receivables.err = errors.New("ledger down")
	svc := newTestService(repo, receivables, newFakeInventory(), &fakeResolver{id: 1})

	order := createOrder(t, svc, CreateLineInput{ProductID: 1, Quantity: 1, UnitPrice: 50})

	updated, warnings, err := svc.SetStatus(context.Background(), order.ID, ChangeStatusRequest{Status: "approved"})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, updated.Status)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnPostingFailed, warnings[0].Code)
}

func TestDeliveredDeductsEachLine(t *testing.T) {
	repo := newMemoryRepo()
	inv := newFakeInventory()
	inv.set(1, 10, 20)
	inv.set(2, 10, 20)
	svc := newTestService(repo, newFakeReceivables(), inv, &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc,
		CreateLineInput{ProductID: 1, Quantity: 4, UnitPrice: 10},
		CreateLineInput{ProductID: 2, Quantity: 6, UnitPrice: 10},
	)

	updated, warnings, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "delivered"})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, StatusDelivered, updated.Status)

	require.InDelta(t, 16.0, inv.level(1, 10), 0.0001)
	require.InDelta(t, 14.0, inv.level(2, 10), 0.0001)
	require.Len(t, inv.deductions, 2)
	for _, d := range inv.deductions {
		require.Equal(t, order.Number, d.Reference)
		require.Equal(t, int64(10), d.WarehouseID)
	}
}

func TestDeliveredTwiceDeductsTwice(t *testing.T) {
	repo := newMemoryRepo()
	inv := newFakeInventory()
	inv.set(1, 10, 10)
	svc := newTestService(repo, newFakeReceivables(), inv, &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc, CreateLineInput{ProductID: 1, Quantity: 5, UnitPrice: 10})

	_, _, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "delivered"})
	require.NoError(t, err)
	_, _, err = svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "delivered"})
	require.NoError(t, err)

	// No idempotency guard on delivery: both calls deduct.
	require.InDelta(t, 0.0, inv.level(1, 10), 0.0001)
	require.Len(t, inv.deductions, 2)
}

func TestDeliveredExplicitWarehouseWins(t *testing.T) {
	repo := newMemoryRepo()
	inv := newFakeInventory()
	inv.set(1, 99, 10)
	svc := newTestService(repo, newFakeReceivables(), inv, &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc, CreateLineInput{ProductID: 1, Quantity: 3, UnitPrice: 10})

	explicit := int64(99)
	_, warnings, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "delivered", WarehouseID: &explicit})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.InDelta(t, 7.0, inv.level(1, 99), 0.0001)
}

func TestDeliveredNoWarehouseWarnsWithoutRollback(t *testing.T) {
	repo := newMemoryRepo()
	inv := newFakeInventory()
	svc := newTestService(repo, newFakeReceivables(), inv, &fakeResolver{err: ErrNoActiveWarehouse})
	ctx := context.Background()

	order := createOrder(t, svc, CreateLineInput{ProductID: 1, Quantity: 5, UnitPrice: 10})

	updated, warnings, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "delivered"})
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, updated.Status)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnNoActiveWarehouse, warnings[0].Code)
	require.Empty(t, inv.deductions)
}

func TestDeductionFailureDoesNotStopOtherLines(t *testing.T) {
	repo := newMemoryRepo()
	inv := newFakeInventory()
	inv.set(1, 10, 20)
	inv.set(2, 10, 20)
	inv.failFor = 1
	svc := newTestService(repo, newFakeReceivables(), inv, &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc,
		CreateLineInput{ProductID: 1, Quantity: 4, UnitPrice: 10},
		CreateLineInput{ProductID: 2, Quantity: 6, UnitPrice: 10},
	)

	updated, warnings, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "delivered"})
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, updated.Status)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnDeductionFailed, warnings[0].Code)
	require.InDelta(t, 14.0, inv.level(2, 10), 0.0001)
}

func TestOtherStatusesHaveNoSideEffects(t *testing.T) {
	repo := newMemoryRepo()
	receivables := newFakeReceivables()
	inv := newFakeInventory()
	svc := newTestService(repo, receivables, inv, &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc, CreateLineInput{ProductID: 1, Quantity: 5, UnitPrice: 10})

	for _, status := range []string{"pending", "in_preparation", "shipped", "cancelled", "draft"} {
		_, warnings, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: status})
		require.NoError(t, err)
		require.Empty(t, warnings)
	}
	require.Empty(t, receivables.posted)
	require.Empty(t, inv.deductions)
}

func TestStatusTransitionsAreUnrestricted(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeReceivables(), newFakeInventory(), &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc, CreateLineInput{ProductID: 1, Quantity: 1, UnitPrice: 1})

	// Operators correct mis-set statuses; no transition table blocks them.
	updated, _, err := svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "delivered"})
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, updated.Status)

	updated, _, err = svc.SetStatus(ctx, order.ID, ChangeStatusRequest{Status: "draft"})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, updated.Status)
}

func TestSetStatusValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeReceivables(), newFakeInventory(), &fakeResolver{id: 10})

	_, _, err := svc.SetStatus(context.Background(), 1, ChangeStatusRequest{Status: "  "})
	require.Error(t, err)

	_, _, err = svc.SetStatus(context.Background(), 404, ChangeStatusRequest{Status: "approved"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTotalValueTracksLineMutations(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeReceivables(), newFakeInventory(), &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc)
	require.InDelta(t, 0.0, order.TotalValue, 0.0001)

	order, err := svc.AddLine(ctx, order.ID, AddLineRequest{ProductID: 1, Quantity: 2, UnitPrice: 100})
	require.NoError(t, err)
	require.InDelta(t, 200.0, order.TotalValue, 0.0001)

	order, err = svc.AddLine(ctx, order.ID, AddLineRequest{ProductID: 2, Quantity: 3, UnitPrice: 50})
	require.NoError(t, err)
	require.InDelta(t, 350.0, order.TotalValue, 0.0001)

	order, err = svc.RemoveLine(ctx, order.Lines[0].ID)
	require.NoError(t, err)
	require.InDelta(t, 150.0, order.TotalValue, 0.0001)

	order, err = svc.RemoveLine(ctx, order.Lines[0].ID)
	require.NoError(t, err)
	require.InDelta(t, 0.0, order.TotalValue, 0.0001)
}

func TestAddLineValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeReceivables(), newFakeInventory(), &fakeResolver{id: 10})
	ctx := context.Background()

	order := createOrder(t, svc)

	_, err := svc.AddLine(ctx, order.ID, AddLineRequest{ProductID: 1, Quantity: -5, UnitPrice: 10})
	require.Error(t, err)

	_, err = svc.AddLine(ctx, order.ID, AddLineRequest{ProductID: 1, Quantity: 1, UnitPrice: -1})
	require.Error(t, err)

	_, err = svc.AddLine(ctx, 404, AddLineRequest{ProductID: 1, Quantity: 1, UnitPrice: 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveLineNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newFakeReceivables(), newFakeInventory(), &fakeResolver{id: 10})

	_, err := svc.RemoveLine(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}
