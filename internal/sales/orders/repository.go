package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

var (
	// ErrNotFound indicates a missing order or line.
	ErrNotFound = errors.New("record not found")
)

// Repository persists sales orders and their lines.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*SalesOrder, error)
	List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, int, error)
	Create(ctx context.Context, order SalesOrder) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	ListLines(ctx context.Context, orderID int64) ([]SalesOrderLine, error)
	InsertLine(ctx context.Context, line SalesOrderLine) (int64, error)
	GetLine(ctx context.Context, lineID int64) (*SalesOrderLine, error)
	DeleteLine(ctx context.Context, lineID int64) error
	RecomputeTotal(ctx context.Context, orderID int64) error
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const orderColumns = `id, number, customer_id, status, total_value, issue_date, delivery_date, notes, created_at, updated_at`

func (r *repository) scanOrder(row pgx.Row) (*SalesOrder, error) {
	var o SalesOrder
	var status string
	err := row.Scan(&o.ID, &o.Number, &o.CustomerID, &status, &o.TotalValue, &o.IssueDate, &o.DeliveryDate, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = OrderStatus(status)
	return &o, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	o, err := r.scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	lines, err := r.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + orderColumns + ` FROM sales_orders` + where +
		` ORDER BY issue_date DESC, id DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []SalesOrder
	for rows.Next() {
		var o SalesOrder
		var status string
		if err := rows.Scan(&o.ID, &o.Number, &o.CustomerID, &status, &o.TotalValue, &o.IssueDate, &o.DeliveryDate, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		o.Status = OrderStatus(status)
		result = append(result, o)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, order SalesOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO sales_orders (number, customer_id, status, total_value, issue_date, delivery_date, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 RETURNING id`,
		order.Number, order.CustomerID, string(order.Status), order.TotalValue, order.IssueDate, order.DeliveryDate, order.Notes,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

var updatableColumns = map[string]bool{
	"status":        true,
	"total_value":   true,
	"delivery_date": true,
	"notes":         true,
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argPos := 1
	for col, val := range updates {
		if !updatableColumns[col] {
			return fmt.Errorf("column %q is not updatable", col)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argPos))
		args = append(args, val)
		argPos++
	}
	args = append(args, id)

	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE sales_orders SET %s WHERE id = $%d`, strings.Join(sets, ", "), argPos),
		args...,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListLines(ctx context.Context, orderID int64) ([]SalesOrderLine, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price, line_total, created_at
		 FROM sales_order_lines WHERE order_id = $1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []SalesOrderLine
	for rows.Next() {
		var l SalesOrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.LineTotal, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) InsertLine(ctx context.Context, line SalesOrderLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO sales_order_lines (order_id, product_id, quantity, unit_price, line_total, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id`,
		line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.Quantity*line.UnitPrice,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) GetLine(ctx context.Context, lineID int64) (*SalesOrderLine, error) {
	var l SalesOrderLine
	err := r.db.QueryRow(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price, line_total, created_at
		 FROM sales_order_lines WHERE id = $1`, lineID).
		Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.LineTotal, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *repository) DeleteLine(ctx context.Context, lineID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sales_order_lines WHERE id = $1`, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecomputeTotal rewrites the denormalized order total from its current
// lines in one statement. A vanished order makes this a no-op.
func (r *repository) RecomputeTotal(ctx context.Context, orderID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sales_orders
		 SET total_value = COALESCE((SELECT SUM(quantity * unit_price) FROM sales_order_lines WHERE order_id = $1), 0),
		     updated_at = NOW()
		 WHERE id = $1`, orderID)
	return err
}

// GenerateNumber produces the next document number for the given year.
func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	prefix := fmt.Sprintf("SO-%d-", date.Year())
	var seq int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) + 1 FROM sales_orders WHERE number LIKE $1`, prefix+"%").Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
