package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetLevelForUpdate(ctx context.Context, productID, warehouseID int64) (StockLevel, error)
	UpsertLevel(ctx context.Context, level StockLevel) error
	InsertMovement(ctx context.Context, movement StockMovement) error
}

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetLevelForUpdate locks the level row for the duration of the transaction.
// A missing row is returned as a zero-quantity level, not an error.
func (r *txRepo) GetLevelForUpdate(ctx context.Context, productID, warehouseID int64) (StockLevel, error) {
	level := StockLevel{ProductID: productID, WarehouseID: warehouseID}
	err := r.tx.QueryRow(ctx,
		`SELECT quantity, min_quantity, max_quantity, updated_at
		 FROM stock_levels WHERE product_id = $1 AND warehouse_id = $2 FOR UPDATE`,
		productID, warehouseID,
	).Scan(&level.Quantity, &level.MinQuantity, &level.MaxQuantity, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return level, nil
		}
		return StockLevel{}, err
	}
	return level, nil
}

func (r *txRepo) UpsertLevel(ctx context.Context, level StockLevel) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO stock_levels (product_id, warehouse_id, quantity, min_quantity, max_quantity, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (product_id, warehouse_id)
		 DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		level.ProductID, level.WarehouseID, level.Quantity, level.MinQuantity, level.MaxQuantity,
	)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m StockMovement) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO stock_movements (id, product_id, warehouse_id, quantity_before, quantity_after, delta, reason, reference, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ProductID, m.WarehouseID, m.QuantityBefore, m.QuantityAfter, m.Delta, string(m.Reason), m.Reference, m.ActorID, m.CreatedAt,
	)
	return err
}

// GetLevel reads a stock level outside a transaction.
func (r *Repository) GetLevel(ctx context.Context, productID, warehouseID int64) (StockLevel, error) {
	level := StockLevel{ProductID: productID, WarehouseID: warehouseID}
	err := r.pool.QueryRow(ctx,
		`SELECT quantity, min_quantity, max_quantity, updated_at
		 FROM stock_levels WHERE product_id = $1 AND warehouse_id = $2`,
		productID, warehouseID,
	).Scan(&level.Quantity, &level.MinQuantity, &level.MaxQuantity, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return level, nil
		}
		return StockLevel{}, err
	}
	return level, nil
}

// ListMovements returns movement rows, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	query := `SELECT id, product_id, warehouse_id, quantity_before, quantity_after, delta, reason, reference, actor_id, created_at
		FROM stock_movements WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.ProductID != 0 {
		argCount++
		query += ` AND product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	if filter.WarehouseID != 0 {
		argCount++
		query += ` AND warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.WarehouseID)
	}
	if filter.Reference != "" {
		argCount++
		query += ` AND reference = $` + strconv.Itoa(argCount)
		args = append(args, filter.Reference)
	}

	argCount++
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		var reason string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.QuantityBefore, &m.QuantityAfter, &m.Delta, &reason, &m.Reference, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Reason = MovementReason(reason)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ListBelowMin reports levels under their configured minimum.
func (r *Repository) ListBelowMin(ctx context.Context) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, warehouse_id, quantity, min_quantity, max_quantity, updated_at
		 FROM stock_levels WHERE min_quantity > 0 AND quantity < min_quantity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.ProductID, &l.WarehouseID, &l.Quantity, &l.MinQuantity, &l.MaxQuantity, &l.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}
