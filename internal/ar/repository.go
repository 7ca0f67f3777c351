package ar

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access methods for receivables.
type RepositoryPort interface {
	InsertPendingIfAbsent(ctx context.Context, entry ReceivableEntry) (bool, error)
	FindByDocument(ctx context.Context, documentNumber string, category EntryCategory) ([]ReceivableEntry, error)
	List(ctx context.Context, filter ListFilter) ([]ReceivableEntry, error)
	ListAgedPending(ctx context.Context, cutoff time.Time) ([]ReceivableEntry, error)
}

// Repository persists receivable entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, transaction_number, document_number, entry_type, category, customer_id, amount, status, created_at, updated_at`

// InsertPendingIfAbsent inserts the entry unless one already exists for its
// (document_number, category) pair. The dedup relies on a unique index, so
// concurrent posters race at the database instead of at a read-then-insert
// window; a unique violation reads as "already posted".
func (r *Repository) InsertPendingIfAbsent(ctx context.Context, entry ReceivableEntry) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO ledger_entries (transaction_number, document_number, entry_type, category, customer_id, amount, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (document_number, category) DO NOTHING`,
		entry.TransactionNumber, entry.DocumentNumber, string(entry.Type), string(entry.Category), entry.CustomerID, entry.Amount, string(entry.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindByDocument returns entries matching the dedup key, newest first.
func (r *Repository) FindByDocument(ctx context.Context, documentNumber string, category EntryCategory) ([]ReceivableEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE document_number = $1 AND category = $2
		 ORDER BY created_at DESC LIMIT 50`,
		documentNumber, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// List returns sales receivable entries, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]ReceivableEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE category = 'sales'`
	args := []interface{}{}
	argCount := 0

	if filter.DocumentNumber != "" {
		argCount++
		query += ` AND document_number = $` + strconv.Itoa(argCount)
		args = append(args, filter.DocumentNumber)
	}
	if filter.Status != "" {
		argCount++
		query += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListAgedPending returns pending sales receivables created before cutoff,
// oldest first.
func (r *Repository) ListAgedPending(ctx context.Context, cutoff time.Time) ([]ReceivableEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE category = 'sales' AND status = 'pending' AND created_at < $1
		 ORDER BY created_at ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]ReceivableEntry, error) {
	var entries []ReceivableEntry
	for rows.Next() {
		var e ReceivableEntry
		var entryType, category, status string
		if err := rows.Scan(&e.ID, &e.TransactionNumber, &e.DocumentNumber, &entryType, &category, &e.CustomerID, &e.Amount, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Type = EntryType(entryType)
		e.Category = EntryCategory(category)
		e.Status = EntryStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
