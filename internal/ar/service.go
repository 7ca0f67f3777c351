package ar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMissingDocument indicates the order has no document number to post under.
var ErrMissingDocument = errors.New("ar: order number required")

// Poster derives pending receivable entries from approved orders.
type Poster struct {
	repo RepositoryPort
}

// NewPoster builds Poster instance.
func NewPoster(repo RepositoryPort) *Poster {
	return &Poster{repo: repo}
}

// PostFromOrder creates the pending receivable for an approved order.
// Posting is idempotent per (document_number, category): repeated approvals
// of the same order leave exactly one entry. Orders with nothing owed are
// skipped without an insert.
func (p *Poster) PostFromOrder(ctx context.Context, order PostingOrder) (PostingResult, error) {
	if order.Number == "" {
		return "", ErrMissingDocument
	}
	if order.TotalValue <= 0 {
		return PostingSkippedZeroValue, nil
	}

	entry := ReceivableEntry{
		TransactionNumber: fmt.Sprintf("AR-%s", order.Number),
		DocumentNumber:    order.Number,
		Type:              EntryTypeIncome,
		Category:          CategorySales,
		CustomerID:        order.CustomerID,
		Amount:            order.TotalValue,
		Status:            EntryStatusPending,
	}

	created, err := p.repo.InsertPendingIfAbsent(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("insert receivable: %w", err)
	}
	if !created {
		return PostingSkippedDuplicate, nil
	}
	return PostingCreated, nil
}

// List returns receivable entries.
func (p *Poster) List(ctx context.Context, filter ListFilter) ([]ReceivableEntry, error) {
	return p.repo.List(ctx, filter)
}

// FindByDocument returns entries for one document number.
func (p *Poster) FindByDocument(ctx context.Context, documentNumber string) ([]ReceivableEntry, error) {
	if documentNumber == "" {
		return nil, ErrMissingDocument
	}
	return p.repo.FindByDocument(ctx, documentNumber, CategorySales)
}

// ListAgedPending returns pending entries created before cutoff.
func (p *Poster) ListAgedPending(ctx context.Context, cutoff time.Time) ([]ReceivableEntry, error) {
	return p.repo.ListAgedPending(ctx, cutoff)
}
