package ar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	entries []ReceivableEntry
	nextID  int64
}

func (r *memoryRepo) InsertPendingIfAbsent(ctx context.Context, entry ReceivableEntry) (bool, error) {
	for _, e := range r.entries {
		if e.DocumentNumber == entry.DocumentNumber && e.Category == entry.Category {
			return false, nil
		}
	}
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, entry)
	return true, nil
}

func (r *memoryRepo) FindByDocument(ctx context.Context, documentNumber string, category EntryCategory) ([]ReceivableEntry, error) {
	var result []ReceivableEntry
	for _, e := range r.entries {
		if e.DocumentNumber == documentNumber && e.Category == category {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]ReceivableEntry, error) {
	if filter.DocumentNumber != "" {
		return r.FindByDocument(ctx, filter.DocumentNumber, CategorySales)
	}
	result := make([]ReceivableEntry, len(r.entries))
	copy(result, r.entries)
	return result, nil
}

func (r *memoryRepo) ListAgedPending(ctx context.Context, cutoff time.Time) ([]ReceivableEntry, error) {
	var result []ReceivableEntry
	for _, e := range r.entries {
		if e.Status == EntryStatusPending && e.CreatedAt.Before(cutoff) {
			result = append(result, e)
		}
	}
	return result, nil
}

func TestPostFromOrderCreatesPendingEntry(t *testing.T) {
	repo := &memoryRepo{}
	poster := NewPoster(repo)
	ctx := context.Background()

	result, err := poster.PostFromOrder(ctx, PostingOrder{Number: "SO-2024-0001", CustomerID: 7, TotalValue: 1250})
	require.NoError(t, err)
	require.Equal(t, PostingCreated, result)

	entries, err := poster.FindByDocument(ctx, "SO-2024-0001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "AR-SO-2024-0001", entries[0].TransactionNumber)
	require.Equal(t, EntryTypeIncome, entries[0].Type)
	require.Equal(t, CategorySales, entries[0].Category)
	require.Equal(t, EntryStatusPending, entries[0].Status)
	require.InDelta(t, 1250.0, entries[0].Amount, 0.0001)
}

func TestPostFromOrderIsIdempotent(t *testing.T) {
	repo := &memoryRepo{}
	poster := NewPoster(repo)
	ctx := context.Background()

	order := PostingOrder{Number: "SO-2024-0002", CustomerID: 7, TotalValue: 300}

	result, err := poster.PostFromOrder(ctx, order)
	require.NoError(t, err)
	require.Equal(t, PostingCreated, result)

	result, err = poster.PostFromOrder(ctx, order)
	require.NoError(t, err)
	require.Equal(t, PostingSkippedDuplicate, result)

	entries, err := poster.FindByDocument(ctx, "SO-2024-0002")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestPostFromOrderSkipsZeroValue(t *testing.T) {
	repo := &memoryRepo{}
	poster := NewPoster(repo)
	ctx := context.Background()

	result, err := poster.PostFromOrder(ctx, PostingOrder{Number: "SO-2024-0003", CustomerID: 7})
	require.NoError(t, err)
	require.Equal(t, PostingSkippedZeroValue, result)

	entries, err := poster.FindByDocument(ctx, "SO-2024-0003")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPostFromOrderRequiresNumber(t *testing.T) {
	poster := NewPoster(&memoryRepo{})

	_, err := poster.PostFromOrder(context.Background(), PostingOrder{TotalValue: 10})
	require.ErrorIs(t, err, ErrMissingDocument)
}

func TestFindByDocumentFiltersCategory(t *testing.T) {
	repo := &memoryRepo{}
	poster := NewPoster(repo)
	ctx := context.Background()

	// Same document number posted under a different category must not
	// surface through the sales lookup.
	_, err := repo.InsertPendingIfAbsent(ctx, ReceivableEntry{
		TransactionNumber: "AP-SO-2024-0004",
		DocumentNumber:    "SO-2024-0004",
		Type:              EntryTypeExpense,
		Category:          EntryCategory("purchases"),
		Amount:            90,
		Status:            EntryStatusPending,
	})
	require.NoError(t, err)

	_, err = poster.PostFromOrder(ctx, PostingOrder{Number: "SO-2024-0004", CustomerID: 7, TotalValue: 450})
	require.NoError(t, err)

	entries, err := poster.FindByDocument(ctx, "SO-2024-0004")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, CategorySales, entries[0].Category)
	require.Equal(t, "AR-SO-2024-0004", entries[0].TransactionNumber)
}

func TestListAgedPendingHonorsCutoff(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &memoryRepo{entries: []ReceivableEntry{
		{ID: 1, DocumentNumber: "SO-2026-0001", Status: EntryStatusPending, CreatedAt: now.AddDate(0, 0, -45)},
		{ID: 2, DocumentNumber: "SO-2026-0002", Status: EntryStatusPending, CreatedAt: now.AddDate(0, 0, -5)},
		{ID: 3, DocumentNumber: "SO-2026-0003", Status: EntryStatusPaid, CreatedAt: now.AddDate(0, 0, -45)},
	}}
	poster := NewPoster(repo)

	entries, err := poster.ListAgedPending(context.Background(), now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "SO-2026-0001", entries[0].DocumentNumber)
}
