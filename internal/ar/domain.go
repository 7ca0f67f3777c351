package ar

import (
	"time"
)

// EntryType classifies ledger entries.
type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
)

// EntryCategory groups ledger entries by business origin.
type EntryCategory string

const (
	// CategorySales is the category for receivables derived from orders.
	// Together with the document number it forms the de-duplication key.
	CategorySales EntryCategory = "sales"
)

// EntryStatus enumerates receivable entry statuses.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusPaid      EntryStatus = "paid"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// ReceivableEntry is a ledger record of money owed by a customer.
type ReceivableEntry struct {
	ID                int64         `json:"id"`
	TransactionNumber string        `json:"transaction_number"`
	DocumentNumber    string        `json:"document_number"`
	Type              EntryType     `json:"type"`
	Category          EntryCategory `json:"category"`
	CustomerID        int64         `json:"customer_id"`
	Amount            float64       `json:"amount"`
	Status            EntryStatus   `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// PostingOrder carries the order fields a receivable is derived from.
type PostingOrder struct {
	Number     string
	CustomerID int64
	TotalValue float64
}

// PostingResult reports the outcome of a posting attempt.
type PostingResult string

const (
	// PostingCreated means a new pending entry was inserted.
	PostingCreated PostingResult = "created"
	// PostingSkippedDuplicate means an entry already covered the document.
	PostingSkippedDuplicate PostingResult = "skipped_duplicate"
	// PostingSkippedZeroValue means nothing is owed, so nothing was posted.
	PostingSkippedZeroValue PostingResult = "skipped_zero_value"
)

// ListFilter narrows receivable listings.
type ListFilter struct {
	DocumentNumber string
	Status         EntryStatus
	Limit          int
}
