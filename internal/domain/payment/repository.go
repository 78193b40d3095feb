package payment

import (
	"context"

	"github.com/google/uuid"
)

// LedgerRepository manages the mutable current-state record per transaction.
// Writes are overwrite-in-place; records are never deleted by the core.
type LedgerRepository interface {
	// Create stores the initial record. Returns ErrDuplicateEntry if a
	// record already exists for the transaction id.
	Create(ctx context.Context, txn *Transaction) error

	// GetByTransactionID returns ErrEntryNotFound if no record exists.
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)

	// UpdateStatus overwrites the status and response details of an
	// existing record. Returns ErrEntryNotFound if no record exists.
	UpdateStatus(ctx context.Context, transactionID uuid.UUID, status Status, details map[string]string) error

	// All streams every ledger record, used by the archival exporter.
	All(ctx context.Context) ([]*Transaction, error)
}

// ErrEntryNotFound indicates a missing ledger record
type ErrEntryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger record not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// A target with an empty TransactionID matches any ErrEntryNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateEntry indicates a transaction id uniqueness violation
type ErrDuplicateEntry struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger record: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
