package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the append-only audit store contract. No update or
// delete operation is exposed to the core.
type Repository interface {
	// Append creates a new record. Every call inserts a fresh row.
	Append(ctx context.Context, record *Record) error

	// GetByTransactionID returns all records for a transaction in
	// insertion order. An empty slice means no events were recorded.
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*Record, error)

	// All streams every audit record, used by the archival exporter.
	All(ctx context.Context) ([]*Record, error)
}
