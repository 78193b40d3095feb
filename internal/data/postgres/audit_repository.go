// Package postgres provides the PostgreSQL implementation of the audit store.
// The audit table is append-only: the repository exposes inserts and reads,
// never updates or deletes.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/paylane-ledger/internal/domain/audit"
	"github.com/paylane-ledger/internal/platform/persistence"
)

// AuditRepository implements the audit.Repository interface for PostgreSQL
type AuditRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Append inserts a new audit record. A fresh audit id and creation time are
// assigned if the caller left them unset.
func (r *AuditRepository) Append(ctx context.Context, record *audit.Record) error {
	if record.AuditID == uuid.Nil {
		record.AuditID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_records (audit_id, transaction_id, action_type, query_details, response_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		record.AuditID,
		record.TransactionID,
		record.ActionType,
		record.QueryDetails,
		record.ResponseData,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append audit record",
			"transaction_id", record.TransactionID.String(),
			"action_type", string(record.ActionType),
			"error", err,
		)
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves all audit records for a transaction in
// insertion order
func (r *AuditRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*audit.Record, error) {
	query := `
		SELECT audit_id, transaction_id, action_type, query_details, response_data, created_at
		FROM audit_records
		WHERE transaction_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to get audit records",
			"transaction_id", transactionID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// All retrieves every audit record, used by the archival snapshot job
func (r *AuditRepository) All(ctx context.Context) ([]*audit.Record, error) {
	query := `
		SELECT audit_id, transaction_id, action_type, query_details, response_data, created_at
		FROM audit_records
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to scan audit records", "error", err)
		return nil, fmt.Errorf("failed to scan audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]*audit.Record, error) {
	var records []*audit.Record
	for rows.Next() {
		var record audit.Record
		err := rows.Scan(
			&record.AuditID,
			&record.TransactionID,
			&record.ActionType,
			&record.QueryDetails,
			&record.ResponseData,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit records: %w", err)
	}
	return records, nil
}
