package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/paylane-ledger/internal/domain/payment"
)

const (
	// LedgerCollectionName is the name of the payment ledger collection in MongoDB
	LedgerCollectionName = "payment_ledger"
)

// LedgerRepository implements the payment.LedgerRepository interface for MongoDB
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) payment.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores the initial ledger record after checking for duplicates.
// Returns ErrDuplicateEntry if a record with the same transaction ID exists.
func (r *LedgerRepository) Create(ctx context.Context, txn *payment.Transaction) error {
	collection := r.db.Collection(LedgerCollectionName)

	// Check if a record already exists for this transaction id
	existing, err := r.GetByTransactionID(ctx, txn.TransactionID)
	if err != nil && !errors.Is(err, payment.ErrEntryNotFound{}) {
		r.logger.Error("Failed to check for existing ledger record",
			"transaction_id", txn.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing ledger record: %w", err)
	}

	if existing != nil {
		return payment.ErrDuplicateEntry{TransactionID: txn.TransactionID}
	}

	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	if _, err = collection.InsertOne(ctx, txn); err != nil {
		r.logger.Error("Failed to create ledger record",
			"transaction_id", txn.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create ledger record: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves the current-state record for a transaction.
// Returns ErrEntryNotFound if no record exists.
func (r *LedgerRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*payment.Transaction, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var txn payment.Transaction
	err := collection.FindOne(ctx, filter).Decode(&txn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, payment.ErrEntryNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get ledger record",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}

	return &txn, nil
}

// UpdateStatus overwrites the record's status, response details, and update
// timestamp in place. Returns ErrEntryNotFound if no record exists.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, transactionID uuid.UUID, status payment.Status, details map[string]string) error {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	update := bson.M{
		"$set": bson.M{
			"status":           status,
			"response_details": details,
			"updated_at":       time.Now().UTC(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update ledger record status",
			"transaction_id", transactionID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update ledger record status: %w", err)
	}

	if result.MatchedCount == 0 {
		return payment.ErrEntryNotFound{TransactionID: transactionID}
	}

	return nil
}

// All retrieves every ledger record, used by the archival snapshot job
func (r *LedgerRepository) All(ctx context.Context) ([]*payment.Transaction, error) {
	collection := r.db.Collection(LedgerCollectionName)

	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		r.logger.Error("Failed to scan ledger records", "error", err)
		return nil, fmt.Errorf("failed to scan ledger records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*payment.Transaction
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode ledger records", "error", err)
		return nil, fmt.Errorf("failed to decode ledger records: %w", err)
	}

	return records, nil
}
