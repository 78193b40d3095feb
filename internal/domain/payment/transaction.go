package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount      = errors.New("amount must be a positive decimal")
	ErrMissingProcessor   = errors.New("processor id is required")
	ErrMissingProcessType = errors.New("process type is required")
)

// Transaction is the single current-state ledger record for a payment.
// Status and ResponseDetails are the only fields mutated after creation.
type Transaction struct {
	TransactionID   uuid.UUID         `json:"transaction_id" bson:"transaction_id"`
	Amount          decimal.Decimal   `json:"amount" bson:"amount"`
	ProcessorID     string            `json:"processor_id" bson:"processor_id"`
	ProcessType     string            `json:"process_type" bson:"process_type"`
	Source          string            `json:"source,omitempty" bson:"source,omitempty"`
	Status          Status            `json:"status" bson:"status"`
	ResponseDetails map[string]string `json:"response_details,omitempty" bson:"response_details,omitempty"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" bson:"updated_at"`
}

// Validate checks the caller-supplied fields before any side effect is taken.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.ProcessorID == "" {
		return ErrMissingProcessor
	}
	if t.ProcessType == "" {
		return ErrMissingProcessType
	}
	return nil
}
