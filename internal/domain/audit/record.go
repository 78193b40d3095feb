package audit

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies an audit event
type ActionType string

const (
	ActionPaymentSuccess ActionType = "PAYMENT-SUCCESS"
	ActionPaymentFailed  ActionType = "PAYMENT-FAILED"
	ActionPaymentPending ActionType = "PAYMENT-PENDING"
)

// Record is one immutable audit trail entry. A transaction accumulates
// zero or more records over its lifetime; records are never mutated or
// deleted by the core.
type Record struct {
	AuditID       uuid.UUID  `json:"audit_id"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	ActionType    ActionType `json:"action_type"`
	QueryDetails  string     `json:"query_details"`
	ResponseData  string     `json:"response_data"`
	CreatedAt     time.Time  `json:"created_at"`
}
