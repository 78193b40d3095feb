package handler

import "github.com/shopspring/decimal"

// SubmitPaymentRequest represents a request to submit a new payment
type SubmitPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ProcessorID string          `json:"processor_id" binding:"required"`
	ProcessType string          `json:"process_type" binding:"required"`
	Source      string          `json:"source,omitempty"`
	// SimulateStatus forces a processor outcome for test traffic
	SimulateStatus string `json:"simulate_status,omitempty"`
}

// PaymentResponse represents the outcome of a payment submission
type PaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

// TransactionResponse represents a ledger record in API responses
type TransactionResponse struct {
	TransactionID   string            `json:"transaction_id"`
	Amount          decimal.Decimal   `json:"amount"`
	ProcessorID     string            `json:"processor_id"`
	ProcessType     string            `json:"process_type"`
	Source          string            `json:"source,omitempty"`
	Status          string            `json:"status"`
	ResponseDetails map[string]string `json:"response_details,omitempty"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// AuditRecordResponse represents an audit record in API responses
type AuditRecordResponse struct {
	AuditID       string `json:"audit_id"`
	TransactionID string `json:"transaction_id"`
	ActionType    string `json:"action_type"`
	QueryDetails  string `json:"query_details,omitempty"`
	ResponseData  string `json:"response_data,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// AuditTrailResponse represents a transaction's audit trail in API responses
type AuditTrailResponse struct {
	TransactionID string                `json:"transaction_id"`
	Records       []AuditRecordResponse `json:"records"`
}
