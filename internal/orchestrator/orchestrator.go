// Package orchestrator drives a payment request end-to-end: ledger
// initiation, token acquisition, submission to the external processor,
// status normalization, and the audit trail append. One invocation owns
// one transaction id; there is no cross-transaction coordination.
package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane-ledger/internal/domain/audit"
	"github.com/paylane-ledger/internal/domain/payment"
	"github.com/paylane-ledger/internal/platform/messaging/producers"
	"github.com/paylane-ledger/internal/processor"
	"github.com/paylane-ledger/internal/secrets"
)

// Outcome is the discriminated result category returned to callers, so
// "payment declined" is distinguishable from "could not reach processor"
// without parsing error text.
type Outcome string

const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeAccepted      Outcome = "accepted"
	OutcomeDeclined      Outcome = "declined"
	OutcomeRejectedInput Outcome = "rejected-input"
	OutcomeInternalError Outcome = "internal-error"
)

// Request is one incoming payment submission
type Request struct {
	Amount      decimal.Decimal
	ProcessorID string
	ProcessType string
	Source      string
	// SimulateStatus lets test callers force a processor outcome. It is
	// forwarded to the gateway verbatim and ignored by real processors.
	SimulateStatus string
}

// Result carries the definitive outcome of one submission
type Result struct {
	Outcome       Outcome
	TransactionID uuid.UUID
	Status        payment.Status
	Message       string
}

// Service is the payment submission contract, implemented by the
// Orchestrator and its worker pool wrapper.
type Service interface {
	SubmitPayment(ctx context.Context, req *Request) *Result
}

// Orchestrator implements Service with explicit, injected dependencies
type Orchestrator struct {
	ledgerRepo payment.LedgerRepository
	auditRepo  audit.Repository
	broker     secrets.Broker
	gateway    processor.Gateway
	events     producers.EventPublisher // May be nil; outcome events are optional
	logger     *slog.Logger
}

// NewOrchestrator creates an orchestrator. The events publisher may be nil,
// in which case no outcome events are emitted.
func NewOrchestrator(
	logger *slog.Logger,
	ledgerRepo payment.LedgerRepository,
	auditRepo audit.Repository,
	broker secrets.Broker,
	gateway processor.Gateway,
	events producers.EventPublisher,
) *Orchestrator {
	return &Orchestrator{
		ledgerRepo: ledgerRepo,
		auditRepo:  auditRepo,
		broker:     broker,
		gateway:    gateway,
		events:     events,
		logger:     logger,
	}
}

// SubmitPayment drives one payment through the full lifecycle. Side effects
// are strictly ordered: the ledger mutation for a transition always happens
// before the audit append for that same transition, so a crash between the
// two leaves "ledger updated, audit missing", never the reverse.
func (o *Orchestrator) SubmitPayment(ctx context.Context, req *Request) *Result {
	txn := &payment.Transaction{
		TransactionID: uuid.New(),
		Amount:        req.Amount,
		ProcessorID:   req.ProcessorID,
		ProcessType:   req.ProcessType,
		Source:        req.Source,
		Status:        payment.StatusInitiated,
	}

	// Fail fast on bad input, before any store or network call
	if err := txn.Validate(); err != nil {
		o.logger.Info("Payment request rejected", "error", err)
		return &Result{
			Outcome: OutcomeRejectedInput,
			Message: err.Error(),
		}
	}

	logger := o.logger.With("transaction_id", txn.TransactionID.String())

	// Step 1: the ledger record must exist before any processor call is
	// attempted, so no payment is ever untracked
	if err := o.ledgerRepo.Create(ctx, txn); err != nil {
		logger.Error("Failed to create ledger record", "error", err)
		return o.internalError(txn.TransactionID, payment.StatusInitiated, "failed to record payment initiation")
	}

	// Step 2: acquire and protect the security token
	token, err := o.gateway.GetToken(ctx)
	if err != nil {
		logger.Error("Failed to obtain security token", "error", err)
		return o.internalError(txn.TransactionID, payment.StatusInitiated, "failed to obtain security token")
	}

	ciphertext, err := o.broker.Encrypt(ctx, []byte(token))
	if err != nil {
		logger.Error("Failed to encrypt security token", "error", err)
		return o.internalError(txn.TransactionID, payment.StatusInitiated, "failed to protect security token")
	}

	// Only the ciphertext reference is persisted, never the token itself
	pendingDetails := map[string]string{
		"token_ref": base64.StdEncoding.EncodeToString(ciphertext),
	}
	if err := o.ledgerRepo.UpdateStatus(ctx, txn.TransactionID, payment.StatusPending, pendingDetails); err != nil {
		logger.Error("Failed to mark payment pending", "error", err)
		return o.internalError(txn.TransactionID, payment.StatusInitiated, "failed to record token acquisition")
	}

	// Step 3: submit the payment intent, the single external irreversible
	// effect. A transport failure here leaves the ledger at PENDING, the
	// last confirmed state, with no terminal audit record.
	resp, err := o.gateway.SubmitIntent(ctx, &processor.Intent{
		TransactionID:  txn.TransactionID,
		Amount:         txn.Amount,
		ProcessorID:    txn.ProcessorID,
		ProcessType:    txn.ProcessType,
		Token:          token,
		SimulateStatus: req.SimulateStatus,
	})
	if err != nil {
		logger.Error("Payment intent submission failed", "error", err)
		return o.internalError(txn.TransactionID, payment.StatusPending, "payment processor unavailable")
	}

	// Steps 4 and 5: normalize, overwrite the ledger, then append the audit
	status := payment.NormalizeStatus(resp.Status)
	if err := o.recordOutcome(ctx, txn, status, resp); err != nil {
		logger.Error("Failed to record payment outcome", "status", string(status), "error", err)
		return o.internalError(txn.TransactionID, status, "failed to record payment outcome")
	}

	o.publishEvent(ctx, txn, status)

	logger.Info("Payment completed",
		"status", string(status),
		"processor_id", txn.ProcessorID,
		"amount", txn.Amount.String(),
	)

	result := &Result{
		TransactionID: txn.TransactionID,
		Status:        status,
	}
	switch status {
	case payment.StatusSuccess:
		result.Outcome = OutcomeSucceeded
		result.Message = fmt.Sprintf("payment completed for transaction %s", txn.TransactionID)
	case payment.StatusFailed:
		result.Outcome = OutcomeDeclined
		result.Message = fmt.Sprintf("payment declined for transaction %s", txn.TransactionID)
	default:
		result.Outcome = OutcomeAccepted
		result.Message = fmt.Sprintf("payment pending for transaction %s", txn.TransactionID)
	}
	return result
}

// recordOutcome overwrites the ledger with the normalized status and then
// appends exactly one audit record describing the event
func (o *Orchestrator) recordOutcome(ctx context.Context, txn *payment.Transaction, status payment.Status, resp *processor.IntentResponse) error {
	details := map[string]string{
		"processor_status": resp.Status,
	}
	if resp.Message != "" {
		details["processor_message"] = resp.Message
	}

	if err := o.ledgerRepo.UpdateStatus(ctx, txn.TransactionID, status, details); err != nil {
		return fmt.Errorf("ledger update failed: %w", err)
	}

	var action audit.ActionType
	var queryDetails string
	switch status {
	case payment.StatusSuccess:
		action = audit.ActionPaymentSuccess
		queryDetails = fmt.Sprintf("Payment successful for amount: %s using processor: %s", txn.Amount, txn.ProcessorID)
	case payment.StatusFailed:
		action = audit.ActionPaymentFailed
		queryDetails = fmt.Sprintf("Failed payment for amount: %s using processor: %s", txn.Amount, txn.ProcessorID)
	default:
		action = audit.ActionPaymentPending
		queryDetails = fmt.Sprintf("Payment pending for amount: %s using processor: %s", txn.Amount, txn.ProcessorID)
	}

	digest, err := json.Marshal(resp)
	if err != nil {
		digest = []byte(fmt.Sprintf("%q", resp.Status))
	}

	record := &audit.Record{
		AuditID:       uuid.New(),
		TransactionID: txn.TransactionID,
		ActionType:    action,
		QueryDetails:  queryDetails,
		ResponseData:  string(digest),
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.auditRepo.Append(ctx, record); err != nil {
		return fmt.Errorf("audit append failed: %w", err)
	}

	return nil
}

// publishEvent emits a best-effort outcome event; failures are logged and
// never affect the request result
func (o *Orchestrator) publishEvent(ctx context.Context, txn *payment.Transaction, status payment.Status) {
	if o.events == nil {
		return
	}

	event := &producers.PaymentEvent{
		TransactionID: txn.TransactionID,
		Status:        status,
		ProcessorID:   txn.ProcessorID,
		ProcessType:   txn.ProcessType,
		Amount:        txn.Amount,
		OccurredAt:    time.Now().UTC(),
	}
	if err := o.events.Publish(ctx, txn.TransactionID.String(), event); err != nil {
		o.logger.Error("Failed to publish payment event",
			"transaction_id", txn.TransactionID.String(),
			"error", err,
		)
	}
}

func (o *Orchestrator) internalError(transactionID uuid.UUID, lastStatus payment.Status, message string) *Result {
	return &Result{
		Outcome:       OutcomeInternalError,
		TransactionID: transactionID,
		Status:        lastStatus,
		Message:       message,
	}
}
