package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paylane-ledger/internal/domain/audit"
	"github.com/paylane-ledger/internal/domain/payment"
	"github.com/paylane-ledger/internal/orchestrator"
)

// PaymentHandler handles HTTP requests for payment operations
type PaymentHandler struct {
	paymentService orchestrator.Service
	ledgerRepo     payment.LedgerRepository
	auditRepo      audit.Repository
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	logger *slog.Logger,
	paymentService orchestrator.Service,
	ledgerRepo payment.LedgerRepository,
	auditRepo audit.Repository,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		ledgerRepo:     ledgerRepo,
		auditRepo:      auditRepo,
		logger:         logger,
	}
}

// Submit runs a payment through the orchestrator and maps its outcome to an
// HTTP status: 200 succeeded, 202 accepted, 402 declined, 400 rejected input
func (h *PaymentHandler) Submit(c *gin.Context) {
	var req SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}

	result := h.paymentService.SubmitPayment(c.Request.Context(), &orchestrator.Request{
		Amount:         req.Amount,
		ProcessorID:    req.ProcessorID,
		ProcessType:    req.ProcessType,
		Source:         source,
		SimulateStatus: req.SimulateStatus,
	})

	response := PaymentResponse{
		Status:  string(result.Status),
		Message: result.Message,
	}
	if result.TransactionID != uuid.Nil {
		response.TransactionID = result.TransactionID.String()
	}

	switch result.Outcome {
	case orchestrator.OutcomeSucceeded:
		RespondOK(c, response)
	case orchestrator.OutcomeAccepted:
		RespondAccepted(c, response)
	case orchestrator.OutcomeDeclined:
		RespondPaymentRequired(c, response)
	case orchestrator.OutcomeRejectedInput:
		RespondBadRequest(c, result.Message)
	default:
		RespondInternalError(c)
	}
}

// GetByID retrieves a ledger record by its transaction ID, returns 404 if not found
func (h *PaymentHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.ledgerRepo.GetByTransactionID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, payment.ErrEntryNotFound{}) {
			RespondNotFound(c, "Payment not found")
			return
		}
		h.logger.Error("Failed to get payment", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// GetAuditTrail retrieves the chronological audit trail for a transaction
func (h *PaymentHandler) GetAuditTrail(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	records, err := h.auditRepo.GetByTransactionID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get audit trail", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	trail := AuditTrailResponse{
		TransactionID: id.String(),
		Records:       make([]AuditRecordResponse, 0, len(records)),
	}
	for _, record := range records {
		trail.Records = append(trail.Records, AuditRecordResponse{
			AuditID:       record.AuditID.String(),
			TransactionID: record.TransactionID.String(),
			ActionType:    string(record.ActionType),
			QueryDetails:  record.QueryDetails,
			ResponseData:  record.ResponseData,
			CreatedAt:     record.CreatedAt.Format(time.RFC3339),
		})
	}

	RespondOK(c, trail)
}

// mapTransactionToResponse maps a ledger record to a response DTO
func mapTransactionToResponse(txn *payment.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:   txn.TransactionID.String(),
		Amount:          txn.Amount,
		ProcessorID:     txn.ProcessorID,
		ProcessType:     txn.ProcessType,
		Source:          txn.Source,
		Status:          string(txn.Status),
		ResponseDetails: txn.ResponseDetails,
		CreatedAt:       txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       txn.UpdatedAt.Format(time.RFC3339),
	}
}
