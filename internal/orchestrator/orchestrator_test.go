package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paylane-ledger/internal/domain/audit"
	"github.com/paylane-ledger/internal/domain/payment"
	"github.com/paylane-ledger/internal/processor"
)

type mockLedgerRepository struct {
	mock.Mock
}

func (m *mockLedgerRepository) Create(ctx context.Context, txn *payment.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockLedgerRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *mockLedgerRepository) UpdateStatus(ctx context.Context, transactionID uuid.UUID, status payment.Status, details map[string]string) error {
	args := m.Called(ctx, transactionID, status, details)
	return args.Error(0)
}

func (m *mockLedgerRepository) All(ctx context.Context) ([]*payment.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Transaction), args.Error(1)
}

type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Append(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockAuditRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*audit.Record, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

func (m *mockAuditRepository) All(ctx context.Context) ([]*audit.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) SubmitIntent(ctx context.Context, intent *processor.Intent) (*processor.IntentResponse, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.IntentResponse), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *mockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type orchestratorFixture struct {
	ledger  *mockLedgerRepository
	audit   *mockAuditRepository
	broker  *mockBroker
	gateway *mockGateway
	events  *mockEventPublisher
	orch    *Orchestrator
}

func newFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		ledger:  new(mockLedgerRepository),
		audit:   new(mockAuditRepository),
		broker:  new(mockBroker),
		gateway: new(mockGateway),
		events:  new(mockEventPublisher),
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	f.orch = NewOrchestrator(logger, f.ledger, f.audit, f.broker, f.gateway, f.events)
	return f
}

func validRequest() *Request {
	return &Request{
		Amount:      decimal.RequireFromString("100.00"),
		ProcessorID: "proc-42",
		ProcessType: "one-time",
		Source:      "api",
	}
}

func TestSubmitPayment_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.MatchedBy(func(txn *payment.Transaction) bool {
		return txn.Status == payment.StatusInitiated && txn.TransactionID != uuid.Nil
	})).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_top_secret", nil)
	f.broker.On("Encrypt", ctx, []byte("tok_top_secret")).Return([]byte("ciphertext"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.MatchedBy(func(details map[string]string) bool {
		// The ciphertext reference is stored, never the token itself
		return details["token_ref"] == base64.StdEncoding.EncodeToString([]byte("ciphertext"))
	})).Return(nil)
	f.gateway.On("SubmitIntent", ctx, mock.MatchedBy(func(intent *processor.Intent) bool {
		return intent.Token == "tok_top_secret" && intent.ProcessorID == "proc-42"
	})).Return(&processor.IntentResponse{Status: "SUCCESS", Message: "approved"}, nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusSuccess, mock.Anything).Return(nil)
	f.audit.On("Append", ctx, mock.MatchedBy(func(record *audit.Record) bool {
		return record.ActionType == audit.ActionPaymentSuccess
	})).Return(nil)
	f.events.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	result := f.orch.SubmitPayment(ctx, validRequest())

	require.NotNil(t, result)
	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Equal(t, payment.StatusSuccess, result.Status)
	assert.NotEqual(t, uuid.Nil, result.TransactionID)
	f.ledger.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestSubmitPayment_RejectedInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := validRequest()
	req.Amount = decimal.RequireFromString("-5.00")

	result := f.orch.SubmitPayment(ctx, req)

	require.NotNil(t, result)
	assert.Equal(t, OutcomeRejectedInput, result.Outcome)
	// Rejected input must produce no side effects at all
	f.ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "GetToken", mock.Anything)
	f.audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSubmitPayment_Declined(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil)
	f.gateway.On("SubmitIntent", ctx, mock.Anything).
		Return(&processor.IntentResponse{Status: "FAILED", Message: "insufficient funds"}, nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusFailed, mock.Anything).Return(nil)
	f.audit.On("Append", ctx, mock.MatchedBy(func(record *audit.Record) bool {
		return record.ActionType == audit.ActionPaymentFailed
	})).Return(nil)
	f.events.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeDeclined, result.Outcome)
	assert.Equal(t, payment.StatusFailed, result.Status)
	f.ledger.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestSubmitPayment_ProcessorReportsPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil).Times(2)
	f.gateway.On("SubmitIntent", ctx, mock.Anything).
		Return(&processor.IntentResponse{Status: "processing"}, nil)
	f.audit.On("Append", ctx, mock.MatchedBy(func(record *audit.Record) bool {
		return record.ActionType == audit.ActionPaymentPending
	})).Return(nil)
	f.events.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Equal(t, payment.StatusPending, result.Status)
	f.audit.AssertExpectations(t)
}

func TestSubmitPayment_LedgerCreateFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(errors.New("mongo down"))

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeInternalError, result.Outcome)
	assert.Equal(t, payment.StatusInitiated, result.Status)
	// No processor traffic before the ledger record exists
	f.gateway.AssertNotCalled(t, "GetToken", mock.Anything)
}

func TestSubmitPayment_TokenFailureLeavesInitiated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("", processor.ErrUnavailable)

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeInternalError, result.Outcome)
	assert.Equal(t, payment.StatusInitiated, result.Status)
	f.ledger.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSubmitPayment_EncryptFailureLeavesInitiated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return(nil, errors.New("encryption failed"))

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeInternalError, result.Outcome)
	assert.Equal(t, payment.StatusInitiated, result.Status)
	f.ledger.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "SubmitIntent", mock.Anything, mock.Anything)
}

func TestSubmitPayment_IntentTransportFailureLeavesPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil).Once()
	f.gateway.On("SubmitIntent", ctx, mock.Anything).Return(nil, processor.ErrUnavailable)

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeInternalError, result.Outcome)
	// The ledger stays at the last confirmed state with no terminal audit
	assert.Equal(t, payment.StatusPending, result.Status)
	f.ledger.AssertExpectations(t)
	f.audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSubmitPayment_LedgerUpdatedBeforeAuditAppended(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var order []string

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil)
	f.gateway.On("SubmitIntent", ctx, mock.Anything).
		Return(&processor.IntentResponse{Status: "SUCCESS"}, nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusSuccess, mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, "ledger") }).Return(nil)
	f.audit.On("Append", ctx, mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, "audit") }).Return(nil)
	f.events.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	require.Equal(t, []string{"ledger", "audit"}, order)
}

func TestSubmitPayment_AuditAppendFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil)
	f.gateway.On("SubmitIntent", ctx, mock.Anything).
		Return(&processor.IntentResponse{Status: "SUCCESS"}, nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusSuccess, mock.Anything).Return(nil)
	f.audit.On("Append", ctx, mock.Anything).Return(errors.New("postgres down"))

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeInternalError, result.Outcome)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitPayment_PublishFailureDoesNotAffectResult(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil)
	f.gateway.On("SubmitIntent", ctx, mock.Anything).
		Return(&processor.IntentResponse{Status: "SUCCESS"}, nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusSuccess, mock.Anything).Return(nil)
	f.audit.On("Append", ctx, mock.Anything).Return(nil)
	f.events.On("Publish", ctx, mock.Anything, mock.Anything).Return(errors.New("kafka unreachable"))

	result := f.orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
}

func TestSubmitPayment_NilPublisher(t *testing.T) {
	f := newFixture()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	orch := NewOrchestrator(logger, f.ledger, f.audit, f.broker, f.gateway, nil)
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil)
	f.gateway.On("SubmitIntent", ctx, mock.Anything).
		Return(&processor.IntentResponse{Status: "SUCCESS"}, nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusSuccess, mock.Anything).Return(nil)
	f.audit.On("Append", ctx, mock.Anything).Return(nil)

	result := orch.SubmitPayment(ctx, validRequest())

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
}

func TestSubmitPayment_SimulateStatusForwarded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.ledger.On("Create", ctx, mock.Anything).Return(nil)
	f.gateway.On("GetToken", ctx).Return("tok_abc", nil)
	f.broker.On("Encrypt", ctx, mock.Anything).Return([]byte("ct"), nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusPending, mock.Anything).Return(nil)
	f.gateway.On("SubmitIntent", ctx, mock.MatchedBy(func(intent *processor.Intent) bool {
		return intent.SimulateStatus == "failed"
	})).Return(&processor.IntentResponse{Status: "FAILED"}, nil)
	f.ledger.On("UpdateStatus", ctx, mock.Anything, payment.StatusFailed, mock.Anything).Return(nil)
	f.audit.On("Append", ctx, mock.Anything).Return(nil)
	f.events.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	req := validRequest()
	req.SimulateStatus = "failed"
	result := f.orch.SubmitPayment(ctx, req)

	assert.Equal(t, OutcomeDeclined, result.Outcome)
	f.gateway.AssertExpectations(t)
}
