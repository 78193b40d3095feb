// Package processor implements the gateway to the external payment processor.
// The processor exposes two operations: issuing a short-lived security token
// and accepting a payment intent. Transport failures, non-2xx responses, and
// malformed bodies all surface as ErrUnavailable so callers can distinguish
// "could not reach the processor" from a processor-reported decline.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paylane-ledger/internal/config"
)

// ErrUnavailable indicates a network/HTTP failure talking to the processor
var ErrUnavailable = errors.New("payment processor unavailable")

// Intent is the payment submission sent to the processor
type Intent struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	Amount         decimal.Decimal `json:"amount"`
	ProcessorID    string          `json:"processor_id"`
	ProcessType    string          `json:"process_type"`
	Token          string          `json:"token"`
	SimulateStatus string          `json:"simulate_status,omitempty"`
}

// IntentResponse is the processor's reply to a payment intent. Status carries
// the processor's own vocabulary and must be normalized before persistence.
type IntentResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// Gateway is the capability set the orchestrator needs from a processor
type Gateway interface {
	GetToken(ctx context.Context) (string, error)
	SubmitIntent(ctx context.Context, intent *Intent) (*IntentResponse, error)
}

// Client is an HTTP Gateway implementation
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a processor gateway client from configuration
func NewClient(logger *slog.Logger, cfg *config.ProcessorConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// GetToken requests a short-lived security token from the processor
func (c *Client) GetToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/security-token", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return "", err
	}
	if tr.Token == "" {
		return "", fmt.Errorf("%w: empty token in response", ErrUnavailable)
	}

	return tr.Token, nil
}

// SubmitIntent submits a payment intent and returns the processor's raw
// status reply. This call is the single point of external irreversible
// effect in a payment's lifecycle.
func (c *Client) SubmitIntent(ctx context.Context, intent *Intent) (*IntentResponse, error) {
	body, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment intent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment-intent", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var ir IntentResponse
	if err := c.do(req, &ir); err != nil {
		return nil, err
	}

	c.logger.Debug("Processor responded to payment intent",
		"transaction_id", intent.TransactionID.String(),
		"status", ir.Status,
	)

	return &ir, nil
}

// do executes the request and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Processor request failed", "url", req.URL.String(), "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded amount of the body for the error message
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("Processor returned non-2xx status",
			"url", req.URL.String(),
			"status_code", resp.StatusCode,
			"body", string(snippet),
		)
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode processor response", "url", req.URL.String(), "error", err)
		return fmt.Errorf("%w: malformed response body: %v", ErrUnavailable, err)
	}

	return nil
}
