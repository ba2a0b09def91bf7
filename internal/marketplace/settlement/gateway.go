package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
)

// Payment is the gateway's view of one payment.
type Payment struct {
	PaymentID string        `json:"payment_id"`
	Amount    domain.Amount `json:"amount"`
	Status    string        `json:"status"`
}

// PaymentGateway is the external payment network boundary. All three
// operations are idempotent on the gateway side per its contract; the
// core never assumes exactly-once delivery of the webhooks that invoke
// them. Implementations must bound their own timeouts: none of these
// calls may hold a local lock or hang indefinitely.
type PaymentGateway interface {
	// Approve acknowledges a payment before the payer signs it.
	Approve(ctx context.Context, paymentID string) error

	// Complete confirms the payment against the on-chain transaction and
	// returns the gateway's confirmed amount.
	Complete(ctx context.Context, paymentID, txID string) (domain.Amount, error)

	// GetPayment fetches the payment's current state.
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// GatewayConfig holds HTTP gateway client configuration.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPGateway talks to the payment network's REST API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPGateway creates a gateway client with a bounded timeout.
func NewHTTPGateway(cfg *GatewayConfig, logger *slog.Logger) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Approve acknowledges the payment server-side.
func (g *HTTPGateway) Approve(ctx context.Context, paymentID string) error {
	url := fmt.Sprintf("%s/v2/payments/%s/approve", g.baseURL, paymentID)
	return g.post(ctx, url, nil, nil)
}

// Complete confirms the payment with its on-chain transaction id and
// returns the amount the gateway reports as settled.
func (g *HTTPGateway) Complete(ctx context.Context, paymentID, txID string) (domain.Amount, error) {
	url := fmt.Sprintf("%s/v2/payments/%s/complete", g.baseURL, paymentID)
	body := map[string]string{"txid": txID}

	var resp Payment
	if err := g.post(ctx, url, body, &resp); err != nil {
		return 0, err
	}

	g.logger.Info("Payment completed on gateway",
		slog.String("payment_id", paymentID),
		slog.String("tx_id", txID),
		slog.String("confirmed_amount", resp.Amount.String()),
	)

	return resp.Amount, nil
}

// GetPayment fetches the payment record from the gateway.
func (g *HTTPGateway) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	url := fmt.Sprintf("%s/v2/payments/%s", g.baseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &payment, nil
}

// post sends a JSON POST and optionally decodes the response into out.
func (g *HTTPGateway) post(ctx context.Context, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}

	return nil
}
