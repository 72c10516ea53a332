// Package ecommerce implements the payment gateway port over the ecommerce
// service HTTP API.
package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/felixgeelhaar/covera/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// Config configures the ecommerce client.
type Config struct {
	PublicURL  string
	PrivateURL string
	APIKey     string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int

	// RetryBackoff is the first backoff; it doubles on every retry.
	RetryBackoff time.Duration

	// BreakerFailures consecutive dependency failures open the breaker.
	BreakerFailures uint32

	// BreakerTimeout is the period of the open state.
	BreakerTimeout time.Duration

	HTTPClient *http.Client
}

// DefaultConfig returns sensible defaults for the given base URLs.
func DefaultConfig(publicURL, privateURL string) Config {
	return Config{
		PublicURL:       publicURL,
		PrivateURL:      privateURL,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    200 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Client implements domain.PaymentGateway.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

var _ domain.PaymentGateway = (*Client)(nil)

// NewClient creates an ecommerce client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}

	c := &Client{cfg: cfg, http: cfg.HTTPClient, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "ecommerce",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// a rejected or unknown request says nothing about the service health
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrGatewayUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// FindProduct fetches a product from the public catalogue.
func (c *Client) FindProduct(ctx context.Context, productID string, gateway domain.Gateway) (*domain.Product, error) {
	endpoint := fmt.Sprintf("%s/product/%s?%s",
		c.cfg.PublicURL, url.PathEscape(productID), url.Values{"gateway": {string(gateway)}}.Encode())

	var product domain.Product
	err := c.call(ctx, "find_product", "", http.MethodGet, endpoint, nil, &product)
	if errors.Is(err, sharedDomain.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s for gateway %s", domain.ErrProductNotFound, productID, gateway)
	}
	if err != nil {
		return nil, err
	}
	if product.ID == "" {
		product.ID = productID
	}
	if product.Gateway == "" {
		product.Gateway = gateway
	}
	return &product, nil
}

// CreateCustomer registers a gateway customer and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, email, fullName string, gateway domain.Gateway) (string, error) {
	body := map[string]any{"email": email, "fullName": fullName, "gateway": gateway}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, "create_customer", "", http.MethodPost, c.cfg.PrivateURL+"/gateway/customer", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: empty customer id", domain.ErrGatewayRejected)
	}
	return out.ID, nil
}

// CreateCheckout opens a hosted checkout and returns its url.
func (c *Client) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	body := map[string]any{
		"customerEmail": req.CustomerEmail,
		"product":       req.Product,
		"quantity":      req.Quantity,
		"metadata":      req.Metadata(),
		"gateway":       req.Gateway,
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.call(ctx, "create_checkout", req.IdempotencyKey, http.MethodPost, c.cfg.PrivateURL+"/gateway/checkout", body, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: empty checkout url", domain.ErrGatewayRejected)
	}
	return out.URL, nil
}

// CancelSubscription cancels the recurring subscription of a contract.
func (c *Client) CancelSubscription(ctx context.Context, gatewayCustomerID string, contractID uuid.UUID, gateway domain.Gateway) error {
	body := map[string]any{"customer": gatewayCustomerID, "contract": contractID.String(), "gateway": gateway}
	return c.call(ctx, "cancel_subscription", "", http.MethodPost, c.cfg.PrivateURL+"/gateway/subscription/cancel", body, nil)
}

// ApplyDiscount applies a percentage discount to the active subscription.
func (c *Client) ApplyDiscount(ctx context.Context, gatewayCustomerID string, contractID uuid.UUID, percent decimal.Decimal, gateway domain.Gateway, idempotencyKey string) error {
	body := map[string]any{
		"customer":        gatewayCustomerID,
		"discountPercent": json.Number(percent.String()),
		"contract":        contractID.String(),
		"gateway":         gateway,
	}
	return c.call(ctx, "apply_discount", idempotencyKey, http.MethodPost, c.cfg.PrivateURL+"/gateway/subscription/active/discount", body, nil)
}

// call runs one logical request through the breaker and decodes the answer
// into out when it is not nil. An empty key gets a fresh one, shared by the
// retries of this call only.
func (c *Client) call(ctx context.Context, operation, key, method, endpoint string, body any, out any) error {
	start := time.Now()
	defer func() {
		observability.GatewayLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		if key == "" {
			key = uuid.NewString()
		}
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.withRetry(ctx, operation, key, method, endpoint, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s: circuit open", domain.ErrGatewayUnavailable, operation)
	}
	if err != nil {
		observability.GatewayRequests.WithLabelValues(operation, outcome(err)).Inc()
		return err
	}
	observability.GatewayRequests.WithLabelValues(operation, "ok").Inc()

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrGatewayRejected, operation, err)
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, operation, key, method, endpoint string, payload []byte) ([]byte, error) {
	backoff := c.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WarnContext(ctx, "retrying gateway call",
				"operation", operation,
				"attempt", attempt,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, operation, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		data, err := c.send(ctx, method, endpoint, payload, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, key string) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-Id", corrID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", sharedDomain.ErrNotFound, responseMessage(data))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status=%d %s", domain.ErrGatewayUnavailable, resp.StatusCode, responseMessage(data))
	default:
		return nil, fmt.Errorf("%w: status=%d %s", domain.ErrGatewayRejected, resp.StatusCode, responseMessage(data))
	}
}

// responseMessage extracts the ecommerce service error message.
func responseMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return "error making request to ecommerce webservice"
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "unavailable"
	case errors.Is(err, sharedDomain.ErrNotFound):
		return "not_found"
	default:
		return "rejected"
	}
}
