// Package domain defines the payment gateway port used by the contract and
// application lifecycles.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = fmt.Errorf("%w: gateway product", sharedDomain.ErrNotFound)

// ErrGatewayUnavailable marks transport failures, 5xx answers and an open
// circuit. It is retryable.
var ErrGatewayUnavailable = fmt.Errorf("%w: payment gateway", sharedDomain.ErrDependency)

// ErrGatewayRejected marks a 4xx answer other than not-found.
var ErrGatewayRejected = errors.New("payment gateway rejected the request")

// Gateway names a payment provider behind the ecommerce service.
type Gateway string

const (
	GatewayStripe Gateway = "STRIPE"

	// DefaultGateway is forced on every contract descriptor.
	DefaultGateway = GatewayStripe
)

// Valid reports whether g is a known gateway.
func (g Gateway) Valid() bool {
	return g == GatewayStripe
}

// Product is a subscription product sold through a gateway.
type Product struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Gateway Gateway `json:"gateway"`
}

// CheckoutRequest sizes a hosted checkout session to the number of insured
// vehicles. Metadata is echoed back on the gateway events.
type CheckoutRequest struct {
	CustomerEmail string
	Product       string
	Quantity      int
	ContractID    uuid.UUID
	Gateway       Gateway

	// IdempotencyKey identifies one checkout request. Every new checkout for
	// the same contract needs a new key, see CheckoutKey.
	IdempotencyKey string
}

// CheckoutKey returns a fresh idempotency key for a checkout of contractID.
func CheckoutKey(contractID uuid.UUID) string {
	return "checkout:" + contractID.String() + ":" + uuid.NewString()
}

// DiscountKey returns the idempotency key of the discount earned by
// contractID over [start, end].
func DiscountKey(contractID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("discount:%s:%s:%s", contractID,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

// Metadata returns the key/value pairs attached to the checkout session.
func (r CheckoutRequest) Metadata() map[string]string {
	return map[string]string{"contract": r.ContractID.String()}
}

// PaymentGateway is the outbound port to the ecommerce service. Retries of a
// call reuse its idempotency key; distinct calls never share one.
type PaymentGateway interface {
	FindProduct(ctx context.Context, productID string, gateway Gateway) (*Product, error)
	CreateCustomer(ctx context.Context, email, fullName string, gateway Gateway) (string, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
	CancelSubscription(ctx context.Context, gatewayCustomerID string, contractID uuid.UUID, gateway Gateway) error
	ApplyDiscount(ctx context.Context, gatewayCustomerID string, contractID uuid.UUID, percent decimal.Decimal, gateway Gateway, idempotencyKey string) error
}
