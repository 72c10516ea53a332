package domain

import (
	"fmt"
	"strings"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrContractNotFound = fmt.Errorf("%w: contract", sharedDomain.ErrNotFound)
	ErrReferenceTaken   = fmt.Errorf("%w: contract reference already assigned", sharedDomain.ErrConflict)
)

// Spec is everything needed to open a contract.
type Spec struct {
	Ref            string
	Customer       uuid.UUID
	Product        string
	Gateway        billing.Gateway
	ContractDocURL string
	Status         Status
}

// Contract is the billable agreement of a customer.
type Contract struct {
	sharedDomain.BaseAggregateRoot
	ref            string
	customer       uuid.UUID
	status         Status
	product        string
	subscription   string
	checkoutURL    string
	gateway        billing.Gateway
	contractDocURL string
}

// NewContract opens a contract. An empty status defaults to INACTIVE.
func NewContract(spec Spec) (*Contract, error) {
	if len(spec.Ref) != sharedDomain.ReferenceLength {
		return nil, fmt.Errorf("%w: contract ref %q", sharedDomain.ErrInvalidReference, spec.Ref)
	}
	if spec.Status == "" {
		spec.Status = StatusInactive
	}
	if !spec.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown contract status %q", sharedDomain.ErrValidation, spec.Status)
	}

	c := &Contract{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		ref:               spec.Ref,
		customer:          spec.Customer,
		status:            spec.Status,
		product:           strings.TrimSpace(spec.Product),
		gateway:           spec.Gateway,
		contractDocURL:    spec.ContractDocURL,
	}
	c.AddDomainEvent(NewContractCreated(c))
	return c, nil
}

// RehydrateContract recreates a contract from persisted state.
func RehydrateContract(
	base sharedDomain.BaseAggregateRoot,
	ref string,
	customer uuid.UUID,
	status Status,
	product, subscription, checkoutURL string,
	gateway billing.Gateway,
	contractDocURL string,
) *Contract {
	return &Contract{
		BaseAggregateRoot: base,
		ref:               ref,
		customer:          customer,
		status:            status,
		product:           product,
		subscription:      subscription,
		checkoutURL:       checkoutURL,
		gateway:           gateway,
		contractDocURL:    contractDocURL,
	}
}

func (c *Contract) Ref() string            { return c.ref }
func (c *Contract) Customer() uuid.UUID    { return c.customer }
func (c *Contract) Status() Status         { return c.status }
func (c *Contract) Product() string        { return c.product }
func (c *Contract) Subscription() string   { return c.subscription }
func (c *Contract) CheckoutURL() string    { return c.checkoutURL }
func (c *Contract) ContractDocURL() string { return c.contractDocURL }

// Gateway returns the gateway the contract is billed through.
func (c *Contract) Gateway() billing.Gateway {
	if c.gateway == "" {
		return billing.DefaultGateway
	}
	return c.gateway
}

// Apply runs action against the contract status and returns the side
// effects the caller must execute.
func (c *Contract) Apply(action Action) ([]Effect, error) {
	next, effects, err := Apply(c.status, action)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", c.ID(), err)
	}
	if next != c.status {
		previous := c.status
		c.status = next
		c.Touch()
		c.AddDomainEvent(NewContractStatusChanged(c, previous))
	}
	return effects, nil
}

// RequestPayment moves the contract to PAYMENT_PENDING with a new checkout.
func (c *Contract) RequestPayment(checkoutURL string) error {
	if _, err := c.Apply(RequestPayment()); err != nil {
		return err
	}
	c.checkoutURL = checkoutURL
	c.Touch()
	return nil
}

// AttachSubscription records the recurring subscription id of the gateway.
func (c *Contract) AttachSubscription(subscriptionID string) error {
	if _, err := c.Apply(AttachSubscription()); err != nil {
		return err
	}
	if c.subscription == subscriptionID {
		return nil
	}
	c.subscription = subscriptionID
	c.Touch()
	c.AddDomainEvent(NewContractSubscriptionAttached(c))
	return nil
}

// Details are the editable fields of a contract; nil fields are kept.
type Details struct {
	Customer       *uuid.UUID
	ContractDocURL *string
}

// UpdateDetails merges details and reports whether anything changed.
func (c *Contract) UpdateDetails(d Details) bool {
	changed := false
	if d.Customer != nil && *d.Customer != c.customer {
		c.customer = *d.Customer
		changed = true
	}
	if d.ContractDocURL != nil && *d.ContractDocURL != c.contractDocURL {
		c.contractDocURL = *d.ContractDocURL
		changed = true
	}
	if changed {
		c.Touch()
		c.AddDomainEvent(NewContractUpdated(c))
	}
	return changed
}

// MarkDeleted records the removal of the contract.
func (c *Contract) MarkDeleted() {
	c.AddDomainEvent(NewContractDeleted(c))
}
