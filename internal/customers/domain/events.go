package domain

import (
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "Customer"

// CustomerCreated is emitted when a customer account is created.
type CustomerCreated struct {
	sharedDomain.BaseEvent
	CustomerID       uuid.UUID `json:"customer_id"`
	AuthServerUserID string    `json:"auth_server_user_id"`
	Email            string    `json:"email"`
}

// NewCustomerCreated creates a CustomerCreated event.
func NewCustomerCreated(c *Customer) *CustomerCreated {
	return &CustomerCreated{
		BaseEvent:        sharedDomain.NewBaseEvent(c.ID(), aggregateType, "customers.customer.created"),
		CustomerID:       c.ID(),
		AuthServerUserID: c.AuthServerUserID(),
		Email:            c.Contact().Email,
	}
}

// GatewayCustomerRegistered is emitted when the payment gateway customer is attached.
type GatewayCustomerRegistered struct {
	sharedDomain.BaseEvent
	CustomerID        uuid.UUID `json:"customer_id"`
	GatewayCustomerID string    `json:"gateway_customer_id"`
}

// NewGatewayCustomerRegistered creates a GatewayCustomerRegistered event.
func NewGatewayCustomerRegistered(c *Customer) *GatewayCustomerRegistered {
	return &GatewayCustomerRegistered{
		BaseEvent:         sharedDomain.NewBaseEvent(c.ID(), aggregateType, "customers.customer.gateway_registered"),
		CustomerID:        c.ID(),
		GatewayCustomerID: c.GatewayCustomerID(),
	}
}

// CustomerUpdated is emitted when profile data changes.
type CustomerUpdated struct {
	sharedDomain.BaseEvent
	CustomerID uuid.UUID `json:"customer_id"`
}

// NewCustomerUpdated creates a CustomerUpdated event.
func NewCustomerUpdated(c *Customer) *CustomerUpdated {
	return &CustomerUpdated{
		BaseEvent:  sharedDomain.NewBaseEvent(c.ID(), aggregateType, "customers.customer.updated"),
		CustomerID: c.ID(),
	}
}
