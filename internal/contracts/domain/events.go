package domain

import (
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "Contract"

const (
	RoutingKeyContractCreated              = "contracts.contract.created"
	RoutingKeyContractStatusChanged        = "contracts.contract.status_changed"
	RoutingKeyContractSubscriptionAttached = "contracts.contract.subscription_attached"
	RoutingKeyContractUpdated              = "contracts.contract.updated"
	RoutingKeyContractDeleted              = "contracts.contract.deleted"
)

// ContractCreated is emitted when a contract is opened.
type ContractCreated struct {
	sharedDomain.BaseEvent
	ContractID uuid.UUID `json:"contract_id"`
	Ref        string    `json:"ref"`
	CustomerID uuid.UUID `json:"customer_id"`
	Status     Status    `json:"status"`
}

// NewContractCreated creates a ContractCreated event.
func NewContractCreated(c *Contract) *ContractCreated {
	return &ContractCreated{
		BaseEvent:  sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyContractCreated),
		ContractID: c.ID(),
		Ref:        c.Ref(),
		CustomerID: c.Customer(),
		Status:     c.Status(),
	}
}

// ContractStatusChanged is emitted on every status transition.
type ContractStatusChanged struct {
	sharedDomain.BaseEvent
	ContractID uuid.UUID `json:"contract_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
}

// NewContractStatusChanged creates a ContractStatusChanged event.
func NewContractStatusChanged(c *Contract, from Status) *ContractStatusChanged {
	return &ContractStatusChanged{
		BaseEvent:  sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyContractStatusChanged),
		ContractID: c.ID(),
		From:       from,
		To:         c.Status(),
	}
}

// ContractSubscriptionAttached is emitted when the recurring subscription is known.
type ContractSubscriptionAttached struct {
	sharedDomain.BaseEvent
	ContractID     uuid.UUID `json:"contract_id"`
	SubscriptionID string    `json:"subscription_id"`
}

// NewContractSubscriptionAttached creates a ContractSubscriptionAttached event.
func NewContractSubscriptionAttached(c *Contract) *ContractSubscriptionAttached {
	return &ContractSubscriptionAttached{
		BaseEvent:      sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyContractSubscriptionAttached),
		ContractID:     c.ID(),
		SubscriptionID: c.Subscription(),
	}
}

type ContractUpdated struct {
	sharedDomain.BaseEvent
	ContractID uuid.UUID `json:"contract_id"`
}

func NewContractUpdated(c *Contract) *ContractUpdated {
	return &ContractUpdated{
		BaseEvent:  sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyContractUpdated),
		ContractID: c.ID(),
	}
}

type ContractDeleted struct {
	sharedDomain.BaseEvent
	ContractID uuid.UUID `json:"contract_id"`
}

func NewContractDeleted(c *Contract) *ContractDeleted {
	return &ContractDeleted{
		BaseEvent:  sharedDomain.NewBaseEvent(c.ID(), aggregateType, RoutingKeyContractDeleted),
		ContractID: c.ID(),
	}
}
