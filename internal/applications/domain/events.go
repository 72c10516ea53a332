package domain

import (
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "SubscriptionApplication"

const (
	RoutingKeyApplicationCreated        = "applications.application.created"
	RoutingKeyApplicationStatusChanged  = "applications.application.status_changed"
	RoutingKeyApplicationUpdated        = "applications.application.updated"
	RoutingKeyApplicationContractLinked = "applications.application.contract_linked"
)

// ApplicationCreated is emitted when an application is submitted.
type ApplicationCreated struct {
	sharedDomain.BaseEvent
	ApplicationID uuid.UUID `json:"application_id"`
	Ref           string    `json:"ref"`
	CustomerID    uuid.UUID `json:"customer_id"`
	VehicleCount  int       `json:"vehicle_count"`
}

// NewApplicationCreated creates an ApplicationCreated event.
func NewApplicationCreated(a *Application) *ApplicationCreated {
	return &ApplicationCreated{
		BaseEvent:     sharedDomain.NewBaseEvent(a.ID(), aggregateType, RoutingKeyApplicationCreated),
		ApplicationID: a.ID(),
		Ref:           a.Ref(),
		CustomerID:    a.Customer(),
		VehicleCount:  len(a.vehicles),
	}
}

// ApplicationStatusChanged is emitted on every status transition.
type ApplicationStatusChanged struct {
	sharedDomain.BaseEvent
	ApplicationID uuid.UUID `json:"application_id"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Comment       string    `json:"comment,omitempty"`
}

// NewApplicationStatusChanged creates an ApplicationStatusChanged event.
func NewApplicationStatusChanged(a *Application, from Status, comment string) *ApplicationStatusChanged {
	return &ApplicationStatusChanged{
		BaseEvent:     sharedDomain.NewBaseEvent(a.ID(), aggregateType, RoutingKeyApplicationStatusChanged),
		ApplicationID: a.ID(),
		From:          from,
		To:            a.Status(),
		Comment:       comment,
	}
}

type ApplicationUpdated struct {
	sharedDomain.BaseEvent
	ApplicationID uuid.UUID `json:"application_id"`
}

func NewApplicationUpdated(a *Application) *ApplicationUpdated {
	return &ApplicationUpdated{
		BaseEvent:     sharedDomain.NewBaseEvent(a.ID(), aggregateType, RoutingKeyApplicationUpdated),
		ApplicationID: a.ID(),
	}
}

// ApplicationContractLinked is emitted once the contract of an approved
// application exists.
type ApplicationContractLinked struct {
	sharedDomain.BaseEvent
	ApplicationID uuid.UUID `json:"application_id"`
	ContractID    uuid.UUID `json:"contract_id"`
}

// NewApplicationContractLinked creates an ApplicationContractLinked event.
func NewApplicationContractLinked(a *Application) *ApplicationContractLinked {
	contractID, _ := a.LinkedContract()
	return &ApplicationContractLinked{
		BaseEvent:     sharedDomain.NewBaseEvent(a.ID(), aggregateType, RoutingKeyApplicationContractLinked),
		ApplicationID: a.ID(),
		ContractID:    contractID,
	}
}
