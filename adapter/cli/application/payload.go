package application

import (
	"github.com/felixgeelhaar/covera/internal/applications/application/commands"
	"github.com/felixgeelhaar/covera/internal/applications/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	"github.com/google/uuid"
)

// createPayload is the JSON document accepted by "application create".
type createPayload struct {
	Customer uuid.UUID                 `json:"customer"`
	Profile  customerDomain.Profile    `json:"profile"`
	Vehicles []domain.ProposedVehicle  `json:"vehicles"`
	Contract domain.ContractDescriptor `json:"contract"`
}

func (p createPayload) command() commands.CreateApplicationCommand {
	return commands.CreateApplicationCommand{
		Customer: p.Customer,
		Profile:  p.Profile,
		Vehicles: p.Vehicles,
		Contract: p.Contract,
	}
}

// updatePayload is the JSON document accepted by "application update".
// Absent fields keep the current values.
type updatePayload struct {
	Customer *uuid.UUID                 `json:"customer"`
	Profile  customerDomain.Profile     `json:"profile"`
	Vehicles *[]domain.ProposedVehicle  `json:"vehicles"`
	Contract *domain.ContractDescriptor `json:"contract"`
}

func (p updatePayload) command(id uuid.UUID, privileged bool) commands.UpdateApplicationCommand {
	return commands.UpdateApplicationCommand{
		ApplicationID: id,
		Customer:      p.Customer,
		Profile:       p.Profile,
		Vehicles:      p.Vehicles,
		Contract:      p.Contract,
		Privileged:    privileged,
	}
}
