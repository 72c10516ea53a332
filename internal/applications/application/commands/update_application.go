package commands

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// UpdateApplicationCommand edits an application. Nil fields are kept and a
// non-nil Vehicles replaces the whole list. Privileged is set for reviewers,
// who may also edit an application under review and correct its Customer.
type UpdateApplicationCommand struct {
	ApplicationID uuid.UUID `validate:"required"`
	Customer      *uuid.UUID
	Profile       customerDomain.Profile
	Vehicles      *[]domain.ProposedVehicle
	Contract      *domain.ContractDescriptor
	Privileged    bool
}

// UpdateApplicationHandler handles the UpdateApplicationCommand.
type UpdateApplicationHandler struct {
	deps   Deps
	checks checker
	logger *slog.Logger
}

// NewUpdateApplicationHandler creates a new UpdateApplicationHandler.
func NewUpdateApplicationHandler(deps Deps) *UpdateApplicationHandler {
	return &UpdateApplicationHandler{deps: deps, checks: deps.checker(), logger: deps.logger()}
}

// Handle runs the create checks on the given fields only, then merges the
// application and the profile of its customer, the new one on reassignment.
func (h *UpdateApplicationHandler) Handle(ctx context.Context, cmd UpdateApplicationCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	application, err := h.deps.Applications.FindByID(ctx, cmd.ApplicationID)
	if err != nil {
		return err
	}
	if _, _, err := domain.Apply(application.Status(), domain.Update(cmd.Privileged)); err != nil {
		return err
	}

	var v sharedDomain.Violations
	owner := application.Customer()
	if cmd.Customer != nil && *cmd.Customer != owner {
		if !cmd.Privileged {
			v.Add("customer can only be changed by a reviewer")
		} else {
			owner = *cmd.Customer
		}
	}
	customer, err := h.checks.customer(ctx, owner, &v)
	if err != nil {
		return err
	}
	if err := h.checks.profile(ctx, cmd.Profile, &v); err != nil {
		return err
	}
	if cmd.Contract != nil {
		if err := h.checks.contract(ctx, *cmd.Contract, &v); err != nil {
			return err
		}
	}
	if cmd.Vehicles != nil {
		if len(*cmd.Vehicles) == 0 {
			v.Add("vehicles must be at least 1")
		}
		self := application.ID()
		if err := h.checks.vehicles(ctx, *cmd.Vehicles, &self, &v); err != nil {
			return err
		}
	}
	if err := v.Err(); err != nil {
		return err
	}

	return sharedApplication.WithUnitOfWork(ctx, h.deps.UnitOfWork, func(txCtx context.Context) error {
		changed, err := application.Update(domain.Patch{
			Customer: cmd.Customer,
			Vehicles: cmd.Vehicles,
			Contract: cmd.Contract,
		}, cmd.Privileged)
		if err != nil {
			return err
		}
		if changed {
			if err := h.deps.Applications.Save(txCtx, application); err != nil {
				return err
			}
		}

		customer.MergeProfile(cmd.Profile)
		if len(customer.DomainEvents()) > 0 {
			if err := h.deps.Customers.Save(txCtx, customer); err != nil {
				return err
			}
		}
		return sharedApplication.RecordEvents(txCtx, h.deps.OutboxRepo, customer.ID(), application, customer)
	})
}
