package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	notifications "github.com/felixgeelhaar/covera/internal/notifications/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CreateApplicationCommand contains the data needed to submit an application.
// Profile is merged into the customer once the application is accepted.
type CreateApplicationCommand struct {
	Customer uuid.UUID `validate:"required"`
	Profile  customerDomain.Profile
	Vehicles []domain.ProposedVehicle `validate:"required,min=1"`
	Contract domain.ContractDescriptor
}

// CreateApplicationResult contains the result of submitting an application.
type CreateApplicationResult struct {
	ApplicationID uuid.UUID
	Ref           string
}

// Deps groups the collaborators of the application command handlers.
type Deps struct {
	Applications domain.Repository
	Customers    customerDomain.Repository
	Provisioning provisioning.Provisioning
	Notifier     notifications.Notifier
	OutboxRepo   outbox.Repository
	UnitOfWork   sharedApplication.UnitOfWork
	Logger       *slog.Logger
}

func (d Deps) checker() checker {
	return checker{
		applications: d.Applications,
		customers:    d.Customers,
		provisioning: d.Provisioning,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// CreateApplicationHandler handles the CreateApplicationCommand.
type CreateApplicationHandler struct {
	deps   Deps
	checks checker
	logger *slog.Logger
}

// NewCreateApplicationHandler creates a new CreateApplicationHandler.
func NewCreateApplicationHandler(deps Deps) *CreateApplicationHandler {
	return &CreateApplicationHandler{deps: deps, checks: deps.checker(), logger: deps.logger()}
}

// Handle checks the customer, every document and every VIN, then stores the
// application under the next reference and notifies the insurer.
func (h *CreateApplicationHandler) Handle(ctx context.Context, cmd CreateApplicationCommand) (*CreateApplicationResult, error) {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	var v sharedDomain.Violations
	customer, err := h.checks.customer(ctx, cmd.Customer, &v)
	if err != nil {
		return nil, err
	}
	if err := h.checks.profile(ctx, cmd.Profile, &v); err != nil {
		return nil, err
	}
	if err := h.checks.contract(ctx, cmd.Contract, &v); err != nil {
		return nil, err
	}
	if err := h.checks.vehicles(ctx, cmd.Vehicles, nil, &v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var (
		application *domain.Application
		effects     []domain.Effect
	)
	err = sharedApplication.WithUnitOfWork(ctx, h.deps.UnitOfWork, func(txCtx context.Context) error {
		last, err := h.deps.Applications.LastReference(txCtx)
		if err != nil {
			return err
		}
		ref, err := sharedDomain.NextReference(last)
		if err != nil {
			return fmt.Errorf("next application reference: %w", err)
		}

		application, effects, err = domain.NewApplication(ref, customer.ID(), cmd.Vehicles, cmd.Contract)
		if err != nil {
			return err
		}
		if err := h.deps.Applications.Save(txCtx, application); err != nil {
			return err
		}

		customer.MergeProfile(cmd.Profile)
		if len(customer.DomainEvents()) > 0 {
			if err := h.deps.Customers.Save(txCtx, customer); err != nil {
				return err
			}
		}
		return sharedApplication.RecordEvents(txCtx, h.deps.OutboxRepo, customer.ID(), application, customer)
	})
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "subscription application created",
		"application_id", application.ID(),
		"ref", application.Ref(),
		"customer_id", customer.ID(),
	)
	notify(ctx, h.deps.Notifier, application, effects, "")

	return &CreateApplicationResult{ApplicationID: application.ID(), Ref: application.Ref()}, nil
}
