package commands

import (
	"context"
	"errors"
	"fmt"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CreateCustomerCommand contains the data needed to create a customer.
type CreateCustomerCommand struct {
	AuthServerUserID string `validate:"required"`
	Email            string `validate:"required,email"`
	FirstName        string `validate:"required"`
	LastName         string `validate:"required"`
	FullName         string
}

// CreateCustomerResult contains the result of creating a customer.
type CreateCustomerResult struct {
	CustomerID uuid.UUID
	Created    bool
}

// CreateCustomerHandler handles the CreateCustomerCommand.
type CreateCustomerHandler struct {
	customerRepo domain.Repository
	gateway      billing.PaymentGateway
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewCreateCustomerHandler creates a new CreateCustomerHandler.
func NewCreateCustomerHandler(
	customerRepo domain.Repository,
	gateway billing.PaymentGateway,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *CreateCustomerHandler {
	return &CreateCustomerHandler{
		customerRepo: customerRepo,
		gateway:      gateway,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle executes the CreateCustomerCommand. A customer already bound to the
// authorization-server user is returned as is.
func (h *CreateCustomerHandler) Handle(ctx context.Context, cmd CreateCustomerCommand) (*CreateCustomerResult, error) {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	existing, err := h.customerRepo.FindByAuthServerUserID(ctx, cmd.AuthServerUserID)
	switch {
	case err == nil:
		return &CreateCustomerResult{CustomerID: existing.ID()}, nil
	case !errors.Is(err, domain.ErrCustomerNotFound):
		return nil, err
	}

	customer, err := domain.NewCustomer(cmd.AuthServerUserID, cmd.Email, cmd.FirstName, cmd.LastName, cmd.FullName)
	if err != nil {
		return nil, err
	}

	gatewayCustomerID, err := h.gateway.CreateCustomer(ctx, customer.Contact().Email, customer.FullName(), billing.DefaultGateway)
	if err != nil {
		return nil, fmt.Errorf("create gateway customer: %w", err)
	}
	if err := customer.AttachGatewayCustomer(gatewayCustomerID); err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.customerRepo.Save(txCtx, customer); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, customer.ID(), customer)
	})
	if err != nil {
		return nil, err
	}

	return &CreateCustomerResult{CustomerID: customer.ID(), Created: true}, nil
}
