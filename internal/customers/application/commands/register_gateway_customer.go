package commands

import (
	"context"
	"fmt"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// RegisterGatewayCustomerCommand registers an existing customer at the payment gateway.
type RegisterGatewayCustomerCommand struct {
	CustomerID uuid.UUID
}

// RegisterGatewayCustomerHandler handles the RegisterGatewayCustomerCommand.
type RegisterGatewayCustomerHandler struct {
	customerRepo domain.Repository
	gateway      billing.PaymentGateway
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewRegisterGatewayCustomerHandler creates a new RegisterGatewayCustomerHandler.
func NewRegisterGatewayCustomerHandler(
	customerRepo domain.Repository,
	gateway billing.PaymentGateway,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *RegisterGatewayCustomerHandler {
	return &RegisterGatewayCustomerHandler{
		customerRepo: customerRepo,
		gateway:      gateway,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle returns the gateway customer id, creating it when missing.
func (h *RegisterGatewayCustomerHandler) Handle(ctx context.Context, cmd RegisterGatewayCustomerCommand) (string, error) {
	customer, err := h.customerRepo.FindByID(ctx, cmd.CustomerID)
	if err != nil {
		return "", err
	}
	if id := customer.GatewayCustomerID(); id != "" {
		return id, nil
	}

	gatewayCustomerID, err := h.gateway.CreateCustomer(ctx, customer.Contact().Email, customer.FullName(), billing.DefaultGateway)
	if err != nil {
		return "", fmt.Errorf("create gateway customer: %w", err)
	}
	if err := customer.AttachGatewayCustomer(gatewayCustomerID); err != nil {
		return "", err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.customerRepo.Save(txCtx, customer); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, customer.ID(), customer)
	})
	if err != nil {
		return "", err
	}
	return gatewayCustomerID, nil
}
