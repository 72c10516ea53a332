package commands

import (
	"context"
	"fmt"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// UpdatePaymentInformationCommand issues a new checkout for a contract,
// typically to recover from PAYMENT_RENEWAL_ERROR.
type UpdatePaymentInformationCommand struct {
	ContractID uuid.UUID `validate:"required"`
}

// UpdatePaymentInformationResult carries the new checkout.
type UpdatePaymentInformationResult struct {
	ContractID  uuid.UUID
	CheckoutURL string
}

// UpdatePaymentInformationHandler handles the UpdatePaymentInformationCommand.
type UpdatePaymentInformationHandler struct {
	contractRepo domain.Repository
	customerRepo customerDomain.Repository
	fleet        provisioning.Fleet
	gateway      billing.PaymentGateway
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewUpdatePaymentInformationHandler creates a new UpdatePaymentInformationHandler.
func NewUpdatePaymentInformationHandler(
	contractRepo domain.Repository,
	customerRepo customerDomain.Repository,
	fleet provisioning.Fleet,
	gateway billing.PaymentGateway,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *UpdatePaymentInformationHandler {
	return &UpdatePaymentInformationHandler{
		contractRepo: contractRepo,
		customerRepo: customerRepo,
		fleet:        fleet,
		gateway:      gateway,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle sizes the checkout to the vehicles currently on the contract.
func (h *UpdatePaymentInformationHandler) Handle(ctx context.Context, cmd UpdatePaymentInformationCommand) (*UpdatePaymentInformationResult, error) {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	contract, err := h.contractRepo.FindByID(ctx, cmd.ContractID)
	if err != nil {
		return nil, err
	}
	customer, err := h.customerRepo.FindByID(ctx, contract.Customer())
	if err != nil {
		return nil, fmt.Errorf("customer of contract %s: %w", contract.ID(), err)
	}
	vins, err := h.fleet.VehicleVINs(ctx, contract.ID())
	if err != nil {
		return nil, err
	}

	url, err := h.gateway.CreateCheckout(ctx, billing.CheckoutRequest{
		CustomerEmail:  customer.Contact().Email,
		Product:        contract.Product(),
		Quantity:       len(vins),
		ContractID:     contract.ID(),
		Gateway:        contract.Gateway(),
		IdempotencyKey: billing.CheckoutKey(contract.ID()),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout for contract %s: %w", contract.ID(), err)
	}
	if err := contract.RequestPayment(url); err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.contractRepo.Save(txCtx, contract); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, contract.Customer(), contract)
	})
	if err != nil {
		return nil, err
	}
	return &UpdatePaymentInformationResult{ContractID: contract.ID(), CheckoutURL: url}, nil
}
