package commands

import (
	"context"
	"fmt"
	"log/slog"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CancelContractCommand ends a contract with Target, CANCELED or
// PAYMENT_RENEWAL_ERROR. Contracts in any status are accepted.
type CancelContractCommand struct {
	ContractID uuid.UUID     `validate:"required"`
	Target     domain.Status `validate:"required,oneof=CANCELED PAYMENT_RENEWAL_ERROR"`
}

// CancelContractHandler handles the CancelContractCommand.
type CancelContractHandler struct {
	contractRepo domain.Repository
	customerRepo customerDomain.Repository
	gateway      billing.PaymentGateway
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
	logger       *slog.Logger
}

// NewCancelContractHandler creates a new CancelContractHandler.
func NewCancelContractHandler(
	contractRepo domain.Repository,
	customerRepo customerDomain.Repository,
	gateway billing.PaymentGateway,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *CancelContractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelContractHandler{
		contractRepo: contractRepo,
		customerRepo: customerRepo,
		gateway:      gateway,
		outboxRepo:   outboxRepo,
		uow:          uow,
		logger:       logger,
	}
}

// Handle cancels the gateway subscription then stores the target status.
func (h *CancelContractHandler) Handle(ctx context.Context, cmd CancelContractCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	contract, err := h.contractRepo.FindByID(ctx, cmd.ContractID)
	if err != nil {
		return err
	}
	customer, err := h.customerRepo.FindByID(ctx, contract.Customer())
	if err != nil {
		return fmt.Errorf("customer of contract %s: %w", contract.ID(), err)
	}

	effects, err := contract.Apply(domain.CancelTo(cmd.Target))
	if err != nil {
		return err
	}
	for _, effect := range effects {
		if effect != domain.EffectCancelGatewaySubscription {
			continue
		}
		gatewayCustomerID := customer.GatewayCustomerID()
		if gatewayCustomerID == "" {
			h.logger.WarnContext(ctx, "customer has no gateway account, skipping subscription cancel",
				"contract_id", contract.ID(), "customer_id", customer.ID())
			continue
		}
		if err := h.gateway.CancelSubscription(ctx, gatewayCustomerID, contract.ID(), contract.Gateway()); err != nil {
			return fmt.Errorf("cancel subscription of contract %s: %w", contract.ID(), err)
		}
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.contractRepo.Save(txCtx, contract); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, contract.Customer(), contract)
	})
}

// HandlePaymentErrorCommand marks a contract whose renewal payment failed.
type HandlePaymentErrorCommand struct {
	ContractID uuid.UUID `validate:"required"`
}

// HandlePaymentErrorHandler handles the HandlePaymentErrorCommand by
// canceling the contract with PAYMENT_RENEWAL_ERROR, gateway cancel included.
type HandlePaymentErrorHandler struct {
	contractRepo domain.Repository
	cancel       *CancelContractHandler
}

// NewHandlePaymentErrorHandler creates a new HandlePaymentErrorHandler.
func NewHandlePaymentErrorHandler(contractRepo domain.Repository, cancel *CancelContractHandler) *HandlePaymentErrorHandler {
	return &HandlePaymentErrorHandler{contractRepo: contractRepo, cancel: cancel}
}

// Handle executes the HandlePaymentErrorCommand.
func (h *HandlePaymentErrorHandler) Handle(ctx context.Context, cmd HandlePaymentErrorCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}
	if _, err := h.contractRepo.FindByID(ctx, cmd.ContractID); err != nil {
		return err
	}
	return h.cancel.Handle(ctx, CancelContractCommand{
		ContractID: cmd.ContractID,
		Target:     domain.StatusPaymentRenewalError,
	})
}
