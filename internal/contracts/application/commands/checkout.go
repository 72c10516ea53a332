package commands

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CheckoutOutcome is how a hosted checkout session ended.
type CheckoutOutcome string

const (
	CheckoutCompleted CheckoutOutcome = "COMPLETED"
	CheckoutCanceled  CheckoutOutcome = "CANCELED"
)

// AttachCheckoutCommand stores an issued checkout on a contract.
type AttachCheckoutCommand struct {
	ContractID  uuid.UUID `validate:"required"`
	CheckoutURL string    `validate:"required"`
}

// AttachCheckoutHandler handles the AttachCheckoutCommand.
type AttachCheckoutHandler struct {
	contractRepo domain.Repository
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewAttachCheckoutHandler creates a new AttachCheckoutHandler.
func NewAttachCheckoutHandler(contractRepo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *AttachCheckoutHandler {
	return &AttachCheckoutHandler{contractRepo: contractRepo, outboxRepo: outboxRepo, uow: uow}
}

// Handle moves the contract to PAYMENT_PENDING with the checkout URL.
func (h *AttachCheckoutHandler) Handle(ctx context.Context, cmd AttachCheckoutCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		contract, err := h.contractRepo.FindByID(txCtx, cmd.ContractID)
		if err != nil {
			return err
		}
		if err := contract.RequestPayment(cmd.CheckoutURL); err != nil {
			return err
		}
		if err := h.contractRepo.Save(txCtx, contract); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, contract.Customer(), contract)
	})
}

// SettleCheckoutCommand activates or cancels a contract once its checkout ends.
type SettleCheckoutCommand struct {
	ContractID uuid.UUID       `validate:"required"`
	Outcome    CheckoutOutcome `validate:"required,oneof=COMPLETED CANCELED"`
}

// SettleCheckoutHandler handles the SettleCheckoutCommand.
type SettleCheckoutHandler struct {
	contractRepo domain.Repository
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewSettleCheckoutHandler creates a new SettleCheckoutHandler.
func NewSettleCheckoutHandler(contractRepo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *SettleCheckoutHandler {
	return &SettleCheckoutHandler{contractRepo: contractRepo, outboxRepo: outboxRepo, uow: uow}
}

// Handle applies the outcome. Settling an already settled contract again
// writes nothing.
func (h *SettleCheckoutHandler) Handle(ctx context.Context, cmd SettleCheckoutCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	action := domain.Activate()
	if cmd.Outcome == CheckoutCanceled {
		action = domain.AbandonCheckout()
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		contract, err := h.contractRepo.FindByID(txCtx, cmd.ContractID)
		if err != nil {
			return err
		}
		if _, err := contract.Apply(action); err != nil {
			return fmt.Errorf("settle checkout: %w", err)
		}
		if len(contract.DomainEvents()) == 0 {
			return nil
		}
		if err := h.contractRepo.Save(txCtx, contract); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, contract.Customer(), contract)
	})
}
