package commands

import (
	"context"

	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// UpdateSubscriptionCommand attaches the recurring subscription of the gateway.
type UpdateSubscriptionCommand struct {
	ContractID     uuid.UUID `validate:"required"`
	SubscriptionID string    `validate:"required"`
}

// UpdateSubscriptionHandler handles the UpdateSubscriptionCommand.
type UpdateSubscriptionHandler struct {
	contractRepo domain.Repository
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewUpdateSubscriptionHandler creates a new UpdateSubscriptionHandler.
func NewUpdateSubscriptionHandler(contractRepo domain.Repository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *UpdateSubscriptionHandler {
	return &UpdateSubscriptionHandler{contractRepo: contractRepo, outboxRepo: outboxRepo, uow: uow}
}

// Handle leaves the contract status untouched.
func (h *UpdateSubscriptionHandler) Handle(ctx context.Context, cmd UpdateSubscriptionCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		contract, err := h.contractRepo.FindByID(txCtx, cmd.ContractID)
		if err != nil {
			return err
		}
		if err := contract.AttachSubscription(cmd.SubscriptionID); err != nil {
			return err
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
