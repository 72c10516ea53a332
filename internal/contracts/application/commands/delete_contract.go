package commands

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// DeleteContractCommand removes a contract with its vehicles and devices.
type DeleteContractCommand struct {
	ContractID uuid.UUID `validate:"required"`
}

// DeleteContractHandler handles the DeleteContractCommand.
type DeleteContractHandler struct {
	contractRepo domain.Repository
	fleet        provisioning.Fleet
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewDeleteContractHandler creates a new DeleteContractHandler.
func NewDeleteContractHandler(contractRepo domain.Repository, fleet provisioning.Fleet, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *DeleteContractHandler {
	return &DeleteContractHandler{contractRepo: contractRepo, fleet: fleet, outboxRepo: outboxRepo, uow: uow}
}

// Handle deletes the fleet first; every device deletion revokes its
// credential.
func (h *DeleteContractHandler) Handle(ctx context.Context, cmd DeleteContractCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		contract, err := h.contractRepo.FindByID(txCtx, cmd.ContractID)
		if err != nil {
			return err
		}
		if err := h.fleet.DeleteContractFleet(txCtx, contract.ID()); err != nil {
			return fmt.Errorf("delete fleet of contract %s: %w", contract.ID(), err)
		}
		contract.MarkDeleted()
		if err := h.contractRepo.Delete(txCtx, contract.ID()); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, contract.Customer(), contract)
	})
}
