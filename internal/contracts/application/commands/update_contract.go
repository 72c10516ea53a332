package commands

import (
	"context"

	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// UpdateContractCommand changes the owner or the signed document of a contract.
type UpdateContractCommand struct {
	ContractID     uuid.UUID `validate:"required"`
	Customer       *uuid.UUID
	ContractDocURL *string
}

// UpdateContractHandler handles the UpdateContractCommand.
type UpdateContractHandler struct {
	contractRepo domain.Repository
	customerRepo customerDomain.Repository
	documents    sharedApplication.DocumentChecker
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewUpdateContractHandler creates a new UpdateContractHandler.
func NewUpdateContractHandler(
	contractRepo domain.Repository,
	customerRepo customerDomain.Repository,
	documents sharedApplication.DocumentChecker,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *UpdateContractHandler {
	return &UpdateContractHandler{
		contractRepo: contractRepo,
		customerRepo: customerRepo,
		documents:    documents,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle executes the UpdateContractCommand.
func (h *UpdateContractHandler) Handle(ctx context.Context, cmd UpdateContractCommand) (*domain.Contract, error) {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	contract, err := h.contractRepo.FindByID(ctx, cmd.ContractID)
	if err != nil {
		return nil, err
	}

	var v sharedDomain.Violations
	if cmd.Customer != nil {
		if err := requireCustomer(ctx, h.customerRepo, *cmd.Customer, &v); err != nil {
			return nil, err
		}
	}
	if cmd.ContractDocURL != nil {
		if err := checkContractDocument(ctx, h.documents, *cmd.ContractDocURL, &v); err != nil {
			return nil, err
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if !contract.UpdateDetails(domain.Details{Customer: cmd.Customer, ContractDocURL: cmd.ContractDocURL}) {
		return contract, nil
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
	return contract, nil
}
