package commands

import (
	"context"

	"github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// UpdateCustomerCommand merges the non-empty parts of Profile into the customer.
type UpdateCustomerCommand struct {
	CustomerID uuid.UUID
	ActorID    uuid.UUID
	Profile    domain.Profile
}

// UpdateCustomerHandler handles the UpdateCustomerCommand.
type UpdateCustomerHandler struct {
	customerRepo domain.Repository
	documents    sharedApplication.DocumentChecker
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewUpdateCustomerHandler creates a new UpdateCustomerHandler.
func NewUpdateCustomerHandler(
	customerRepo domain.Repository,
	documents sharedApplication.DocumentChecker,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *UpdateCustomerHandler {
	return &UpdateCustomerHandler{
		customerRepo: customerRepo,
		documents:    documents,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle executes the UpdateCustomerCommand. Every referenced document must
// already be uploaded; nothing is written otherwise.
func (h *UpdateCustomerHandler) Handle(ctx context.Context, cmd UpdateCustomerCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		customer, err := h.customerRepo.FindByID(txCtx, cmd.CustomerID)
		if err != nil {
			return err
		}

		var v sharedDomain.Violations
		if err := sharedApplication.CheckDocuments(txCtx, h.documents, cmd.Profile.DocumentKeys(), &v); err != nil {
			return err
		}
		if err := v.Err(); err != nil {
			return err
		}

		customer.MergeProfile(cmd.Profile)
		if len(customer.DomainEvents()) == 0 {
			return nil
		}
		if err := h.customerRepo.Save(txCtx, customer); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, cmd.ActorID, customer)
	})
}
