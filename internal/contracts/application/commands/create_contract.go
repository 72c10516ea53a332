package commands

import (
	"context"
	"errors"
	"fmt"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CreateContractCommand contains the data needed to open a contract.
type CreateContractCommand struct {
	Customer       uuid.UUID       `validate:"required"`
	Product        string          `validate:"required"`
	Gateway        billing.Gateway `validate:"required"`
	ContractDocURL string
	Status         domain.Status
}

// CreateContractResult contains the result of opening a contract.
type CreateContractResult struct {
	ContractID uuid.UUID
	Ref        string
}

// CreateContractHandler handles the CreateContractCommand.
type CreateContractHandler struct {
	contractRepo domain.Repository
	customerRepo customerDomain.Repository
	gateway      billing.PaymentGateway
	documents    sharedApplication.DocumentChecker
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewCreateContractHandler creates a new CreateContractHandler.
func NewCreateContractHandler(
	contractRepo domain.Repository,
	customerRepo customerDomain.Repository,
	gateway billing.PaymentGateway,
	documents sharedApplication.DocumentChecker,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *CreateContractHandler {
	return &CreateContractHandler{
		contractRepo: contractRepo,
		customerRepo: customerRepo,
		gateway:      gateway,
		documents:    documents,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle validates the customer, the gateway product and the contract
// document, then stores the contract under the next reference.
func (h *CreateContractHandler) Handle(ctx context.Context, cmd CreateContractCommand) (*CreateContractResult, error) {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	var v sharedDomain.Violations
	if err := requireCustomer(ctx, h.customerRepo, cmd.Customer, &v); err != nil {
		return nil, err
	}
	if err := CheckProduct(ctx, h.gateway, cmd.Product, cmd.Gateway, &v); err != nil {
		return nil, err
	}
	if err := checkContractDocument(ctx, h.documents, cmd.ContractDocURL, &v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	return h.open(ctx, cmd)
}

// open stores the contract without validating its references.
func (h *CreateContractHandler) open(ctx context.Context, cmd CreateContractCommand) (*CreateContractResult, error) {
	var result CreateContractResult
	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		last, err := h.contractRepo.LastReference(txCtx)
		if err != nil {
			return err
		}
		ref, err := sharedDomain.NextReference(last)
		if err != nil {
			return fmt.Errorf("next contract reference: %w", err)
		}

		contract, err := domain.NewContract(domain.Spec{
			Ref:            ref,
			Customer:       cmd.Customer,
			Product:        cmd.Product,
			Gateway:        cmd.Gateway,
			ContractDocURL: cmd.ContractDocURL,
			Status:         cmd.Status,
		})
		if err != nil {
			return err
		}
		if err := h.contractRepo.Save(txCtx, contract); err != nil {
			return err
		}
		result = CreateContractResult{ContractID: contract.ID(), Ref: contract.Ref()}
		return sharedApplication.RecordEvents(txCtx, h.outboxRepo, contract.Customer(), contract)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func requireCustomer(ctx context.Context, repo customerDomain.Repository, id uuid.UUID, v *sharedDomain.Violations) error {
	_, err := repo.FindByID(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, customerDomain.ErrCustomerNotFound):
		v.Add(fmt.Sprintf("customer %s must exists", id))
		return nil
	}
	return err
}

func checkContractDocument(ctx context.Context, documents sharedApplication.DocumentChecker, key string, v *sharedDomain.Violations) error {
	if key == "" {
		return nil
	}
	if msg := provisioning.CheckDocumentPrefix("contractDocURL", key, provisioning.ContractDocPrefix); msg != "" {
		v.Add(msg)
		return nil
	}
	return sharedApplication.CheckDocuments(ctx, documents, map[string]string{"contractDocURL": key}, v)
}
