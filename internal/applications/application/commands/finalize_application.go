package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	contractDomain "github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// FinalizeApplicationCommand ends the review of an application with Status,
// one of PAYMENT_PENDING, REJECTED or TO_AMMEND.
type FinalizeApplicationCommand struct {
	ApplicationID uuid.UUID     `validate:"required"`
	Status        domain.Status `validate:"required"`
	Comment       string
}

// FinalizeApplicationResult carries the checkout issued on approval.
type FinalizeApplicationResult struct {
	Status      domain.Status
	ContractID  *uuid.UUID
	CheckoutURL string
}

// FinalizeApplicationHandler handles the FinalizeApplicationCommand.
type FinalizeApplicationHandler struct {
	deps      Deps
	contracts ContractLifecycle
	gateway   billing.PaymentGateway
	logger    *slog.Logger
}

// NewFinalizeApplicationHandler creates a new FinalizeApplicationHandler.
func NewFinalizeApplicationHandler(deps Deps, contracts ContractLifecycle, gateway billing.PaymentGateway) *FinalizeApplicationHandler {
	return &FinalizeApplicationHandler{deps: deps, contracts: contracts, gateway: gateway, logger: deps.logger()}
}

// Handle finalizes the review. Approval opens a PAYMENT_PENDING contract,
// registers one vehicle per proposed vehicle and issues a checkout sized to
// them, all in one unit of work: a failing checkout leaves no contract and
// no vehicle behind.
func (h *FinalizeApplicationHandler) Handle(ctx context.Context, cmd FinalizeApplicationCommand) (*FinalizeApplicationResult, error) {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	application, err := h.deps.Applications.FindByID(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, err
	}
	_, planned, err := domain.Apply(application.Status(), domain.Finalize(cmd.Status))
	if err != nil {
		return nil, err
	}

	var customer *customerDomain.Customer
	if slices.Contains(planned, domain.EffectOpenContract) {
		if customer, err = h.deps.Customers.FindByID(ctx, application.Customer()); err != nil {
			return nil, err
		}
		var v sharedDomain.Violations
		descriptor := application.Contract()
		if err := contractCommands.CheckProduct(ctx, h.gateway, descriptor.EcommerceProduct, descriptor.EcommerceGateway, &v); err != nil {
			return nil, err
		}
		if err := v.Err(); err != nil {
			return nil, err
		}
	}

	var (
		effects     []domain.Effect
		checkoutURL string
	)
	err = sharedApplication.WithUnitOfWork(ctx, h.deps.UnitOfWork, func(txCtx context.Context) error {
		effects, err = application.Apply(domain.Finalize(cmd.Status), cmd.Comment)
		if err != nil {
			return err
		}

		var contractID uuid.UUID
		for _, effect := range effects {
			switch effect {
			case domain.EffectOpenContract:
				contractID, err = h.openContract(txCtx, application)
			case domain.EffectProvisionVehicles:
				err = h.provisionVehicles(txCtx, application, contractID)
			case domain.EffectIssueCheckout:
				checkoutURL, err = h.issueCheckout(txCtx, application, customer, contractID)
			}
			if err != nil {
				return err
			}
		}

		if err := h.deps.Applications.Save(txCtx, application); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.deps.OutboxRepo, application.Customer(), application)
	})
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "subscription application finalized",
		"application_id", application.ID(),
		"status", application.Status(),
	)
	notify(ctx, h.deps.Notifier, application, effects, checkoutURL)

	result := &FinalizeApplicationResult{Status: application.Status(), CheckoutURL: checkoutURL}
	if id, ok := application.LinkedContract(); ok {
		result.ContractID = &id
	}
	return result, nil
}

func (h *FinalizeApplicationHandler) openContract(ctx context.Context, application *domain.Application) (uuid.UUID, error) {
	descriptor := application.Contract()
	opened, err := h.contracts.Open(ctx, contractCommands.CreateContractCommand{
		Customer:       application.Customer(),
		Product:        descriptor.EcommerceProduct,
		Gateway:        descriptor.EcommerceGateway,
		ContractDocURL: descriptor.ContractDocURL,
		Status:         contractDomain.StatusPaymentPending,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("open contract: %w", err)
	}
	return opened.ContractID, nil
}

func (h *FinalizeApplicationHandler) provisionVehicles(ctx context.Context, application *domain.Application, contractID uuid.UUID) error {
	for _, vehicle := range application.Vehicles() {
		if _, err := h.deps.Provisioning.CreateVehicle(ctx, vehicle.VehicleSpec(contractID, application.Customer())); err != nil {
			return fmt.Errorf("create vehicle %s: %w", vehicle.VIN, err)
		}
	}
	return nil
}

func (h *FinalizeApplicationHandler) issueCheckout(ctx context.Context, application *domain.Application, customer *customerDomain.Customer, contractID uuid.UUID) (string, error) {
	descriptor := application.Contract()
	url, err := h.gateway.CreateCheckout(ctx, billing.CheckoutRequest{
		CustomerEmail:  customer.Contact().Email,
		Product:        descriptor.EcommerceProduct,
		Quantity:       len(application.Vehicles()),
		ContractID:     contractID,
		Gateway:        descriptor.EcommerceGateway,
		IdempotencyKey: billing.CheckoutKey(contractID),
	})
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	if err := h.contracts.AttachCheckout(ctx, contractID, url); err != nil {
		return "", err
	}
	if err := application.LinkContract(contractID); err != nil {
		return "", err
	}
	return url, nil
}
