package commands

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/google/uuid"
)

// SettlePaymentCommand reports how the checkout of an approved application
// ended. The application is found by its contract and gateway.
type SettlePaymentCommand struct {
	ContractID uuid.UUID                        `validate:"required"`
	Gateway    billing.Gateway                  `validate:"required"`
	Outcome    contractCommands.CheckoutOutcome `validate:"required,oneof=COMPLETED CANCELED"`
}

// SettlePaymentHandler handles the SettlePaymentCommand.
type SettlePaymentHandler struct {
	deps      Deps
	contracts ContractLifecycle
	logger    *slog.Logger
}

// NewSettlePaymentHandler creates a new SettlePaymentHandler.
func NewSettlePaymentHandler(deps Deps, contracts ContractLifecycle) *SettlePaymentHandler {
	return &SettlePaymentHandler{deps: deps, contracts: contracts, logger: deps.logger()}
}

// Handle confirms or cancels the payment of the application and settles its
// contract. A repeated outcome writes nothing and notifies nobody.
func (h *SettlePaymentHandler) Handle(ctx context.Context, cmd SettlePaymentCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	action := domain.ConfirmPayment()
	if cmd.Outcome == contractCommands.CheckoutCanceled {
		action = domain.CancelPayment()
	}

	var (
		application *domain.Application
		effects     []domain.Effect
	)
	err := sharedApplication.WithUnitOfWork(ctx, h.deps.UnitOfWork, func(txCtx context.Context) error {
		var err error
		application, err = h.deps.Applications.FindByContract(txCtx, cmd.ContractID, cmd.Gateway)
		if err != nil {
			return err
		}
		effects, err = application.Apply(action, "")
		if err != nil {
			return err
		}
		if len(effects) == 0 {
			return nil
		}

		for _, effect := range effects {
			switch effect {
			case domain.EffectActivateContract:
				err = h.contracts.Settle(txCtx, cmd.ContractID, contractCommands.CheckoutCompleted)
			case domain.EffectCancelContract:
				err = h.contracts.Settle(txCtx, cmd.ContractID, contractCommands.CheckoutCanceled)
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
		return err
	}
	if len(effects) == 0 {
		h.logger.DebugContext(ctx, "payment outcome already applied",
			"application_id", application.ID(),
			"contract_id", cmd.ContractID,
		)
		return nil
	}

	h.logger.InfoContext(ctx, "subscription application payment settled",
		"application_id", application.ID(),
		"contract_id", cmd.ContractID,
		"status", application.Status(),
	)
	notify(ctx, h.deps.Notifier, application, effects, "")
	return nil
}
