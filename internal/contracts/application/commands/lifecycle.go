package commands

import (
	"context"

	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/google/uuid"
)

// Lifecycle is the contract side of the subscription application workflow.
// Open skips reference validation: callers check the customer and product
// before opening.
type Lifecycle struct {
	create *CreateContractHandler
	attach *AttachCheckoutHandler
	settle *SettleCheckoutHandler
}

// NewLifecycle creates a Lifecycle from its handlers.
func NewLifecycle(create *CreateContractHandler, attach *AttachCheckoutHandler, settle *SettleCheckoutHandler) *Lifecycle {
	return &Lifecycle{create: create, attach: attach, settle: settle}
}

func (l *Lifecycle) Open(ctx context.Context, cmd CreateContractCommand) (*CreateContractResult, error) {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	return l.create.open(ctx, cmd)
}

func (l *Lifecycle) AttachCheckout(ctx context.Context, contractID uuid.UUID, checkoutURL string) error {
	return l.attach.Handle(ctx, AttachCheckoutCommand{ContractID: contractID, CheckoutURL: checkoutURL})
}

func (l *Lifecycle) Settle(ctx context.Context, contractID uuid.UUID, outcome CheckoutOutcome) error {
	return l.settle.Handle(ctx, SettleCheckoutCommand{ContractID: contractID, Outcome: outcome})
}
