package commands

import (
	"context"

	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	"github.com/google/uuid"
)

// ContractLifecycle is the part of the contracts context an application
// drives through its approval and payment.
type ContractLifecycle interface {
	Open(ctx context.Context, cmd contractCommands.CreateContractCommand) (*contractCommands.CreateContractResult, error)
	AttachCheckout(ctx context.Context, contractID uuid.UUID, checkoutURL string) error
	Settle(ctx context.Context, contractID uuid.UUID, outcome contractCommands.CheckoutOutcome) error
}

var _ ContractLifecycle = (*contractCommands.Lifecycle)(nil)
