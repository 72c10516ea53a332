// Package subscribers reconciles the payment gateway events with the
// applications and contracts they concern.
package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/covera/internal/applications/application/commands"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	contractDomain "github.com/felixgeelhaar/covera/internal/contracts/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// Payment event types published by the ecommerce service.
const (
	EventCheckoutCanceled     = "CHECKOUT_CANCELED"
	EventCheckoutCompleted    = "CHECKOUT_COMPLETED"
	EventSubscriptionCanceled = "SUBSCRIPTION_CANCELED"
	EventSubscriptionError    = "SUBSCRIPTION_ERROR"
)

// PaymentEvent is the envelope of a payment gateway event.
type PaymentEvent struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Subject string           `json:"subject"`
	Time    time.Time        `json:"time"`
	Data    PaymentEventData `json:"data"`
}

// PaymentEventData correlates the event with a contract. Subscription is set
// once the gateway created the recurring subscription.
type PaymentEventData struct {
	Contract     string          `json:"contract"`
	Gateway      billing.Gateway `json:"gateway"`
	Subscription string          `json:"subscription,omitempty"`
}

// DecodePaymentEvent reads the payment envelope. The event type becomes the
// routing key and the whole envelope is kept as payload.
func DecodePaymentEvent(subject string, body []byte) (*eventbus.ConsumedEvent, error) {
	var env PaymentEvent
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode payment event: %w", err)
	}
	if env.Type == "" {
		return nil, errors.New("decode payment event: missing type")
	}

	event := &eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateType: "Contract",
		RoutingKey:    env.Type,
		OccurredAt:    env.Time,
		Payload:       json.RawMessage(body),
	}
	if id, err := uuid.Parse(env.ID); err == nil {
		event.EventID = id
	}
	if id, err := uuid.Parse(env.Data.Contract); err == nil {
		event.AggregateID = id
	}
	return event, nil
}

type (
	PaymentSettler interface {
		Handle(ctx context.Context, cmd commands.SettlePaymentCommand) error
	}
	SubscriptionUpdater interface {
		Handle(ctx context.Context, cmd contractCommands.UpdateSubscriptionCommand) error
	}
	ContractCanceler interface {
		Handle(ctx context.Context, cmd contractCommands.CancelContractCommand) error
	}
	PaymentErrorHandler interface {
		Handle(ctx context.Context, cmd contractCommands.HandlePaymentErrorCommand) error
	}
)

// PaymentEventDeps groups the handlers the reconciler dispatches to.
type PaymentEventDeps struct {
	Settle             PaymentSettler
	UpdateSubscription SubscriptionUpdater
	CancelContract     ContractCanceler
	PaymentError       PaymentErrorHandler
	Logger             *slog.Logger
}

// PaymentEventConsumer applies payment gateway events. Deliveries are at
// least once and unordered: unknown contracts and outcomes the current state
// no longer accepts are logged and acknowledged. Other failures, stale
// versions included, are returned so the delivery is dead lettered.
type PaymentEventConsumer struct {
	settle             PaymentSettler
	updateSubscription SubscriptionUpdater
	cancelContract     ContractCanceler
	paymentError       PaymentErrorHandler
	logger             *slog.Logger
}

// NewPaymentEventConsumer creates a payment event consumer.
func NewPaymentEventConsumer(deps PaymentEventDeps) *PaymentEventConsumer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &PaymentEventConsumer{
		settle:             deps.Settle,
		updateSubscription: deps.UpdateSubscription,
		cancelContract:     deps.CancelContract,
		paymentError:       deps.PaymentError,
		logger:             deps.Logger,
	}
}

// EventTypes returns the payment event types handled.
func (c *PaymentEventConsumer) EventTypes() []string {
	return []string{
		EventCheckoutCanceled,
		EventCheckoutCompleted,
		EventSubscriptionCanceled,
		EventSubscriptionError,
	}
}

// Handle processes one payment event.
func (c *PaymentEventConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var env PaymentEvent
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		c.logger.WarnContext(ctx, "dropping malformed payment event", "error", err)
		return nil
	}
	contractID, err := uuid.Parse(strings.TrimSpace(env.Data.Contract))
	if err != nil {
		c.logger.WarnContext(ctx, "dropping payment event without contract",
			"type", env.Type,
			"contract", env.Data.Contract,
		)
		return nil
	}
	gateway := env.Data.Gateway
	if gateway == "" {
		gateway = billing.DefaultGateway
	}

	switch env.Type {
	case EventCheckoutCanceled:
		err = c.settle.Handle(ctx, commands.SettlePaymentCommand{
			ContractID: contractID,
			Gateway:    gateway,
			Outcome:    contractCommands.CheckoutCanceled,
		})
	case EventCheckoutCompleted:
		err = c.handleCheckoutCompleted(ctx, contractID, gateway, env.Data.Subscription)
	case EventSubscriptionCanceled:
		err = c.cancelContract.Handle(ctx, contractCommands.CancelContractCommand{
			ContractID: contractID,
			Target:     contractDomain.StatusCanceled,
		})
	case EventSubscriptionError:
		err = c.paymentError.Handle(ctx, contractCommands.HandlePaymentErrorCommand{ContractID: contractID})
	default:
		c.logger.InfoContext(ctx, "no handler for payment event", "type", env.Type)
		return nil
	}
	return c.outcome(ctx, env, contractID, err)
}

func (c *PaymentEventConsumer) handleCheckoutCompleted(ctx context.Context, contractID uuid.UUID, gateway billing.Gateway, subscription string) error {
	err := c.settle.Handle(ctx, commands.SettlePaymentCommand{
		ContractID: contractID,
		Gateway:    gateway,
		Outcome:    contractCommands.CheckoutCompleted,
	})
	if err != nil {
		return err
	}
	if subscription == "" {
		return nil
	}
	return c.updateSubscription.Handle(ctx, contractCommands.UpdateSubscriptionCommand{
		ContractID:     contractID,
		SubscriptionID: subscription,
	})
}

// outcome decides whether a handler error is acknowledged or returned.
func (c *PaymentEventConsumer) outcome(ctx context.Context, env PaymentEvent, contractID uuid.UUID, err error) error {
	switch {
	case err == nil:
		c.logger.InfoContext(ctx, "payment event applied",
			"type", env.Type,
			"event_id", env.ID,
			"contract_id", contractID,
		)
		return nil
	case errors.Is(err, sharedDomain.ErrNotFound),
		errors.Is(err, sharedDomain.ErrInvalidTransition),
		errors.Is(err, sharedDomain.ErrValidation):
		c.logger.WarnContext(ctx, "payment event skipped",
			"type", env.Type,
			"event_id", env.ID,
			"contract_id", contractID,
			"reason", err.Error(),
		)
		return nil
	}
	return fmt.Errorf("handle %s for contract %s: %w", env.Type, contractID, err)
}
