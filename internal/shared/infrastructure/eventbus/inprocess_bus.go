package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// InProcessEventBus delivers events synchronously to registered consumers.
// The CLI uses it to replay captured broker messages without a broker, and
// it stands in for RabbitMQ in development.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	decoder  Decoder
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewInProcessEventBus creates a bus that decodes outbox envelopes.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	return NewInProcessEventBusWithDecoder(logger, DecodeConsumedEvent)
}

// NewInProcessEventBusWithDecoder creates a bus that decodes payloads with decoder.
func NewInProcessEventBusWithDecoder(logger *slog.Logger, decoder Decoder) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	if decoder == nil {
		decoder = DecodeConsumedEvent
	}
	return &InProcessEventBus{
		registry: NewConsumerRegistry(logger),
		decoder:  decoder,
		logger:   logger,
	}
}

// RegisterConsumer registers an event consumer.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish implements Publisher. Decode and dispatch failures are logged and
// swallowed, matching fire-and-forget publishing.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if err := b.Deliver(ctx, routingKey, payload); err != nil {
		b.logger.Error("in-process delivery failed",
			"routing_key", routingKey,
			"error", err,
		)
	}
	return nil
}

// Deliver decodes payload and dispatches it, returning any decode or consumer error.
func (b *InProcessEventBus) Deliver(ctx context.Context, routingKey string, payload []byte) error {
	event, err := b.decoder(routingKey, payload)
	if err != nil {
		return err
	}
	if event == nil {
		b.logger.Debug("event ignored by decoder", "routing_key", routingKey)
		return nil
	}
	return b.PublishConsumedEvent(ctx, event)
}

// PublishConsumedEvent dispatches a consumed event directly.
func (b *InProcessEventBus) PublishConsumedEvent(ctx context.Context, event *ConsumedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return dispatch(ctx, b.registry, b.logger, event)
}

// Close is a no-op for in-process bus.
func (b *InProcessEventBus) Close() error {
	return nil
}

// GetRegistry returns the underlying consumer registry.
func (b *InProcessEventBus) GetRegistry() *ConsumerRegistry {
	return b.registry
}
