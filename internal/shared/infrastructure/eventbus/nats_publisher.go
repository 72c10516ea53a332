package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes fire-and-forget messages on core NATS subjects.
// Device commands use it; they are not persisted in the stream.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to NATS under the given client name.
func NewNATSPublisher(url, name string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS publisher connected", "name", name)
	return &NATSPublisher{nc: nc, logger: logger}, nil
}

// Publish sends payload on the subject given as routing key.
func (p *NATSPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.nc.Publish(routingKey, payload); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish message",
			"subject", routingKey,
			"error", err,
		)
		return err
	}
	p.logger.DebugContext(ctx, "message published",
		"subject", routingKey,
		"size", len(payload),
	)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
