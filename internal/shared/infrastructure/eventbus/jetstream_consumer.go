package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamConsumerConfig configures a durable JetStream consumer.
type JetStreamConsumerConfig struct {
	URL      string
	Stream   string
	Subjects []string
	Durable  string
	Decoder  Decoder
	Logger   *slog.Logger
}

// JetStreamConsumer delivers messages from a JetStream stream to the registry
// one at a time. Messages are acked after dispatch succeeds and terminated
// when it fails, so a poison message never blocks the stream.
type JetStreamConsumer struct {
	nc       *nats.Conn
	consumer jetstream.Consumer
	decoder  Decoder
	registry *ConsumerRegistry
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewJetStreamConsumer connects to NATS and ensures the stream and durable
// consumer exist.
func NewJetStreamConsumer(ctx context.Context, cfg JetStreamConsumerConfig, registry *ConsumerRegistry) (*JetStreamConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = DecodeConsumedEvent
	}

	nc, err := nats.Connect(cfg.URL, nats.Name(cfg.Durable))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open jetstream: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: cfg.Subjects,
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:        cfg.Durable,
		DeliverPolicy:  jetstream.DeliverAllPolicy,
		AckPolicy:      jetstream.AckExplicitPolicy,
		MaxAckPending:  1,
		FilterSubjects: cfg.Subjects,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure consumer %s: %w", cfg.Durable, err)
	}

	cfg.Logger.Info("JetStream consumer connected",
		"stream", cfg.Stream,
		"durable", cfg.Durable,
		"subjects", cfg.Subjects,
	)

	return &JetStreamConsumer{
		nc:       nc,
		consumer: consumer,
		decoder:  cfg.Decoder,
		registry: registry,
		logger:   cfg.Logger,
	}, nil
}

// RegisterConsumer registers an event consumer.
func (c *JetStreamConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)
}

// Start consumes until ctx is cancelled.
func (c *JetStreamConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	<-ctx.Done()
	consumeCtx.Drain()
	consumeCtx.Stop()

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return ctx.Err()
}

func (c *JetStreamConsumer) handle(ctx context.Context, msg jetstream.Msg) {
	event, err := c.decoder(msg.Subject(), msg.Data())
	if err != nil {
		c.logger.Error("failed to decode event",
			"subject", msg.Subject(),
			"error", err,
		)
		observability.EventsConsumed.WithLabelValues("jetstream", "malformed").Inc()
		if termErr := msg.Term(); termErr != nil {
			c.logger.Error("failed to terminate message", "error", termErr)
		}
		return
	}
	if event == nil {
		observability.EventsConsumed.WithLabelValues("jetstream", "ignored").Inc()
		if ackErr := msg.Ack(); ackErr != nil {
			c.logger.Error("failed to ack message", "error", ackErr)
		}
		return
	}

	if err := dispatch(ctx, c.registry, c.logger, event); err != nil {
		observability.EventsConsumed.WithLabelValues("jetstream", "terminated").Inc()
		if termErr := msg.Term(); termErr != nil {
			c.logger.Error("failed to terminate message", "error", termErr)
		}
		return
	}

	observability.EventsConsumed.WithLabelValues("jetstream", "acked").Inc()
	if ackErr := msg.Ack(); ackErr != nil {
		c.logger.Error("failed to ack message", "error", ackErr)
	}
}

// Close drains the NATS connection.
func (c *JetStreamConsumer) Close() error {
	if c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		return err
	}
	c.logger.Info("JetStream consumer closed")
	return nil
}
