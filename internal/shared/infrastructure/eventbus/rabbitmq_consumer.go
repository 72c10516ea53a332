package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/covera/pkg/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultConsumerQueueName is the default queue name for consuming events.
	DefaultConsumerQueueName = "covera.consumer"
)

// RabbitMQConsumer consumes events from RabbitMQ. A failed dispatch rejects
// the message to the dead letter exchange when one is configured and requeues
// it otherwise.
type RabbitMQConsumer struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	exchange   string
	decoder    Decoder
	deadLetter bool
	registry   *ConsumerRegistry
	logger     *slog.Logger
	mu         sync.Mutex
	running    bool
	closeChan  chan struct{}
}

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL       string
	QueueName string
	Exchange  string
	// DeadLetterExchange receives rejected messages; a queue named
	// QueueName+".dead" is bound to it. Empty disables dead lettering and
	// failed messages are requeued instead.
	DeadLetterExchange string
	Decoder            Decoder
	Logger             *slog.Logger
}

// NewRabbitMQConsumer creates a new RabbitMQ consumer.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultConsumerQueueName
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}
	if cfg.Decoder == nil {
		cfg.Decoder = DecodeConsumedEvent
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	cfg.Logger.Info("RabbitMQ consumer connected",
		"queue", cfg.QueueName,
		"exchange", cfg.Exchange,
		"dead_letter_exchange", cfg.DeadLetterExchange,
	)

	return &RabbitMQConsumer{
		conn:       conn,
		channel:    ch,
		queue:      cfg.QueueName,
		exchange:   cfg.Exchange,
		decoder:    cfg.Decoder,
		deadLetter: cfg.DeadLetterExchange != "",
		registry:   registry,
		logger:     cfg.Logger,
		closeChan:  make(chan struct{}),
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg RabbitMQConsumerConfig) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	var args amqp.Table
	if cfg.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(cfg.DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter exchange: %w", err)
		}
		deadQueue := cfg.QueueName + ".dead"
		if _, err := ch.QueueDeclare(deadQueue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter queue: %w", err)
		}
		if err := ch.QueueBind(deadQueue, "", cfg.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind dead letter queue: %w", err)
		}
		args = amqp.Table{"x-dead-letter-exchange": cfg.DeadLetterExchange}
	}

	_, err = ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// RegisterConsumer registers an event consumer and binds its event types to the queue.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)

	for _, eventType := range consumer.EventTypes() {
		if err := c.bindQueue(eventType); err != nil {
			c.logger.Error("failed to bind queue for event type",
				"event_type", eventType,
				"error", err,
			)
		}
	}
}

// Bind binds an additional routing key without registering a consumer. The
// gateway publishes under its own keys, which the decoder maps to event types.
func (c *RabbitMQConsumer) Bind(routingKey string) error {
	return c.bindQueue(routingKey)
}

func (c *RabbitMQConsumer) bindQueue(routingKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.QueueBind(
		c.queue,
		routingKey,
		c.exchange,
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Debug("bound queue to routing key",
		"queue", c.queue,
		"routing_key", routingKey,
	)

	return nil
}

// Start begins consuming messages from the queue.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	// One message in flight at a time keeps per-queue processing ordered.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("started consuming events",
		"queue", c.queue,
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer context cancelled, stopping")
			return ctx.Err()

		case <-c.closeChan:
			c.logger.Info("consumer close requested, stopping")
			return nil

		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("message channel closed")
				return fmt.Errorf("message channel closed unexpectedly")
			}

			if err := c.processMessage(ctx, msg); err != nil {
				observability.EventsConsumed.WithLabelValues("rabbitmq", "rejected").Inc()
				if nackErr := msg.Nack(false, !c.deadLetter); nackErr != nil {
					c.logger.Error("failed to nack message", "error", nackErr)
				}
				continue
			}
			observability.EventsConsumed.WithLabelValues("rabbitmq", "acked").Inc()
			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("failed to ack message", "error", ackErr)
			}
		}
	}
}

func (c *RabbitMQConsumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	event, err := c.decoder(msg.RoutingKey, msg.Body)
	if err != nil {
		// Malformed messages are acked and dropped; redelivery cannot fix them.
		c.logger.Error("failed to decode event",
			"routing_key", msg.RoutingKey,
			"error", err,
		)
		return nil
	}
	if event == nil {
		return nil
	}

	return dispatch(ctx, c.registry, c.logger, event)
}

func dispatch(ctx context.Context, registry *ConsumerRegistry, logger *slog.Logger, event *ConsumedEvent) error {
	if event.Metadata.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, event.Metadata.CorrelationID)
	} else {
		ctx = observability.WithCorrelationID(ctx, event.EventID.String())
	}

	start := time.Now()
	err := registry.Dispatch(ctx, event)
	duration := time.Since(start)

	if err != nil {
		logger.ErrorContext(ctx, "event dispatch failed",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	logger.DebugContext(ctx, "event processed successfully",
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
		"duration_ms", duration.Milliseconds(),
	)

	return nil
}

// Close closes the consumer connection.
func (c *RabbitMQConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	close(c.closeChan)
	c.running = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("error closing channel", "error", err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return err
		}
	}

	c.logger.Info("RabbitMQ consumer closed")
	return nil
}
