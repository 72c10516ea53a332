// Package application persists notifications and pushes them to the
// frontends listening on the notifications exchange.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/covera/internal/notifications/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/google/uuid"
)

const (
	adminRoutingKey   = "frontend.admin.notification"
	insurerRoutingKey = "frontend.supervisor.notification"
)

// CustomerRoutingKey is the push routing key of one authorization-server user.
func CustomerRoutingKey(authServerUserID string) string {
	return fmt.Sprintf("frontend.users.%s.notification", authServerUserID)
}

// ReceiverDirectory resolves customer ids to authorization-server user ids.
type ReceiverDirectory interface {
	AuthServerUserIDs(ctx context.Context, customerIDs []uuid.UUID) ([]string, error)
}

type pushMessage struct {
	ID   uuid.UUID   `json:"id"`
	Type domain.Type `json:"type"`
}

// Dispatcher implements domain.Notifier.
type Dispatcher struct {
	repo      domain.Repository
	publisher eventbus.Publisher
	receivers ReceiverDirectory
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(repo domain.Repository, publisher eventbus.Publisher, receivers ReceiverDirectory, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:      repo,
		publisher: publisher,
		receivers: receivers,
		logger:    logger,
	}
}

// Notify persists then pushes the notification. Failures are logged.
func (d *Dispatcher) Notify(ctx context.Context, req domain.Request) {
	if err := d.Send(ctx, req); err != nil {
		observability.NotificationsSent.WithLabelValues(string(req.Audience), "failed").Inc()
		d.logger.WarnContext(ctx, "notification not delivered",
			"type", req.Type,
			"audience", req.Audience,
			"error", err,
		)
		return
	}
	observability.NotificationsSent.WithLabelValues(string(req.Audience), "sent").Inc()
}

// Send is Notify with the error returned.
func (d *Dispatcher) Send(ctx context.Context, req domain.Request) error {
	n, err := domain.NewNotification(req)
	if err != nil {
		return err
	}
	if err := d.repo.Save(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	payload, err := json.Marshal(pushMessage{ID: n.ID(), Type: n.Type()})
	if err != nil {
		return err
	}

	keys, err := d.routingKeys(ctx, n)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := d.publisher.Publish(ctx, key, payload); err != nil {
			return fmt.Errorf("push notification to %s: %w", key, err)
		}
	}
	return nil
}

func (d *Dispatcher) routingKeys(ctx context.Context, n *domain.Notification) ([]string, error) {
	switch n.Audience() {
	case domain.AudienceAdmin:
		return []string{adminRoutingKey}, nil
	case domain.AudienceInsurer:
		return []string{insurerRoutingKey}, nil
	}

	users, err := d.receivers.AuthServerUserIDs(ctx, n.Receivers())
	if err != nil {
		return nil, fmt.Errorf("resolve receivers: %w", err)
	}
	keys := make([]string, 0, len(users))
	for _, user := range users {
		keys = append(keys, CustomerRoutingKey(user))
	}
	return keys, nil
}
