// Package credentials asks the identity provider to revoke device clients.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/eventbus"
)

// RevokeRoutingKey is the routing key the identity provider bridge listens on.
const RevokeRoutingKey = "identity.device_client.revoke"

type revokeRequest struct {
	ClientID    string    `json:"client_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// PublisherRevoker publishes revocation requests on the event bus.
type PublisherRevoker struct {
	publisher eventbus.Publisher
}

// NewPublisherRevoker creates a revoker publishing through publisher.
func NewPublisherRevoker(publisher eventbus.Publisher) *PublisherRevoker {
	return &PublisherRevoker{publisher: publisher}
}

// Revoke requests the removal of the machine credential clientID.
func (r *PublisherRevoker) Revoke(ctx context.Context, clientID string) error {
	payload, err := json.Marshal(revokeRequest{ClientID: clientID, RequestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.publisher.Publish(ctx, RevokeRoutingKey, payload); err != nil {
		return fmt.Errorf("%w: revoke client %s: %v", sharedDomain.ErrDependency, clientID, err)
	}
	return nil
}
