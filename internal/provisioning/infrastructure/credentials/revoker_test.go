package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	err        error
	routingKey string
	payload    []byte
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.routingKey = routingKey
	p.payload = payload
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublisherRevoker_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes the client id", func(t *testing.T) {
		publisher := &recordingPublisher{}

		err := NewPublisherRevoker(publisher).Revoke(ctx, "device-1")

		require.NoError(t, err)
		assert.Equal(t, RevokeRoutingKey, publisher.routingKey)
		var got revokeRequest
		require.NoError(t, json.Unmarshal(publisher.payload, &got))
		assert.Equal(t, "device-1", got.ClientID)
		assert.False(t, got.RequestedAt.IsZero())
	})

	t.Run("broker failure is a dependency error", func(t *testing.T) {
		publisher := &recordingPublisher{err: errors.New("broker down")}

		err := NewPublisherRevoker(publisher).Revoke(ctx, "device-1")

		assert.ErrorIs(t, err, sharedDomain.ErrDependency)
	})
}
