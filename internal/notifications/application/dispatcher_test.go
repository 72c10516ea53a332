package application

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/covera/internal/notifications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Save(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockRepo) List(ctx context.Context, filter domain.ListFilter, page sharedDomain.Page) ([]*domain.Notification, int, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]*domain.Notification), args.Int(1), args.Error(2)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	return m.Called(ctx, routingKey, payload).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) AuthServerUserIDs(ctx context.Context, customerIDs []uuid.UUID) ([]string, error) {
	args := m.Called(ctx, customerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestDispatcher_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("insurer notifications go to the supervisor key", func(t *testing.T) {
		repo, pub := new(mockRepo), new(mockPublisher)
		d := NewDispatcher(repo, pub, new(mockDirectory), nil)

		repo.On("Save", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)
		pub.On("Publish", ctx, "frontend.supervisor.notification", mock.Anything).Return(nil)

		err := d.Send(ctx, domain.Request{Type: domain.TypeApplicationPending, Audience: domain.AudienceInsurer})

		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("customer notifications go to each user key", func(t *testing.T) {
		repo, pub, dir := new(mockRepo), new(mockPublisher), new(mockDirectory)
		d := NewDispatcher(repo, pub, dir, nil)
		customerID := uuid.New()

		repo.On("Save", ctx, mock.Anything).Return(nil)
		dir.On("AuthServerUserIDs", ctx, []uuid.UUID{customerID}).Return([]string{"kc-1"}, nil)
		pub.On("Publish", ctx, "frontend.users.kc-1.notification", mock.Anything).Return(nil)

		err := d.Send(ctx, domain.Request{
			Type:      domain.TypeApplicationRejected,
			Audience:  domain.AudienceCustomer,
			Receivers: []uuid.UUID{customerID},
		})

		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("persistence failure skips the push", func(t *testing.T) {
		repo, pub := new(mockRepo), new(mockPublisher)
		d := NewDispatcher(repo, pub, new(mockDirectory), nil)

		repo.On("Save", ctx, mock.Anything).Return(errors.New("db down"))

		err := d.Send(ctx, domain.Request{Type: domain.TypeApplicationPending, Audience: domain.AudienceAdmin})

		assert.Error(t, err)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDispatcher_Notify(t *testing.T) {
	repo, pub := new(mockRepo), new(mockPublisher)
	d := NewDispatcher(repo, pub, new(mockDirectory), nil)

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, "frontend.admin.notification", mock.Anything).Return(errors.New("broker down"))

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), domain.Request{Type: domain.TypeApplicationPending, Audience: domain.AudienceAdmin})
	})
	pub.AssertExpectations(t)
}
