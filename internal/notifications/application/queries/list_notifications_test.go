package queries

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/covera/internal/notifications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
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

func TestListNotificationsHandler_Handle(t *testing.T) {
	repo := new(mockRepo)
	n, err := domain.NewNotification(domain.Request{Type: domain.TypeApplicationPending, Audience: domain.AudienceInsurer})
	require.NoError(t, err)

	filter := domain.ListFilter{Audience: domain.AudienceInsurer}
	repo.On("List", mock.Anything, filter, sharedDomain.Page{Start: 0, Limit: sharedDomain.DefaultPageLimit}).
		Return([]*domain.Notification{n}, 1, nil)

	result, err := NewListNotificationsHandler(repo).Handle(context.Background(), ListNotificationsQuery{Filter: filter})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "insurer", result.Results[0].Audience)
	assert.Equal(t, sharedDomain.DefaultPageLimit, result.Limit)
}
