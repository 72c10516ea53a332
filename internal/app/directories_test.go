package app

import (
	"context"
	"errors"
	"testing"

	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) Save(ctx context.Context, c *customerDomain.Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*customerDomain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customerDomain.Customer), args.Error(1)
}

func (m *mockCustomerRepo) FindByAuthServerUserID(ctx context.Context, authServerUserID string) (*customerDomain.Customer, error) {
	args := m.Called(ctx, authServerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customerDomain.Customer), args.Error(1)
}

func TestCustomerDirectory_CustomerExists(t *testing.T) {
	ctx := context.Background()
	customer, err := customerDomain.NewCustomer("auth-1", "jane@example.com", "Jane", "Doe", "")
	require.NoError(t, err)
	missing := uuid.New()
	broken := uuid.New()

	repo := new(mockCustomerRepo)
	repo.On("FindByID", ctx, customer.ID()).Return(customer, nil)
	repo.On("FindByID", ctx, missing).Return(nil, customerDomain.ErrCustomerNotFound)
	repo.On("FindByID", ctx, broken).Return(nil, errors.New("connection reset"))
	directory := &customerDirectory{customers: repo}

	ok, err := directory.CustomerExists(ctx, customer.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = directory.CustomerExists(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = directory.CustomerExists(ctx, broken)
	assert.Error(t, err)
}

func TestCustomerDirectory_AuthServerUserIDs(t *testing.T) {
	ctx := context.Background()
	first, err := customerDomain.NewCustomer("auth-1", "jane@example.com", "Jane", "Doe", "")
	require.NoError(t, err)
	second, err := customerDomain.NewCustomer("auth-2", "john@example.com", "John", "Doe", "")
	require.NoError(t, err)
	missing := uuid.New()

	repo := new(mockCustomerRepo)
	repo.On("FindByID", ctx, first.ID()).Return(first, nil)
	repo.On("FindByID", ctx, missing).Return(nil, customerDomain.ErrCustomerNotFound)
	repo.On("FindByID", ctx, second.ID()).Return(second, nil)

	users, err := (&customerDirectory{customers: repo}).AuthServerUserIDs(ctx, []uuid.UUID{first.ID(), missing, second.ID()})

	require.NoError(t, err)
	assert.Equal(t, []string{"auth-1", "auth-2"}, users)
}

func TestExists(t *testing.T) {
	ok, err := exists(struct{}{}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = exists[*struct{}](nil, customerDomain.ErrCustomerNotFound)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = exists[*struct{}](nil, errors.New("boom"))
	assert.Error(t, err)
}
