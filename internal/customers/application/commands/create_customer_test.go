package commands

import (
	"context"
	"errors"
	"testing"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateCustomerHandler_Handle(t *testing.T) {
	cmd := CreateCustomerCommand{
		AuthServerUserID: "auth-1",
		Email:            "jane@example.com",
		FirstName:        "Jane",
		LastName:         "Doe",
	}

	t.Run("creates customer registered at the gateway", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		gateway := new(mockGateway)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewCreateCustomerHandler(repo, gateway, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")

		repo.On("FindByAuthServerUserID", ctx, "auth-1").Return(nil, domain.ErrCustomerNotFound)
		gateway.On("CreateCustomer", ctx, "jane@example.com", "Jane Doe", billing.GatewayStripe).Return("cus_1", nil)
		uow.On("Begin", ctx).Return(txCtx, nil)
		repo.On("Save", txCtx, mock.MatchedBy(func(c *domain.Customer) bool {
			return c.GatewayCustomerID() == "cus_1" && !c.IsInsurer()
		})).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		uow.On("Commit", txCtx).Return(nil)

		result, err := handler.Handle(ctx, cmd)

		require.NoError(t, err)
		assert.True(t, result.Created)
		repo.AssertExpectations(t)
		gateway.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
		uow.AssertExpectations(t)
	})

	t.Run("returns the existing customer for the same user", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		gateway := new(mockGateway)
		handler := NewCreateCustomerHandler(repo, gateway, new(mockOutboxRepo), new(mockUnitOfWork))

		existing := newTestCustomer()
		repo.On("FindByAuthServerUserID", mock.Anything, "auth-1").Return(existing, nil)

		result, err := handler.Handle(context.Background(), cmd)

		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.Equal(t, existing.ID(), result.CustomerID)
		gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an invalid payload before any call", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		handler := NewCreateCustomerHandler(repo, new(mockGateway), new(mockOutboxRepo), new(mockUnitOfWork))

		_, err := handler.Handle(context.Background(), CreateCustomerCommand{Email: "not-an-email"})

		var verr *sharedDomain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Violations, "AuthServerUserID is required")
		assert.Contains(t, verr.Violations, "Email must be a valid email address")
		repo.AssertNotCalled(t, "FindByAuthServerUserID", mock.Anything, mock.Anything)
	})

	t.Run("gateway failure writes nothing", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		gateway := new(mockGateway)
		uow := new(mockUnitOfWork)
		handler := NewCreateCustomerHandler(repo, gateway, new(mockOutboxRepo), uow)

		repo.On("FindByAuthServerUserID", mock.Anything, "auth-1").Return(nil, domain.ErrCustomerNotFound)
		gateway.On("CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", billing.ErrGatewayUnavailable)

		_, err := handler.Handle(context.Background(), cmd)

		assert.ErrorIs(t, err, sharedDomain.ErrDependency)
		uow.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("lookup errors are returned", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		handler := NewCreateCustomerHandler(repo, new(mockGateway), new(mockOutboxRepo), new(mockUnitOfWork))

		repo.On("FindByAuthServerUserID", mock.Anything, "auth-1").Return(nil, errors.New("db down"))

		_, err := handler.Handle(context.Background(), cmd)
		assert.EqualError(t, err, "db down")
	})
}

func TestRegisterGatewayCustomerHandler_Handle(t *testing.T) {
	t.Run("registers a customer without gateway id", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		gateway := new(mockGateway)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewRegisterGatewayCustomerHandler(repo, gateway, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		customer := newTestCustomer()

		repo.On("FindByID", ctx, customer.ID()).Return(customer, nil)
		gateway.On("CreateCustomer", ctx, "jane@example.com", "Jane Doe", billing.DefaultGateway).Return("cus_9", nil)
		uow.On("Begin", ctx).Return(txCtx, nil)
		repo.On("Save", txCtx, customer).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		uow.On("Commit", txCtx).Return(nil)

		id, err := handler.Handle(ctx, RegisterGatewayCustomerCommand{CustomerID: customer.ID()})

		require.NoError(t, err)
		assert.Equal(t, "cus_9", id)
		uow.AssertExpectations(t)
	})

	t.Run("keeps an existing gateway id", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		gateway := new(mockGateway)
		handler := NewRegisterGatewayCustomerHandler(repo, gateway, new(mockOutboxRepo), new(mockUnitOfWork))

		customer := newTestCustomer()
		require.NoError(t, customer.AttachGatewayCustomer("cus_1"))
		repo.On("FindByID", mock.Anything, customer.ID()).Return(customer, nil)

		id, err := handler.Handle(context.Background(), RegisterGatewayCustomerCommand{CustomerID: customer.ID()})

		require.NoError(t, err)
		assert.Equal(t, "cus_1", id)
		gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
