package commands

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateCustomerHandler_Handle(t *testing.T) {
	t.Run("merges the profile", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		docs := new(mockDocuments)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewUpdateCustomerHandler(repo, docs, outboxRepo, uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		customer := newTestCustomer()

		uow.On("Begin", ctx).Return(txCtx, nil)
		repo.On("FindByID", txCtx, customer.ID()).Return(customer, nil)
		docs.On("DocumentExists", txCtx, "customer/id-card/1.pdf").Return(true, nil)
		repo.On("Save", txCtx, customer).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateCustomerCommand{
			CustomerID: customer.ID(),
			Profile: domain.Profile{
				Billing:      &domain.Billing{City: "Lyon"},
				IdentityDocs: &domain.IdentityDocs{IDCardDocURL: "customer/id-card/1.pdf"},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "Lyon", customer.Billing().City)
		assert.Equal(t, "customer/id-card/1.pdf", customer.IdentityDocs().IDCardDocURL)
		repo.AssertExpectations(t)
		uow.AssertExpectations(t)
	})

	t.Run("missing document rejects the update", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		docs := new(mockDocuments)
		uow := new(mockUnitOfWork)
		handler := NewUpdateCustomerHandler(repo, docs, new(mockOutboxRepo), uow)

		ctx := context.Background()
		txCtx := context.WithValue(ctx, "tx", "transaction")
		customer := newTestCustomer()

		uow.On("Begin", ctx).Return(txCtx, nil)
		repo.On("FindByID", txCtx, customer.ID()).Return(customer, nil)
		docs.On("DocumentExists", txCtx, "customer/terms/1.pdf").Return(false, nil)
		uow.On("Rollback", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateCustomerCommand{
			CustomerID: customer.ID(),
			Profile: domain.Profile{
				Billing:     &domain.Billing{City: "Lyon"},
				PaymentDocs: &domain.PaymentDocs{TermsOfSaleDocURL: "customer/terms/1.pdf"},
			},
		})

		var verr *sharedDomain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{sharedApplication.MissingDocumentMessage("termsOfSaleDocURL")}, verr.Violations)
		assert.Empty(t, customer.Billing().City)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown customer", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		uow := new(mockUnitOfWork)
		handler := NewUpdateCustomerHandler(repo, new(mockDocuments), new(mockOutboxRepo), uow)

		ctx := context.Background()
		id := uuid.New()
		uow.On("Begin", ctx).Return(ctx, nil)
		repo.On("FindByID", ctx, id).Return(nil, domain.ErrCustomerNotFound)
		uow.On("Rollback", ctx).Return(nil)

		err := handler.Handle(ctx, UpdateCustomerCommand{CustomerID: id})
		assert.ErrorIs(t, err, sharedDomain.ErrNotFound)
	})

	t.Run("unchanged profile saves nothing", func(t *testing.T) {
		repo := new(mockCustomerRepo)
		uow := new(mockUnitOfWork)
		handler := NewUpdateCustomerHandler(repo, new(mockDocuments), new(mockOutboxRepo), uow)

		ctx := context.Background()
		customer := newTestCustomer()
		uow.On("Begin", ctx).Return(ctx, nil)
		repo.On("FindByID", ctx, customer.ID()).Return(customer, nil)
		uow.On("Commit", ctx).Return(nil)

		err := handler.Handle(ctx, UpdateCustomerCommand{
			CustomerID: customer.ID(),
			Profile:    domain.Profile{Contact: &domain.Contact{Email: "jane@example.com"}},
		})

		require.NoError(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
