package commands

import (
	"testing"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateApplicationHandler_Handle(t *testing.T) {
	t.Run("replaces the vehicles excluding itself from the vin check", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, txCtx := txContext()
		customer := newTestCustomer(t)
		application := newTestApplication(t, customer.ID(), domain.StatusToAmend, "VIN1")
		vehicles := []domain.ProposedVehicle{proposedVehicle("VIN1"), proposedVehicle("VIN2")}
		self := application.ID()

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)
		f.customers.On("FindByID", ctx, customer.ID()).Return(customer, nil)
		f.provisioning.On("DocumentExists", ctx, mock.Anything).Return(true, nil)
		f.provisioning.On("VINInUse", ctx, mock.Anything).Return(false, nil)
		f.applications.On("ProposedVINs", ctx, []string{"VIN1", "VIN2"}, &self).Return(nil, nil)
		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("Save", txCtx, application).Return(nil)
		f.outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateApplicationCommand{ApplicationID: application.ID(), Vehicles: &vehicles})

		require.NoError(t, err)
		assert.Equal(t, []string{"VIN1", "VIN2"}, application.VINs())
		assert.Equal(t, domain.StatusToAmend, application.Status())
		f.applications.AssertExpectations(t)
	})

	t.Run("reviewers may edit an application under review", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, txCtx := txContext()
		customer := newTestCustomer(t)
		application := newTestApplication(t, customer.ID(), domain.StatusReviewing, "VIN1")

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)
		f.customers.On("FindByID", ctx, customer.ID()).Return(customer, nil)
		f.provisioning.On("DocumentExists", ctx, "contract/contract/signed.pdf").Return(true, nil)
		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("Save", txCtx, application).Return(nil)
		f.outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateApplicationCommand{
			ApplicationID: application.ID(),
			Contract:      &domain.ContractDescriptor{ContractDocURL: "contract/contract/signed.pdf", EcommerceProduct: "prod_2"},
			Privileged:    true,
		})

		require.NoError(t, err)
		assert.Equal(t, "prod_2", application.Contract().EcommerceProduct)
	})

	t.Run("customers cannot edit an application under review", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, _ := txContext()
		application := newTestApplication(t, newTestCustomer(t).ID(), domain.StatusReviewing, "VIN1")

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)

		err := handler.Handle(ctx, UpdateApplicationCommand{ApplicationID: application.ID(), Contract: &domain.ContractDescriptor{}})

		assert.ErrorIs(t, err, sharedDomain.ErrInvalidTransition)
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("profile only update saves the customer", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, txCtx := txContext()
		customer := newTestCustomer(t)
		application := newTestApplication(t, customer.ID(), domain.StatusPending, "VIN1")

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)
		f.customers.On("FindByID", ctx, customer.ID()).Return(customer, nil)
		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.customers.On("Save", txCtx, customer).Return(nil)
		f.outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateApplicationCommand{
			ApplicationID: application.ID(),
			Profile:       customerDomain.Profile{Billing: &customerDomain.Billing{City: "Lyon"}},
		})

		require.NoError(t, err)
		assert.Equal(t, "Lyon", customer.Billing().City)
		f.applications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("emptying the vehicle list is a violation", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, _ := txContext()
		customer := newTestCustomer(t)
		application := newTestApplication(t, customer.ID(), domain.StatusPending, "VIN1")
		empty := []domain.ProposedVehicle{}

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)
		f.customers.On("FindByID", ctx, customer.ID()).Return(customer, nil)

		err := handler.Handle(ctx, UpdateApplicationCommand{ApplicationID: application.ID(), Vehicles: &empty})

		assert.ErrorIs(t, err, sharedDomain.ErrValidation)
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("reviewers move the application to another customer", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, txCtx := txContext()
		previous := newTestCustomer(t)
		owner := newTestCustomer(t)
		application := newTestApplication(t, previous.ID(), domain.StatusReviewing, "VIN1")
		application.ClearDomainEvents()
		newOwner := owner.ID()

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)
		f.customers.On("FindByID", ctx, owner.ID()).Return(owner, nil)
		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("Save", txCtx, application).Return(nil)
		f.customers.On("Save", txCtx, owner).Return(nil)
		f.outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateApplicationCommand{
			ApplicationID: application.ID(),
			Customer:      &newOwner,
			Profile:       customerDomain.Profile{Billing: &customerDomain.Billing{City: "Lyon"}},
			Privileged:    true,
		})

		require.NoError(t, err)
		assert.Equal(t, owner.ID(), application.Customer())
		assert.Equal(t, "Lyon", owner.Billing().City)
		f.customers.AssertNotCalled(t, "FindByID", ctx, previous.ID())
		f.applications.AssertExpectations(t)
		f.customers.AssertExpectations(t)
	})

	t.Run("unknown new customer is a violation", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, _ := txContext()
		previous := newTestCustomer(t)
		application := newTestApplication(t, previous.ID(), domain.StatusReviewing, "VIN1")
		missing := uuid.New()

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)
		f.customers.On("FindByID", ctx, missing).Return(nil, customerDomain.ErrCustomerNotFound)

		err := handler.Handle(ctx, UpdateApplicationCommand{ApplicationID: application.ID(), Customer: &missing, Privileged: true})

		assert.ErrorIs(t, err, sharedDomain.ErrValidation)
		assert.ErrorContains(t, err, missing.String())
		assert.Equal(t, previous.ID(), application.Customer())
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("customers cannot move their application", func(t *testing.T) {
		f := newFixture()
		handler := NewUpdateApplicationHandler(f.deps())

		ctx, _ := txContext()
		previous := newTestCustomer(t)
		application := newTestApplication(t, previous.ID(), domain.StatusPending, "VIN1")
		other := uuid.New()

		f.applications.On("FindByID", ctx, application.ID()).Return(application, nil)
		f.customers.On("FindByID", ctx, previous.ID()).Return(previous, nil)

		err := handler.Handle(ctx, UpdateApplicationCommand{ApplicationID: application.ID(), Customer: &other})

		assert.ErrorIs(t, err, sharedDomain.ErrValidation)
		assert.Equal(t, previous.ID(), application.Customer())
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})
}
