package commands

import (
	"testing"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	contractCommands "github.com/felixgeelhaar/covera/internal/contracts/application/commands"
	notifications "github.com/felixgeelhaar/covera/internal/notifications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingPayment(t *testing.T) (*domain.Application, uuid.UUID) {
	t.Helper()
	application := newTestApplication(t, newTestCustomer(t).ID(), domain.StatusPaymentPending, "VIN1")
	contractID := uuid.New()
	require.NoError(t, application.LinkContract(contractID))
	application.ClearDomainEvents()
	return application, contractID
}

func TestSettlePaymentHandler_Handle(t *testing.T) {
	t.Run("completed checkout confirms and activates", func(t *testing.T) {
		f := newFixture()
		handler := NewSettlePaymentHandler(f.deps(), f.lifecycle)

		ctx, txCtx := txContext()
		application, contractID := pendingPayment(t)

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("FindByContract", txCtx, contractID, billing.GatewayStripe).Return(application, nil)
		f.lifecycle.On("Settle", txCtx, contractID, contractCommands.CheckoutCompleted).Return(nil)
		f.applications.On("Save", txCtx, application).Return(nil)
		f.outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, SettlePaymentCommand{ContractID: contractID, Gateway: billing.GatewayStripe, Outcome: contractCommands.CheckoutCompleted})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaymentConfirmed, application.Status())
		assert.Equal(t, []notifications.Audience{notifications.AudienceInsurer, notifications.AudienceCustomer}, f.notifier.audiences())
		assert.Equal(t, notifications.TypeApplicationPaymentConfirmed, f.notifier.requests[0].Type)
		f.lifecycle.AssertExpectations(t)
	})

	t.Run("canceled checkout cancels the contract", func(t *testing.T) {
		f := newFixture()
		handler := NewSettlePaymentHandler(f.deps(), f.lifecycle)

		ctx, txCtx := txContext()
		application, contractID := pendingPayment(t)

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("FindByContract", txCtx, contractID, billing.GatewayStripe).Return(application, nil)
		f.lifecycle.On("Settle", txCtx, contractID, contractCommands.CheckoutCanceled).Return(nil)
		f.applications.On("Save", txCtx, application).Return(nil)
		f.outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, SettlePaymentCommand{ContractID: contractID, Gateway: billing.GatewayStripe, Outcome: contractCommands.CheckoutCanceled})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaymentCanceled, application.Status())
		assert.Equal(t, notifications.TypeApplicationPaymentCanceled, f.notifier.requests[1].Type)
	})

	t.Run("a duplicate completion writes nothing", func(t *testing.T) {
		f := newFixture()
		handler := NewSettlePaymentHandler(f.deps(), f.lifecycle)

		ctx, txCtx := txContext()
		application, contractID := pendingPayment(t)
		_, err := application.Apply(domain.ConfirmPayment(), "")
		require.NoError(t, err)
		application.ClearDomainEvents()
		history := len(application.History())

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("FindByContract", txCtx, contractID, billing.GatewayStripe).Return(application, nil)
		f.uow.On("Commit", txCtx).Return(nil)

		err = handler.Handle(ctx, SettlePaymentCommand{ContractID: contractID, Gateway: billing.GatewayStripe, Outcome: contractCommands.CheckoutCompleted})

		require.NoError(t, err)
		assert.Len(t, application.History(), history)
		f.lifecycle.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything)
		f.applications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.notifier.requests)
	})

	t.Run("completion after cancellation is rejected", func(t *testing.T) {
		f := newFixture()
		handler := NewSettlePaymentHandler(f.deps(), f.lifecycle)

		ctx, txCtx := txContext()
		application, contractID := pendingPayment(t)
		_, err := application.Apply(domain.CancelPayment(), "")
		require.NoError(t, err)

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("FindByContract", txCtx, contractID, billing.GatewayStripe).Return(application, nil)
		f.uow.On("Rollback", txCtx).Return(nil)

		err = handler.Handle(ctx, SettlePaymentCommand{ContractID: contractID, Gateway: billing.GatewayStripe, Outcome: contractCommands.CheckoutCompleted})

		assert.ErrorIs(t, err, sharedDomain.ErrInvalidTransition)
	})

	t.Run("contract failure rolls back", func(t *testing.T) {
		f := newFixture()
		handler := NewSettlePaymentHandler(f.deps(), f.lifecycle)

		ctx, txCtx := txContext()
		application, contractID := pendingPayment(t)

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("FindByContract", txCtx, contractID, billing.GatewayStripe).Return(application, nil)
		f.lifecycle.On("Settle", txCtx, contractID, contractCommands.CheckoutCompleted).Return(sharedDomain.ErrNotFound)
		f.uow.On("Rollback", txCtx).Return(nil)

		err := handler.Handle(ctx, SettlePaymentCommand{ContractID: contractID, Gateway: billing.GatewayStripe, Outcome: contractCommands.CheckoutCompleted})

		assert.ErrorIs(t, err, sharedDomain.ErrNotFound)
		f.applications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.notifier.requests)
	})

	t.Run("unknown outcome", func(t *testing.T) {
		f := newFixture()
		handler := NewSettlePaymentHandler(f.deps(), f.lifecycle)

		err := handler.Handle(t.Context(), SettlePaymentCommand{ContractID: uuid.New(), Gateway: billing.GatewayStripe, Outcome: "EXPIRED"})

		assert.ErrorIs(t, err, sharedDomain.ErrValidation)
	})
}
