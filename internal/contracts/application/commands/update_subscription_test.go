package commands

import (
	"testing"

	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateSubscriptionHandler_Handle(t *testing.T) {
	t.Run("attaches the subscription", func(t *testing.T) {
		contracts := new(mockContractRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewUpdateSubscriptionHandler(contracts, outboxRepo, uow)

		ctx, txCtx := txContext()
		contract := newTestContract(t, newTestCustomer(t, "").ID(), domain.StatusActive)

		uow.On("Begin", ctx).Return(txCtx, nil)
		contracts.On("FindByID", txCtx, contract.ID()).Return(contract, nil)
		contracts.On("Save", txCtx, contract).Return(nil)
		outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
		uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateSubscriptionCommand{ContractID: contract.ID(), SubscriptionID: "sub_1"})

		require.NoError(t, err)
		assert.Equal(t, "sub_1", contract.Subscription())
		assert.Equal(t, domain.StatusActive, contract.Status())
	})

	t.Run("same subscription writes nothing", func(t *testing.T) {
		contracts := new(mockContractRepo)
		outboxRepo := new(mockOutboxRepo)
		uow := new(mockUnitOfWork)
		handler := NewUpdateSubscriptionHandler(contracts, outboxRepo, uow)

		ctx, txCtx := txContext()
		contract := newTestContract(t, newTestCustomer(t, "").ID(), domain.StatusActive)
		require.NoError(t, contract.AttachSubscription("sub_1"))
		contract.ClearDomainEvents()

		uow.On("Begin", ctx).Return(txCtx, nil)
		contracts.On("FindByID", txCtx, contract.ID()).Return(contract, nil)
		uow.On("Commit", txCtx).Return(nil)

		err := handler.Handle(ctx, UpdateSubscriptionCommand{ContractID: contract.ID(), SubscriptionID: "sub_1"})

		require.NoError(t, err)
		contracts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
