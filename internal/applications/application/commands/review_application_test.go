package commands

import (
	"testing"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	notifications "github.com/felixgeelhaar/covera/internal/notifications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReviewApplicationHandler_Handle(t *testing.T) {
	for _, from := range []domain.Status{domain.StatusPending, domain.StatusToAmend} {
		t.Run("from "+string(from), func(t *testing.T) {
			f := newFixture()
			handler := NewReviewApplicationHandler(f.deps())

			ctx, txCtx := txContext()
			application := newTestApplication(t, newTestCustomer(t).ID(), from, "VIN1")
			before := len(application.History())

			f.uow.On("Begin", ctx).Return(txCtx, nil)
			f.applications.On("FindByID", txCtx, application.ID()).Return(application, nil)
			f.applications.On("Save", txCtx, application).Return(nil)
			f.outboxRepo.On("SaveBatch", txCtx, mock.Anything).Return(nil)
			f.uow.On("Commit", txCtx).Return(nil)

			err := handler.Handle(ctx, ReviewApplicationCommand{ApplicationID: application.ID()})

			require.NoError(t, err)
			assert.Equal(t, domain.StatusReviewing, application.Status())
			assert.Len(t, application.History(), before+1)
			require.Len(t, f.notifier.requests, 1)
			assert.Equal(t, notifications.TypeApplicationReviewing, f.notifier.requests[0].Type)
			assert.Equal(t, notifications.AudienceInsurer, f.notifier.requests[0].Audience)
		})
	}

	t.Run("already under review", func(t *testing.T) {
		f := newFixture()
		handler := NewReviewApplicationHandler(f.deps())

		ctx, txCtx := txContext()
		application := newTestApplication(t, newTestCustomer(t).ID(), domain.StatusReviewing, "VIN1")

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("FindByID", txCtx, application.ID()).Return(application, nil)
		f.uow.On("Rollback", txCtx).Return(nil)

		err := handler.Handle(ctx, ReviewApplicationCommand{ApplicationID: application.ID()})

		assert.ErrorIs(t, err, sharedDomain.ErrInvalidTransition)
		f.applications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, f.notifier.requests)
	})

	t.Run("unknown application", func(t *testing.T) {
		f := newFixture()
		handler := NewReviewApplicationHandler(f.deps())

		ctx, txCtx := txContext()
		application := newTestApplication(t, newTestCustomer(t).ID(), domain.StatusPending)

		f.uow.On("Begin", ctx).Return(txCtx, nil)
		f.applications.On("FindByID", txCtx, application.ID()).Return(nil, domain.ErrApplicationNotFound)
		f.uow.On("Rollback", txCtx).Return(nil)

		err := handler.Handle(ctx, ReviewApplicationCommand{ApplicationID: application.ID()})

		assert.ErrorIs(t, err, sharedDomain.ErrNotFound)
	})
}
