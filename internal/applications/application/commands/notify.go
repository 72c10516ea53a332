package commands

import (
	"context"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	notifications "github.com/felixgeelhaar/covera/internal/notifications/domain"
	"github.com/google/uuid"
)

var statusNotifications = map[domain.Status]notifications.Type{
	domain.StatusPending:          notifications.TypeApplicationPending,
	domain.StatusReviewing:        notifications.TypeApplicationReviewing,
	domain.StatusToAmend:          notifications.TypeApplicationToAmend,
	domain.StatusRejected:         notifications.TypeApplicationRejected,
	domain.StatusPaymentPending:   notifications.TypeApplicationPaymentPending,
	domain.StatusPaymentConfirmed: notifications.TypeApplicationPaymentConfirmed,
	domain.StatusPaymentCanceled:  notifications.TypeApplicationPaymentCanceled,
}

// StatusNotification is the data attached to every application notification.
type StatusNotification struct {
	SubscriptionApplication uuid.UUID     `json:"subscriptionApplication"`
	Ref                     string        `json:"ref"`
	Status                  domain.Status `json:"status"`
	CheckoutURL             string        `json:"checkoutUrl,omitempty"`
}

// notify sends the notifications requested by effects for the current
// status of application.
func notify(ctx context.Context, notifier notifications.Notifier, application *domain.Application, effects []domain.Effect, checkoutURL string) {
	data := StatusNotification{
		SubscriptionApplication: application.ID(),
		Ref:                     application.Ref(),
		Status:                  application.Status(),
		CheckoutURL:             checkoutURL,
	}
	kind := statusNotifications[application.Status()]

	for _, effect := range effects {
		switch effect {
		case domain.EffectNotifyReviewers:
			notifier.Notify(ctx, notifications.Request{
				Type:     kind,
				Audience: notifications.AudienceInsurer,
				Data:     data,
			})
		case domain.EffectNotifyCustomer:
			notifier.Notify(ctx, notifications.Request{
				Type:      kind,
				Audience:  notifications.AudienceCustomer,
				Receivers: []uuid.UUID{application.Customer()},
				Data:      data,
			})
		}
	}
}
