// Package domain holds the subscription application aggregate and its review workflow.
package domain

import (
	"fmt"
	"slices"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
)

// Status is the review state of a subscription application.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusToAmend          Status = "TO_AMMEND"
	StatusReviewing        Status = "REVIEWING"
	StatusPaymentPending   Status = "PAYMENT_PENDING"
	StatusPaymentConfirmed Status = "PAYMENT_CONFIRMED"
	StatusPaymentCanceled  Status = "PAYMENT_CANCELED"
	StatusRejected         Status = "REJECTED"
)

var statuses = []Status{
	StatusPending,
	StatusToAmend,
	StatusReviewing,
	StatusPaymentPending,
	StatusPaymentConfirmed,
	StatusPaymentCanceled,
	StatusRejected,
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return slices.Clone(statuses)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(statuses, s)
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPaymentConfirmed || s == StatusPaymentCanceled || s == StatusRejected
}

// OpenStatuses are the statuses whose proposed vehicles still reserve their VIN.
func OpenStatuses() []Status {
	return []Status{StatusPending, StatusToAmend, StatusReviewing, StatusPaymentPending}
}

// ParseStatus converts a wire string to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown application status %q", sharedDomain.ErrValidation, raw)
	}
	return s, nil
}

// ActionKind names what happens to an application.
type ActionKind string

const (
	ActionCreate         ActionKind = "create"
	ActionReview         ActionKind = "review"
	ActionUpdate         ActionKind = "update"
	ActionFinalize       ActionKind = "finalize"
	ActionConfirmPayment ActionKind = "confirm_payment"
	ActionCancelPayment  ActionKind = "cancel_payment"
)

// Action is an input of the transition function.
type Action struct {
	Kind ActionKind
	// Target is the requested status of a finalize.
	Target Status
	// Privileged lets reviewers update an application under review.
	Privileged bool
}

// Create is the action run when an application is submitted.
func Create() Action { return Action{Kind: ActionCreate} }

// Review is the action run when a reviewer picks the application up.
func Review() Action { return Action{Kind: ActionReview} }

// Update is the action run when the application data is edited.
func Update(privileged bool) Action { return Action{Kind: ActionUpdate, Privileged: privileged} }

// Finalize is the action ending a review with target.
func Finalize(target Status) Action { return Action{Kind: ActionFinalize, Target: target} }

// ConfirmPayment is the action run when the checkout is paid.
func ConfirmPayment() Action { return Action{Kind: ActionConfirmPayment} }

// CancelPayment is the action run when the checkout is abandoned.
func CancelPayment() Action { return Action{Kind: ActionCancelPayment} }

func (a Action) String() string { return string(a.Kind) }

// Effect is a side effect the caller executes after a transition.
type Effect string

const (
	EffectNotifyReviewers   Effect = "notify_reviewers"
	EffectNotifyCustomer    Effect = "notify_customer"
	EffectOpenContract      Effect = "open_contract"
	EffectProvisionVehicles Effect = "provision_vehicles"
	EffectIssueCheckout     Effect = "issue_checkout"
	EffectActivateContract  Effect = "activate_contract"
	EffectCancelContract    Effect = "cancel_contract"
)

// FinalizeTargets are the statuses a review can end in.
func FinalizeTargets() []Status {
	return []Status{StatusPaymentPending, StatusRejected, StatusToAmend}
}

// Apply computes the status that results from action in current and the
// effects that go with it. A create starts from the empty status. Confirming
// a confirmed payment, or canceling a canceled one, returns current with no
// effects.
func Apply(current Status, action Action) (Status, []Effect, error) {
	if current == "" {
		if action.Kind == ActionCreate {
			return StatusPending, []Effect{EffectNotifyReviewers}, nil
		}
		return "", nil, fmt.Errorf("%w: %s before create", sharedDomain.ErrInvalidTransition, action)
	}
	if !current.Valid() {
		return "", nil, fmt.Errorf("%w: unknown status %q", sharedDomain.ErrInvalidTransition, current)
	}

	switch action.Kind {
	case ActionReview:
		if current == StatusPending || current == StatusToAmend {
			return StatusReviewing, []Effect{EffectNotifyReviewers}, nil
		}
	case ActionUpdate:
		if current == StatusPending || current == StatusToAmend || (current == StatusReviewing && action.Privileged) {
			return current, nil, nil
		}
	case ActionFinalize:
		if current != StatusReviewing || !slices.Contains(FinalizeTargets(), action.Target) {
			break
		}
		if action.Target == StatusPaymentPending {
			return StatusPaymentPending, []Effect{
				EffectOpenContract,
				EffectProvisionVehicles,
				EffectIssueCheckout,
				EffectNotifyCustomer,
			}, nil
		}
		return action.Target, []Effect{EffectNotifyCustomer}, nil
	case ActionConfirmPayment:
		switch current {
		case StatusPaymentConfirmed:
			return current, nil, nil
		case StatusPaymentPending:
			return StatusPaymentConfirmed, []Effect{EffectActivateContract, EffectNotifyReviewers, EffectNotifyCustomer}, nil
		}
	case ActionCancelPayment:
		switch current {
		case StatusPaymentCanceled:
			return current, nil, nil
		case StatusPaymentPending:
			return StatusPaymentCanceled, []Effect{EffectCancelContract, EffectNotifyReviewers, EffectNotifyCustomer}, nil
		}
	}

	if action.Kind == ActionFinalize {
		return "", nil, fmt.Errorf("%w: finalize to %s from %s", sharedDomain.ErrInvalidTransition, action.Target, current)
	}
	return "", nil, fmt.Errorf("%w: %s from %s", sharedDomain.ErrInvalidTransition, action, current)
}
