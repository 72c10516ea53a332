// Package domain holds the contract aggregate and its status machine.
package domain

import (
	"fmt"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
)

// Status is the billing state of a contract.
type Status string

const (
	StatusInactive            Status = "INACTIVE"
	StatusPaymentPending      Status = "PAYMENT_PENDING"
	StatusActive              Status = "ACTIVE"
	StatusCanceled            Status = "CANCELED"
	StatusPaymentRenewalError Status = "PAYMENT_RENEWAL_ERROR"
)

// Statuses returns every contract status.
func Statuses() []Status {
	return []Status{StatusInactive, StatusPaymentPending, StatusActive, StatusCanceled, StatusPaymentRenewalError}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts a wire string into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown contract status %q", sharedDomain.ErrValidation, s)
	}
	return status, nil
}

// ActionKind names a contract transition.
type ActionKind string

const (
	ActionActivate           ActionKind = "activate"
	ActionCancel             ActionKind = "cancel"
	ActionAbandonCheckout    ActionKind = "abandon_checkout"
	ActionRequestPayment     ActionKind = "request_payment"
	ActionAttachSubscription ActionKind = "attach_subscription"
)

// Action is a transition request. Target is only read by ActionCancel.
type Action struct {
	Kind   ActionKind
	Target Status
}

// Activate is the action run when the checkout is paid.
func Activate() Action { return Action{Kind: ActionActivate} }

// CancelTo is the action run when the gateway subscription ends with target.
func CancelTo(target Status) Action { return Action{Kind: ActionCancel, Target: target} }

// AbandonCheckout is the action run when the checkout session is canceled.
func AbandonCheckout() Action { return Action{Kind: ActionAbandonCheckout} }

// RequestPayment is the action run when a new checkout is issued.
func RequestPayment() Action { return Action{Kind: ActionRequestPayment} }

// AttachSubscription is the action run when the recurring subscription is known.
func AttachSubscription() Action { return Action{Kind: ActionAttachSubscription} }

// Effect is a side effect the caller must run for a transition.
type Effect string

const (
	EffectCancelGatewaySubscription Effect = "cancel_gateway_subscription"
	EffectIssueCheckout             Effect = "issue_checkout"
)

// Apply computes the status following current under action and the side
// effects to run. A nil effect list with an unchanged status is a no-op.
func Apply(current Status, action Action) (Status, []Effect, error) {
	if !current.Valid() {
		return "", nil, fmt.Errorf("%w: unknown contract status %q", sharedDomain.ErrInvalidTransition, current)
	}

	switch action.Kind {
	case ActionActivate:
		if current == StatusActive {
			return current, nil, nil
		}
		return StatusActive, nil, nil

	case ActionCancel:
		if action.Target != StatusCanceled && action.Target != StatusPaymentRenewalError {
			return "", nil, fmt.Errorf("%w: cancel target %q", sharedDomain.ErrInvalidTransition, action.Target)
		}
		return action.Target, []Effect{EffectCancelGatewaySubscription}, nil

	case ActionAbandonCheckout:
		return StatusCanceled, nil, nil

	case ActionRequestPayment:
		return StatusPaymentPending, []Effect{EffectIssueCheckout}, nil

	case ActionAttachSubscription:
		return current, nil, nil
	}

	return "", nil, fmt.Errorf("%w: %s from %s", sharedDomain.ErrInvalidTransition, action.Kind, current)
}
