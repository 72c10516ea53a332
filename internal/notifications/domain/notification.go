package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// Type is the kind of notification shown to the user.
type Type string

const (
	TypeApplicationPending          Type = "SUBSCRIPTION_APPLICATION_STATUS_PENDING"
	TypeApplicationReviewing        Type = "SUBSCRIPTION_APPLICATION_STATUS_REVIEWING"
	TypeApplicationToAmend          Type = "SUBSCRIPTION_APPLICATION_STATUS_TO_AMMEND"
	TypeApplicationRejected         Type = "SUBSCRIPTION_APPLICATION_STATUS_REJECTED"
	TypeApplicationPaymentPending   Type = "SUBSCRIPTION_APPLICATION_STATUS_PAYMENT_PENDING"
	TypeApplicationPaymentConfirmed Type = "SUBSCRIPTION_APPLICATION_STATUS_PAYMENT_CONFIRMED"
	TypeApplicationPaymentCanceled  Type = "SUBSCRIPTION_APPLICATION_STATUS_PAYMENT_CANCELED"
	TypeNewDeviceMetricsReport      Type = "NEW_DEVICE_METRICS_REPORT_AVAILABLE"
)

// Audience is the role a notification is accessible by.
type Audience string

const (
	AudienceAdmin    Audience = "admin"
	AudienceInsurer  Audience = "insurer"
	AudienceCustomer Audience = "customer"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	switch a {
	case AudienceAdmin, AudienceInsurer, AudienceCustomer:
		return true
	}
	return false
}

var (
	ErrInvalidAudience  = errors.New("invalid notification audience")
	ErrMissingReceivers = errors.New("customer notifications need at least one receiver")
)

// Request describes a notification to send.
type Request struct {
	Type      Type
	Audience  Audience
	Sender    *uuid.UUID
	Receivers []uuid.UUID
	Data      any
}

// Notifier delivers notifications. Delivery is best effort and never fails
// the caller.
type Notifier interface {
	Notify(ctx context.Context, req Request)
}

// Notification is a persisted notification.
type Notification struct {
	sharedDomain.BaseEntity
	kind      Type
	audience  Audience
	sender    *uuid.UUID
	receivers []uuid.UUID
	data      json.RawMessage
}

// NewNotification validates req and encodes its data.
func NewNotification(req Request) (*Notification, error) {
	if !req.Audience.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAudience, req.Audience)
	}
	if req.Audience == AudienceCustomer && len(req.Receivers) == 0 {
		return nil, ErrMissingReceivers
	}

	data := json.RawMessage("null")
	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("encode notification data: %w", err)
		}
		data = raw
	}

	return &Notification{
		BaseEntity: sharedDomain.NewBaseEntity(),
		kind:       req.Type,
		audience:   req.Audience,
		sender:     req.Sender,
		receivers:  append([]uuid.UUID(nil), req.Receivers...),
		data:       data,
	}, nil
}

func (n *Notification) Type() Type             { return n.kind }
func (n *Notification) Audience() Audience     { return n.audience }
func (n *Notification) Sender() *uuid.UUID     { return n.sender }
func (n *Notification) Receivers() []uuid.UUID { return n.receivers }
func (n *Notification) Data() json.RawMessage  { return n.data }

// RehydrateNotification recreates a notification from persisted state.
func RehydrateNotification(entity sharedDomain.BaseEntity, kind Type, audience Audience, sender *uuid.UUID, receivers []uuid.UUID, data json.RawMessage) *Notification {
	return &Notification{
		BaseEntity: entity,
		kind:       kind,
		audience:   audience,
		sender:     sender,
		receivers:  receivers,
		data:       data,
	}
}

// ListFilter narrows a notification listing. Zero fields match everything.
type ListFilter struct {
	Audience Audience
	Receiver uuid.UUID
}

// Repository persists notifications.
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	List(ctx context.Context, filter ListFilter, page sharedDomain.Page) ([]*Notification, int, error)
}
