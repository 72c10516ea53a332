package domain

import (
	"context"
	"strings"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// Filter narrows an application listing; nil fields match everything.
type Filter struct {
	Status   *Status
	Customer *uuid.UUID
}

// SortField is a column an application listing can be sorted by.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByRef       SortField = "ref"
	SortByStatus    SortField = "status"
)

// ParseSortField accepts the known fields in any case and falls back to createdAt.
func ParseSortField(s string) SortField {
	for _, f := range []SortField{SortByCreatedAt, SortByUpdatedAt, SortByRef, SortByStatus} {
		if strings.EqualFold(s, string(f)) {
			return f
		}
	}
	return SortByCreatedAt
}

// Sort orders an application listing.
type Sort struct {
	Field SortField
	Order sharedDomain.SortOrder
}

// Repository defines the interface for application persistence.
type Repository interface {
	// Save persists an application (create or update). A reference already
	// in use returns ErrReferenceTaken.
	Save(ctx context.Context, application *Application) error

	// FindByID returns ErrApplicationNotFound when missing.
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)

	// FindByContract returns the application whose linked contract is
	// contractID and whose descriptor is billed through gateway, or
	// ErrApplicationNotFound.
	FindByContract(ctx context.Context, contractID uuid.UUID, gateway billing.Gateway) (*Application, error)

	// LastReference returns the highest assigned reference, or nil when no
	// application exists. Inside a transaction it serializes reference
	// assignment until commit.
	LastReference(ctx context.Context) (*string, error)

	// ProposedVINs returns the VINs among vins that an open application other
	// than exclude already proposes.
	ProposedVINs(ctx context.Context, vins []string, exclude *uuid.UUID) ([]string, error)

	// List returns one page of applications and the total number of matches.
	List(ctx context.Context, filter Filter, page sharedDomain.Page, sort Sort) ([]*Application, int, error)
}
