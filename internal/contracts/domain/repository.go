package domain

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// Filter narrows a contract listing; nil fields match everything.
type Filter struct {
	Status   *Status
	Customer *uuid.UUID
}

// Repository defines the interface for contract persistence.
type Repository interface {
	// Save persists a contract (create or update). A reference already in
	// use returns ErrReferenceTaken.
	Save(ctx context.Context, contract *Contract) error

	// FindByID returns ErrContractNotFound when missing.
	FindByID(ctx context.Context, id uuid.UUID) (*Contract, error)

	// LastReference returns the highest assigned reference, or nil when no
	// contract exists. Inside a transaction it serializes reference
	// assignment until commit.
	LastReference(ctx context.Context) (*string, error)

	// List returns one page of contracts sorted by creation time and the
	// total number of matches.
	List(ctx context.Context, filter Filter, page sharedDomain.Page, order sharedDomain.SortOrder) ([]*Contract, int, error)

	// Delete returns ErrContractNotFound when missing.
	Delete(ctx context.Context, id uuid.UUID) error
}
