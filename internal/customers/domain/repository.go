package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for customer persistence.
type Repository interface {
	// Save persists a customer (create or update).
	Save(ctx context.Context, customer *Customer) error

	// FindByID returns ErrCustomerNotFound when missing.
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByAuthServerUserID returns ErrCustomerNotFound when missing.
	FindByAuthServerUserID(ctx context.Context, authServerUserID string) (*Customer, error)
}

