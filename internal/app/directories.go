package app

import (
	"context"
	"errors"

	contractDomain "github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// customerDirectory answers the customer lookups of other contexts.
type customerDirectory struct {
	customers customerDomain.Repository
}

func (d *customerDirectory) CustomerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(d.customers.FindByID(ctx, id))
}

// AuthServerUserIDs skips customers that no longer exist.
func (d *customerDirectory) AuthServerUserIDs(ctx context.Context, customerIDs []uuid.UUID) ([]string, error) {
	users := make([]string, 0, len(customerIDs))
	for _, id := range customerIDs {
		customer, err := d.customers.FindByID(ctx, id)
		if errors.Is(err, sharedDomain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, customer.AuthServerUserID())
	}
	return users, nil
}

type contractDirectory struct {
	contracts contractDomain.Repository
}

func (d *contractDirectory) ContractExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(d.contracts.FindByID(ctx, id))
}

func exists[T any](_ T, err error) (bool, error) {
	if errors.Is(err, sharedDomain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
