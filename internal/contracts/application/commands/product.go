package commands

import (
	"context"
	"errors"
	"fmt"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
)

// CheckProduct records a violation when productID is not sold through gw.
// Gateway failures other than not-found are returned.
func CheckProduct(ctx context.Context, gateway billing.PaymentGateway, productID string, gw billing.Gateway, v *sharedDomain.Violations) error {
	_, err := gateway.FindProduct(ctx, productID, gw)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, billing.ErrProductNotFound):
		v.Add(fmt.Sprintf("product with %s for gateway %s does not exists", productID, gw))
		return nil
	}
	return fmt.Errorf("find product %s: %w", productID, err)
}
