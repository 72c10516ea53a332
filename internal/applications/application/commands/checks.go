package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// checker runs the reference checks shared by create and update. Every
// violated rule is recorded; only storage failures abort.
type checker struct {
	applications domain.Repository
	customers    customerDomain.Repository
	provisioning provisioning.Provisioning
	now          func() time.Time
}

func (c checker) customer(ctx context.Context, id uuid.UUID, v *sharedDomain.Violations) (*customerDomain.Customer, error) {
	customer, err := c.customers.FindByID(ctx, id)
	switch {
	case err == nil:
		return customer, nil
	case errors.Is(err, customerDomain.ErrCustomerNotFound):
		v.Add(fmt.Sprintf("customer with id %s does not exists", id))
		return nil, nil
	}
	return nil, err
}

func (c checker) profile(ctx context.Context, profile customerDomain.Profile, v *sharedDomain.Violations) error {
	return sharedApplication.CheckDocuments(ctx, c.provisioning, profile.DocumentKeys(), v)
}

func (c checker) contract(ctx context.Context, contract domain.ContractDescriptor, v *sharedDomain.Violations) error {
	if contract.ContractDocURL == "" {
		return nil
	}
	field := "contract.contractDocURL"
	if msg := provisioning.CheckDocumentPrefix(field, contract.ContractDocURL, provisioning.ContractDocPrefix); msg != "" {
		v.Add(msg)
		return nil
	}
	return sharedApplication.CheckDocuments(ctx, c.provisioning, map[string]string{field: contract.ContractDocURL}, v)
}

// vehicles checks every proposed vehicle and the uniqueness of its VIN
// against the payload, the registered fleet and the other open applications.
func (c checker) vehicles(ctx context.Context, vehicles []domain.ProposedVehicle, exclude *uuid.UUID, v *sharedDomain.Violations) error {
	now := c.now()
	seen := make(map[string]bool, len(vehicles))
	vins := make([]string, 0, len(vehicles))

	for i, vehicle := range vehicles {
		spec := vehicle.VehicleSpec(uuid.Nil, uuid.Nil)
		prefix := fmt.Sprintf("vehicles[%d].", i)
		for _, msg := range spec.Violations(now) {
			v.Add(prefix + msg)
		}

		documents := map[string]string{}
		for field, key := range spec.DocumentKeys() {
			if key != "" && strings.HasPrefix(key, documentPrefix(field)) {
				documents[prefix+field] = key
			}
		}
		if err := sharedApplication.CheckDocuments(ctx, c.provisioning, documents, v); err != nil {
			return err
		}

		if spec.VIN == "" {
			continue
		}
		if seen[spec.VIN] {
			v.Add(vinInUse(spec.VIN))
			continue
		}
		seen[spec.VIN] = true

		inUse, err := c.provisioning.VINInUse(ctx, spec.VIN)
		if err != nil {
			return fmt.Errorf("check vin %s: %w", spec.VIN, err)
		}
		if inUse {
			v.Add(vinInUse(spec.VIN))
			continue
		}
		vins = append(vins, spec.VIN)
	}

	if len(vins) == 0 {
		return nil
	}
	proposed, err := c.applications.ProposedVINs(ctx, vins, exclude)
	if err != nil {
		return fmt.Errorf("check proposed vins: %w", err)
	}
	for _, vin := range proposed {
		v.Add(vinInUse(vin))
	}
	return nil
}

func documentPrefix(field string) string {
	if field == "driverLicenceDocURL" {
		return provisioning.DriverLicencePrefix
	}
	return provisioning.RegistrationCardPrefix
}

func vinInUse(vin string) string {
	return fmt.Sprintf("vehicle exists with VIN %s", vin)
}
