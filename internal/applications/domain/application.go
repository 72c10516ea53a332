package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrApplicationNotFound   = fmt.Errorf("%w: subscription application", sharedDomain.ErrNotFound)
	ErrReferenceTaken        = fmt.Errorf("%w: application reference already assigned", sharedDomain.ErrConflict)
	ErrContractAlreadyLinked = fmt.Errorf("%w: application already linked to a contract", sharedDomain.ErrConflict)
	ErrCustomerReassignment  = fmt.Errorf("%w: only reviewers may change the application customer", sharedDomain.ErrValidation)
)

// HistoryEntry records one status reached by an application.
type HistoryEntry struct {
	Status  Status    `json:"status"`
	Comment string    `json:"comment"`
	At      time.Time `json:"at"`
}

// ProposedVehicle is a vehicle the customer asks to insure.
type ProposedVehicle struct {
	VIN                           string    `json:"vin"`
	Brand                         string    `json:"brand"`
	Model                         string    `json:"model"`
	Year                          int       `json:"year"`
	RegistrationNumber            string    `json:"registrationNumber"`
	OriginalInServiceDate         time.Time `json:"originalInServiceDate"`
	ContractSubscriptionKm        int       `json:"contractSubscriptionKm"`
	DriverLicenceDocURL           string    `json:"driverLicenceDocURL"`
	VehicleRegistrationCardDocURL string    `json:"vehicleRegistrationCardDocURL"`
}

// VehicleSpec turns the proposal into a vehicle registration for contract.
func (v ProposedVehicle) VehicleSpec(contract, customer uuid.UUID) provisioning.VehicleSpec {
	return provisioning.VehicleSpec{
		VIN:                           strings.TrimSpace(v.VIN),
		Brand:                         v.Brand,
		Model:                         v.Model,
		Year:                          v.Year,
		RegistrationNumber:            v.RegistrationNumber,
		OriginalInServiceDate:         v.OriginalInServiceDate,
		ContractSubscriptionKm:        v.ContractSubscriptionKm,
		DriverLicenceDocURL:           v.DriverLicenceDocURL,
		VehicleRegistrationCardDocURL: v.VehicleRegistrationCardDocURL,
		Contract:                      contract,
		Customer:                      customer,
	}
}

// ContractDescriptor is what the contract opened on approval will be made of.
// Contract stays nil until the checkout is issued and never changes afterwards.
type ContractDescriptor struct {
	ContractDocURL   string          `json:"contractDocURL"`
	EcommerceProduct string          `json:"ecommerceProduct"`
	EcommerceGateway billing.Gateway `json:"ecommerceGateway"`
	Contract         *uuid.UUID      `json:"contract,omitempty"`
}

// Application is a customer's request for coverage of a set of vehicles.
type Application struct {
	sharedDomain.BaseAggregateRoot
	ref      string
	customer uuid.UUID
	status   Status
	history  []HistoryEntry
	vehicles []ProposedVehicle
	contract ContractDescriptor
}

// NewApplication submits an application in PENDING. The descriptor gateway
// is always the default gateway.
func NewApplication(ref string, customer uuid.UUID, vehicles []ProposedVehicle, contract ContractDescriptor) (*Application, []Effect, error) {
	if len(ref) != sharedDomain.ReferenceLength {
		return nil, nil, fmt.Errorf("%w: application ref %q", sharedDomain.ErrInvalidReference, ref)
	}
	if customer == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: application customer is required", sharedDomain.ErrValidation)
	}

	status, effects, err := Apply("", Create())
	if err != nil {
		return nil, nil, err
	}

	contract.EcommerceGateway = billing.DefaultGateway
	contract.Contract = nil
	a := &Application{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		ref:               ref,
		customer:          customer,
		status:            status,
		vehicles:          slices.Clone(vehicles),
		contract:          contract,
	}
	a.history = []HistoryEntry{{Status: status, At: a.CreatedAt()}}
	a.AddDomainEvent(NewApplicationCreated(a))
	return a, effects, nil
}

// RehydrateApplication recreates an application from persisted state.
func RehydrateApplication(
	base sharedDomain.BaseAggregateRoot,
	ref string,
	customer uuid.UUID,
	status Status,
	history []HistoryEntry,
	vehicles []ProposedVehicle,
	contract ContractDescriptor,
) *Application {
	return &Application{
		BaseAggregateRoot: base,
		ref:               ref,
		customer:          customer,
		status:            status,
		history:           history,
		vehicles:          vehicles,
		contract:          contract,
	}
}

func (a *Application) Ref() string                  { return a.ref }
func (a *Application) Customer() uuid.UUID          { return a.customer }
func (a *Application) Status() Status               { return a.status }
func (a *Application) Contract() ContractDescriptor { return a.contract }

// History returns the status history, oldest first.
func (a *Application) History() []HistoryEntry { return slices.Clone(a.history) }

// Vehicles returns the proposed vehicles in submission order.
func (a *Application) Vehicles() []ProposedVehicle { return slices.Clone(a.vehicles) }

// VINs returns the trimmed VIN of every proposed vehicle.
func (a *Application) VINs() []string {
	vins := make([]string, 0, len(a.vehicles))
	for _, v := range a.vehicles {
		vins = append(vins, strings.TrimSpace(v.VIN))
	}
	return vins
}

// LinkedContract returns the contract opened for the application, if any.
func (a *Application) LinkedContract() (uuid.UUID, bool) {
	if a.contract.Contract == nil {
		return uuid.Nil, false
	}
	return *a.contract.Contract, true
}

// Apply runs action against the application status. A transition appends a
// history entry with comment; a no-op appends nothing and returns no effects.
func (a *Application) Apply(action Action, comment string) ([]Effect, error) {
	next, effects, err := Apply(a.status, action)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", a.ID(), err)
	}
	if next == a.status {
		return effects, nil
	}

	previous := a.status
	a.status = next
	a.Touch()
	a.history = append(a.history, HistoryEntry{Status: next, Comment: comment, At: a.UpdatedAt()})
	a.AddDomainEvent(NewApplicationStatusChanged(a, previous, comment))
	return effects, nil
}

// Patch carries the editable parts of an application. Nil fields are kept;
// a non-nil Vehicles replaces the whole list. Customer reassigns the owner.
type Patch struct {
	Customer *uuid.UUID
	Vehicles *[]ProposedVehicle
	Contract *ContractDescriptor
}

// Update merges patch and reports whether anything changed. Privileged
// callers may also edit an application under review and change its customer.
func (a *Application) Update(patch Patch, privileged bool) (bool, error) {
	if _, err := a.Apply(Update(privileged), ""); err != nil {
		return false, err
	}
	reassign := patch.Customer != nil && *patch.Customer != a.customer
	if reassign && (!privileged || *patch.Customer == uuid.Nil) {
		return false, ErrCustomerReassignment
	}

	changed := false
	if reassign {
		a.customer = *patch.Customer
		changed = true
	}
	if patch.Vehicles != nil && !slices.Equal(*patch.Vehicles, a.vehicles) {
		a.vehicles = slices.Clone(*patch.Vehicles)
		changed = true
	}
	if patch.Contract != nil {
		next := *patch.Contract
		next.EcommerceGateway = billing.DefaultGateway
		next.Contract = a.contract.Contract
		if next.ContractDocURL != a.contract.ContractDocURL ||
			next.EcommerceProduct != a.contract.EcommerceProduct ||
			next.EcommerceGateway != a.contract.EcommerceGateway {
			a.contract = next
			changed = true
		}
	}
	if changed {
		a.Touch()
		a.AddDomainEvent(NewApplicationUpdated(a))
	}
	return changed, nil
}

// LinkContract records the contract opened for the application. Linking the
// same contract again is a no-op; linking another one fails.
func (a *Application) LinkContract(contractID uuid.UUID) error {
	if current, ok := a.LinkedContract(); ok {
		if current == contractID {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrContractAlreadyLinked, current)
	}
	a.contract.Contract = &contractID
	a.Touch()
	a.AddDomainEvent(NewApplicationContractLinked(a))
	return nil
}
