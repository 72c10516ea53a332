package domain

import (
	"testing"
	"time"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proposed(vin string) ProposedVehicle {
	return ProposedVehicle{
		VIN:                   vin,
		Brand:                 "Renault",
		Model:                 "Zoe",
		Year:                  2021,
		OriginalInServiceDate: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestApplication(t *testing.T, vins ...string) *Application {
	t.Helper()
	vehicles := make([]ProposedVehicle, 0, len(vins))
	for _, vin := range vins {
		vehicles = append(vehicles, proposed(vin))
	}
	a, _, err := NewApplication(sharedDomain.FirstReference, uuid.New(), vehicles, ContractDescriptor{EcommerceProduct: "prod_1"})
	require.NoError(t, err)
	a.ClearDomainEvents()
	return a
}

func TestNewApplication(t *testing.T) {
	t.Run("starts pending with one history entry", func(t *testing.T) {
		linked := uuid.New()
		a, effects, err := NewApplication(sharedDomain.FirstReference, uuid.New(), []ProposedVehicle{proposed("VIN1")}, ContractDescriptor{
			EcommerceProduct: "prod_1",
			EcommerceGateway: "PAYPAL",
			Contract:         &linked,
		})

		require.NoError(t, err)
		assert.Equal(t, StatusPending, a.Status())
		assert.Equal(t, []Effect{EffectNotifyReviewers}, effects)
		require.Len(t, a.History(), 1)
		assert.Equal(t, StatusPending, a.History()[0].Status)
		assert.Equal(t, billing.DefaultGateway, a.Contract().EcommerceGateway)
		_, ok := a.LinkedContract()
		assert.False(t, ok)
		require.Len(t, a.DomainEvents(), 1)
		assert.Equal(t, RoutingKeyApplicationCreated, a.DomainEvents()[0].RoutingKey())
	})

	t.Run("rejects a malformed reference", func(t *testing.T) {
		_, _, err := NewApplication("AB", uuid.New(), nil, ContractDescriptor{})
		assert.ErrorIs(t, err, sharedDomain.ErrInvalidReference)
	})

	t.Run("requires a customer", func(t *testing.T) {
		_, _, err := NewApplication(sharedDomain.FirstReference, uuid.Nil, nil, ContractDescriptor{})
		assert.ErrorIs(t, err, sharedDomain.ErrValidation)
	})
}

func TestApplication_Apply(t *testing.T) {
	t.Run("each transition appends history", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")

		_, err := a.Apply(Review(), "")
		require.NoError(t, err)
		_, err = a.Apply(Finalize(StatusToAmend), "missing registration card")
		require.NoError(t, err)
		_, err = a.Apply(Review(), "")
		require.NoError(t, err)
		_, err = a.Apply(Finalize(StatusPaymentPending), "")
		require.NoError(t, err)

		history := a.History()
		require.Len(t, history, 5)
		assert.Equal(t, StatusToAmend, history[2].Status)
		assert.Equal(t, "missing registration card", history[2].Comment)
		assert.Equal(t, StatusPaymentPending, a.Status())
		assert.Len(t, a.DomainEvents(), 4)
	})

	t.Run("a no-op appends nothing", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")
		for _, action := range []Action{Review(), Finalize(StatusPaymentPending), ConfirmPayment()} {
			_, err := a.Apply(action, "")
			require.NoError(t, err)
		}
		a.ClearDomainEvents()

		effects, err := a.Apply(ConfirmPayment(), "")

		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Len(t, a.History(), 4)
		assert.Empty(t, a.DomainEvents())
	})

	t.Run("a rejected transition leaves the application untouched", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")

		_, err := a.Apply(Finalize(StatusRejected), "")

		assert.ErrorIs(t, err, sharedDomain.ErrInvalidTransition)
		assert.Equal(t, StatusPending, a.Status())
		assert.Len(t, a.History(), 1)
	})
}

func TestApplication_Update(t *testing.T) {
	t.Run("replaces vehicles and descriptor", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")
		vehicles := []ProposedVehicle{proposed("VIN2"), proposed("VIN3")}

		changed, err := a.Update(Patch{
			Vehicles: &vehicles,
			Contract: &ContractDescriptor{EcommerceProduct: "prod_2", EcommerceGateway: "PAYPAL"},
		}, false)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"VIN2", "VIN3"}, a.VINs())
		assert.Equal(t, "prod_2", a.Contract().EcommerceProduct)
		assert.Equal(t, billing.DefaultGateway, a.Contract().EcommerceGateway)
		require.Len(t, a.DomainEvents(), 1)
		assert.Equal(t, RoutingKeyApplicationUpdated, a.DomainEvents()[0].RoutingKey())
	})

	t.Run("unchanged patch emits nothing", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")
		vehicles := a.Vehicles()

		changed, err := a.Update(Patch{Vehicles: &vehicles, Contract: &ContractDescriptor{EcommerceProduct: "prod_1"}}, false)

		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, a.DomainEvents())
	})

	t.Run("under review only for privileged callers", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")
		_, err := a.Apply(Review(), "")
		require.NoError(t, err)
		vehicles := []ProposedVehicle{proposed("VIN9")}

		_, err = a.Update(Patch{Vehicles: &vehicles}, false)
		assert.ErrorIs(t, err, sharedDomain.ErrInvalidTransition)

		changed, err := a.Update(Patch{Vehicles: &vehicles}, true)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusReviewing, a.Status())
	})

	t.Run("reviewers reassign the customer", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")
		owner := uuid.New()

		changed, err := a.Update(Patch{Customer: &owner}, true)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, owner, a.Customer())
		require.Len(t, a.DomainEvents(), 1)
	})

	t.Run("customer reassignment needs a privileged caller", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")
		before := a.Customer()
		owner := uuid.New()
		vehicles := []ProposedVehicle{proposed("VIN2")}

		_, err := a.Update(Patch{Customer: &owner, Vehicles: &vehicles}, false)
		assert.ErrorIs(t, err, ErrCustomerReassignment)
		assert.ErrorIs(t, err, sharedDomain.ErrValidation)

		nobody := uuid.Nil
		_, err = a.Update(Patch{Customer: &nobody}, true)
		assert.ErrorIs(t, err, ErrCustomerReassignment)

		assert.Equal(t, before, a.Customer())
		assert.Equal(t, []string{"VIN1"}, a.VINs())
	})

	t.Run("same customer is not a change", func(t *testing.T) {
		a := newTestApplication(t, "VIN1")
		owner := a.Customer()

		changed, err := a.Update(Patch{Customer: &owner}, false)

		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestApplication_LinkContract(t *testing.T) {
	a := newTestApplication(t, "VIN1")
	contractID := uuid.New()

	require.NoError(t, a.LinkContract(contractID))
	require.NoError(t, a.LinkContract(contractID))

	got, ok := a.LinkedContract()
	assert.True(t, ok)
	assert.Equal(t, contractID, got)
	assert.Len(t, a.DomainEvents(), 1)

	err := a.LinkContract(uuid.New())
	assert.ErrorIs(t, err, ErrContractAlreadyLinked)
	assert.ErrorIs(t, err, sharedDomain.ErrConflict)
}

func TestParseSortField(t *testing.T) {
	assert.Equal(t, SortByUpdatedAt, ParseSortField("UPDATEDAT"))
	assert.Equal(t, SortByCreatedAt, ParseSortField("customer"))
}
