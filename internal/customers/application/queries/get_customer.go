package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/covera/internal/customers/domain"
	"github.com/google/uuid"
)

// CustomerDTO is the read model of a customer.
type CustomerDTO struct {
	ID               uuid.UUID           `json:"id"`
	AuthServerUserID string              `json:"authorizationServerUserId"`
	FirstName        string              `json:"firstName"`
	LastName         string              `json:"lastName"`
	FullName         string              `json:"fullName"`
	Contact          domain.Contact      `json:"contact"`
	Billing          domain.Billing      `json:"billing"`
	Payment          domain.Payment      `json:"paymentInformations"`
	IdentityDocs     domain.IdentityDocs `json:"identityDocs"`
	PaymentDocs      domain.PaymentDocs  `json:"paymentDocs"`
	Insurer          bool                `json:"insurer"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// GetCustomerQuery selects a customer by id or, when ID is nil, by
// authorization-server user.
type GetCustomerQuery struct {
	ID               uuid.UUID
	AuthServerUserID string
}

// GetCustomerHandler handles the GetCustomerQuery.
type GetCustomerHandler struct {
	customerRepo domain.Repository
}

// NewGetCustomerHandler creates a new GetCustomerHandler.
func NewGetCustomerHandler(customerRepo domain.Repository) *GetCustomerHandler {
	return &GetCustomerHandler{customerRepo: customerRepo}
}

// Handle executes the GetCustomerQuery.
func (h *GetCustomerHandler) Handle(ctx context.Context, query GetCustomerQuery) (*CustomerDTO, error) {
	var (
		customer *domain.Customer
		err      error
	)
	if query.ID != uuid.Nil {
		customer, err = h.customerRepo.FindByID(ctx, query.ID)
	} else {
		customer, err = h.customerRepo.FindByAuthServerUserID(ctx, query.AuthServerUserID)
	}
	if err != nil {
		return nil, err
	}
	return ToDTO(customer), nil
}

// ToDTO maps a customer to its read model.
func ToDTO(c *domain.Customer) *CustomerDTO {
	return &CustomerDTO{
		ID:               c.ID(),
		AuthServerUserID: c.AuthServerUserID(),
		FirstName:        c.FirstName(),
		LastName:         c.LastName(),
		FullName:         c.FullName(),
		Contact:          c.Contact(),
		Billing:          c.Billing(),
		Payment:          c.Payment(),
		IdentityDocs:     c.IdentityDocs(),
		PaymentDocs:      c.PaymentDocs(),
		Insurer:          c.IsInsurer(),
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}
}
