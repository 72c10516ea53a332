package queries

import (
	"context"
	"time"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	"github.com/google/uuid"
)

// ContractDTO is the read model of a contract.
type ContractDTO struct {
	ID                    uuid.UUID       `json:"id"`
	Ref                   string          `json:"ref"`
	Customer              uuid.UUID       `json:"customer"`
	Status                domain.Status   `json:"status"`
	ContractDocURL        string          `json:"contractDocURL,omitempty"`
	EcommerceProduct      string          `json:"ecommerceProduct"`
	EcommerceSubscription string          `json:"ecommerceSubscription,omitempty"`
	EcommerceCheckoutURL  string          `json:"ecommerceCheckoutURL,omitempty"`
	EcommerceGateway      billing.Gateway `json:"ecommerceGateway"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// ToDTO maps a contract to its read model.
func ToDTO(c *domain.Contract) *ContractDTO {
	return &ContractDTO{
		ID:                    c.ID(),
		Ref:                   c.Ref(),
		Customer:              c.Customer(),
		Status:                c.Status(),
		ContractDocURL:        c.ContractDocURL(),
		EcommerceProduct:      c.Product(),
		EcommerceSubscription: c.Subscription(),
		EcommerceCheckoutURL:  c.CheckoutURL(),
		EcommerceGateway:      c.Gateway(),
		CreatedAt:             c.CreatedAt(),
		UpdatedAt:             c.UpdatedAt(),
	}
}

// GetContractQuery selects a contract by id.
type GetContractQuery struct {
	ID uuid.UUID
}

// GetContractHandler handles the GetContractQuery.
type GetContractHandler struct {
	contractRepo domain.Repository
}

// NewGetContractHandler creates a new GetContractHandler.
func NewGetContractHandler(contractRepo domain.Repository) *GetContractHandler {
	return &GetContractHandler{contractRepo: contractRepo}
}

// Handle returns domain.ErrContractNotFound when missing.
func (h *GetContractHandler) Handle(ctx context.Context, query GetContractQuery) (*ContractDTO, error) {
	contract, err := h.contractRepo.FindByID(ctx, query.ID)
	if err != nil {
		return nil, err
	}
	return ToDTO(contract), nil
}
