package queries

import (
	"context"

	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// ListContractsQuery filters and pages contracts sorted by creation time.
type ListContractsQuery struct {
	Status   *domain.Status
	Customer *uuid.UUID
	Page     sharedDomain.Page
	Order    sharedDomain.SortOrder
}

// ContractPage is one page of contracts.
type ContractPage struct {
	Results []*ContractDTO `json:"results"`
	Count   int            `json:"count"`
	Start   int            `json:"start"`
	Limit   int            `json:"limit"`
}

// ListContractsHandler handles the ListContractsQuery.
type ListContractsHandler struct {
	contractRepo domain.Repository
}

// NewListContractsHandler creates a new ListContractsHandler.
func NewListContractsHandler(contractRepo domain.Repository) *ListContractsHandler {
	return &ListContractsHandler{contractRepo: contractRepo}
}

// Handle executes the ListContractsQuery. An empty order sorts newest first.
func (h *ListContractsHandler) Handle(ctx context.Context, query ListContractsQuery) (*ContractPage, error) {
	page := query.Page.Normalized()
	order := query.Order
	if order == "" {
		order = sharedDomain.SortDesc
	}

	contracts, count, err := h.contractRepo.List(ctx, domain.Filter{Status: query.Status, Customer: query.Customer}, page, order)
	if err != nil {
		return nil, err
	}

	results := make([]*ContractDTO, 0, len(contracts))
	for _, c := range contracts {
		results = append(results, ToDTO(c))
	}
	return &ContractPage{Results: results, Count: count, Start: page.Start, Limit: page.Limit}, nil
}
