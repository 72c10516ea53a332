package queries

import (
	"context"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// ListApplicationsQuery filters, sorts and pages applications.
type ListApplicationsQuery struct {
	Status   *domain.Status
	Customer *uuid.UUID
	Page     sharedDomain.Page
	SortBy   domain.SortField
	Order    sharedDomain.SortOrder
}

// ApplicationPage is one page of applications.
type ApplicationPage struct {
	Results []*ApplicationDTO `json:"results"`
	Count   int               `json:"count"`
	Start   int               `json:"start"`
	Limit   int               `json:"limit"`
}

// ListApplicationsHandler handles the ListApplicationsQuery.
type ListApplicationsHandler struct {
	applicationRepo domain.Repository
}

// NewListApplicationsHandler creates a new ListApplicationsHandler.
func NewListApplicationsHandler(applicationRepo domain.Repository) *ListApplicationsHandler {
	return &ListApplicationsHandler{applicationRepo: applicationRepo}
}

// Handle executes the ListApplicationsQuery. Without a sort the newest
// applications come first.
func (h *ListApplicationsHandler) Handle(ctx context.Context, query ListApplicationsQuery) (*ApplicationPage, error) {
	page := query.Page.Normalized()
	sort := domain.Sort{Field: query.SortBy, Order: query.Order}
	if sort.Field == "" {
		sort.Field = domain.SortByCreatedAt
	}
	if sort.Order == "" {
		sort.Order = sharedDomain.SortDesc
	}

	applications, count, err := h.applicationRepo.List(ctx, domain.Filter{Status: query.Status, Customer: query.Customer}, page, sort)
	if err != nil {
		return nil, err
	}

	results := make([]*ApplicationDTO, 0, len(applications))
	for _, a := range applications {
		results = append(results, ToDTO(a))
	}
	return &ApplicationPage{Results: results, Count: count, Start: page.Start, Limit: page.Limit}, nil
}
