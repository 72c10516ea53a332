package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	"github.com/google/uuid"
)

// ApplicationDTO is the read model of a subscription application.
type ApplicationDTO struct {
	ID            uuid.UUID                 `json:"id"`
	Ref           string                    `json:"ref"`
	Customer      uuid.UUID                 `json:"customer"`
	Status        domain.Status             `json:"status"`
	StatusHistory []domain.HistoryEntry     `json:"statusHistory"`
	Vehicles      []domain.ProposedVehicle  `json:"vehicles"`
	Contract      domain.ContractDescriptor `json:"contract"`
	CreatedAt     time.Time                 `json:"createdAt"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
}

// ToDTO maps an application to its read model.
func ToDTO(a *domain.Application) *ApplicationDTO {
	return &ApplicationDTO{
		ID:            a.ID(),
		Ref:           a.Ref(),
		Customer:      a.Customer(),
		Status:        a.Status(),
		StatusHistory: a.History(),
		Vehicles:      a.Vehicles(),
		Contract:      a.Contract(),
		CreatedAt:     a.CreatedAt(),
		UpdatedAt:     a.UpdatedAt(),
	}
}

// GetApplicationQuery selects an application by id.
type GetApplicationQuery struct {
	ID uuid.UUID
}

// GetApplicationHandler handles the GetApplicationQuery.
type GetApplicationHandler struct {
	applicationRepo domain.Repository
}

// NewGetApplicationHandler creates a new GetApplicationHandler.
func NewGetApplicationHandler(applicationRepo domain.Repository) *GetApplicationHandler {
	return &GetApplicationHandler{applicationRepo: applicationRepo}
}

// Handle returns domain.ErrApplicationNotFound when missing.
func (h *GetApplicationHandler) Handle(ctx context.Context, query GetApplicationQuery) (*ApplicationDTO, error) {
	application, err := h.applicationRepo.FindByID(ctx, query.ID)
	if err != nil {
		return nil, err
	}
	return ToDTO(application), nil
}
