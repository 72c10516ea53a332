package queries

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/covera/internal/notifications/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

// NotificationDTO is the read model of a notification.
type NotificationDTO struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Audience  string          `json:"accessibleBy"`
	Sender    *uuid.UUID      `json:"sender,omitempty"`
	Receivers []uuid.UUID     `json:"receivers"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ListNotificationsQuery lists notifications newest first.
type ListNotificationsQuery struct {
	Filter domain.ListFilter
	Page   sharedDomain.Page
}

// ListNotificationsResult is one page of notifications.
type ListNotificationsResult struct {
	Results []NotificationDTO `json:"results"`
	Total   int               `json:"total"`
	Start   int               `json:"start"`
	Limit   int               `json:"limit"`
}

// ListNotificationsHandler handles the ListNotificationsQuery.
type ListNotificationsHandler struct {
	repo domain.Repository
}

// NewListNotificationsHandler creates a new ListNotificationsHandler.
func NewListNotificationsHandler(repo domain.Repository) *ListNotificationsHandler {
	return &ListNotificationsHandler{repo: repo}
}

// Handle executes the ListNotificationsQuery.
func (h *ListNotificationsHandler) Handle(ctx context.Context, query ListNotificationsQuery) (*ListNotificationsResult, error) {
	page := query.Page.Normalized()
	items, total, err := h.repo.List(ctx, query.Filter, page)
	if err != nil {
		return nil, err
	}

	result := &ListNotificationsResult{
		Results: make([]NotificationDTO, 0, len(items)),
		Total:   total,
		Start:   page.Start,
		Limit:   page.Limit,
	}
	for _, n := range items {
		result.Results = append(result.Results, NotificationDTO{
			ID:        n.ID(),
			Type:      string(n.Type()),
			Audience:  string(n.Audience()),
			Sender:    n.Sender(),
			Receivers: n.Receivers(),
			Data:      n.Data(),
			CreatedAt: n.CreatedAt(),
		})
	}
	return result, nil
}
