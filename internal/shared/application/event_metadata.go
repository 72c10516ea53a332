package application

import (
	"context"

	"github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/google/uuid"
)

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// NewEventMetadata creates command-scoped metadata for domain events.
func NewEventMetadata(actorID uuid.UUID) domain.EventMetadata {
	return domain.EventMetadata{
		CorrelationID: uuid.New(),
		CausationID:   uuid.New(),
		UserID:        actorID,
	}
}

// EventMetadataFromContext reuses the request correlation id when it is a uuid.
func EventMetadataFromContext(ctx context.Context, actorID uuid.UUID) domain.EventMetadata {
	metadata := NewEventMetadata(actorID)
	if id, err := uuid.Parse(observability.CorrelationIDFromContext(ctx)); err == nil {
		metadata.CorrelationID = id
	}
	return metadata
}

// ApplyEventMetadata sets metadata on all events that support it.
func ApplyEventMetadata(events []domain.DomainEvent, metadata domain.EventMetadata) {
	for i := range events {
		if setter, ok := events[i].(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
}

// RecordEvents writes the pending events of every aggregate to the outbox in
// the transaction carried by ctx, then clears them.
func RecordEvents(ctx context.Context, repo outbox.Repository, actorID uuid.UUID, aggregates ...domain.AggregateRoot) error {
	metadata := EventMetadataFromContext(ctx, actorID)

	var msgs []*outbox.Message
	for _, agg := range aggregates {
		events := agg.DomainEvents()
		ApplyEventMetadata(events, metadata)
		for _, event := range events {
			msg, err := outbox.NewMessage(event)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := repo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	for _, agg := range aggregates {
		agg.ClearDomainEvents()
	}
	return nil
}
