package commands

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/covera/internal/applications/domain"
	sharedApplication "github.com/felixgeelhaar/covera/internal/shared/application"
	"github.com/google/uuid"
)

// ReviewApplicationCommand starts the review of a pending or amended application.
type ReviewApplicationCommand struct {
	ApplicationID uuid.UUID `validate:"required"`
	Comment       string
}

// ReviewApplicationHandler handles the ReviewApplicationCommand.
type ReviewApplicationHandler struct {
	deps   Deps
	logger *slog.Logger
}

// NewReviewApplicationHandler creates a new ReviewApplicationHandler.
func NewReviewApplicationHandler(deps Deps) *ReviewApplicationHandler {
	return &ReviewApplicationHandler{deps: deps, logger: deps.logger()}
}

// Handle moves the application to REVIEWING and notifies the insurer.
func (h *ReviewApplicationHandler) Handle(ctx context.Context, cmd ReviewApplicationCommand) error {
	if err := sharedApplication.ValidateCommand(cmd); err != nil {
		return err
	}

	var (
		application *domain.Application
		effects     []domain.Effect
	)
	err := sharedApplication.WithUnitOfWork(ctx, h.deps.UnitOfWork, func(txCtx context.Context) error {
		var err error
		application, err = h.deps.Applications.FindByID(txCtx, cmd.ApplicationID)
		if err != nil {
			return err
		}
		effects, err = application.Apply(domain.Review(), cmd.Comment)
		if err != nil {
			return err
		}
		if err := h.deps.Applications.Save(txCtx, application); err != nil {
			return err
		}
		return sharedApplication.RecordEvents(txCtx, h.deps.OutboxRepo, application.Customer(), application)
	})
	if err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "subscription application under review", "application_id", application.ID())
	notify(ctx, h.deps.Notifier, application, effects, "")
	return nil
}
