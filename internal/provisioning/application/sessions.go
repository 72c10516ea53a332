package application

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	"github.com/google/uuid"
)

// SessionTracker keeps at most one open session per device and kind.
type SessionTracker struct {
	sessions domain.SessionRepository
	now      func() time.Time
}

// NewSessionTracker creates a session tracker.
func NewSessionTracker(sessions domain.SessionRepository) *SessionTracker {
	return &SessionTracker{
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start closes any open session of the kind, then opens a new one.
func (t *SessionTracker) Start(ctx context.Context, device uuid.UUID, kind domain.SessionKind) (*domain.Session, error) {
	if _, err := t.End(ctx, device, kind); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	session := domain.OpenSession(device, kind, t.now())
	if err := t.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// End closes the open session of the kind and returns it.
func (t *SessionTracker) End(ctx context.Context, device uuid.UUID, kind domain.SessionKind) (*domain.Session, error) {
	session, err := t.sessions.FindOpen(ctx, device, kind)
	if err != nil {
		return nil, err
	}
	session.Close(t.now())
	if err := t.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
