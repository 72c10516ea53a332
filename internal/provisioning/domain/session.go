package domain

import (
	"fmt"
	"time"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/google/uuid"
)

var ErrSessionNotFound = fmt.Errorf("%w: open session", sharedDomain.ErrNotFound)

// SessionKind separates connectivity sessions from driving sessions.
type SessionKind string

const (
	SessionDevice  SessionKind = "device"
	SessionDriving SessionKind = "driving"
)

// Session is a span of time reported by a device. End is nil while open.
type Session struct {
	ID     uuid.UUID
	Device uuid.UUID
	Kind   SessionKind
	Start  time.Time
	End    *time.Time
}

// OpenSession starts a session for device at start.
func OpenSession(device uuid.UUID, kind SessionKind, start time.Time) *Session {
	return &Session{
		ID:     uuid.New(),
		Device: device,
		Kind:   kind,
		Start:  start.UTC(),
	}
}

// Open reports whether the session has not ended.
func (s *Session) Open() bool { return s.End == nil }

// Close ends the session at end.
func (s *Session) Close(end time.Time) {
	end = end.UTC()
	s.End = &end
}

// EventCategory classifies a logged device event.
type EventCategory string

const (
	CategoryConnectionLost EventCategory = "CONNECTION_LOST"
)

// EventLevel is the severity of a logged device event.
type EventLevel int

const (
	LevelLow EventLevel = iota
	LevelMedium
	LevelHigh
)

// DeviceEvent is an entry of the device event log.
type DeviceEvent struct {
	ID        uuid.UUID
	Device    uuid.UUID
	Category  EventCategory
	Level     EventLevel
	Metadata  map[string]any
	CreatedAt time.Time
}

// NewDeviceEvent builds a log entry stamped now.
func NewDeviceEvent(device uuid.UUID, category EventCategory, level EventLevel, metadata map[string]any) *DeviceEvent {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &DeviceEvent{
		ID:        uuid.New(),
		Device:    device,
		Category:  category,
		Level:     level,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}
