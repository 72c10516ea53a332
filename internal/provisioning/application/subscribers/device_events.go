// Package subscribers projects the telematics device stream into sessions,
// the device event log and the telemetry store.
package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	notifications "github.com/felixgeelhaar/covera/internal/notifications/domain"
	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/eventbus"
	telemetry "github.com/felixgeelhaar/covera/internal/telemetry/domain"
	"github.com/google/uuid"
)

// Device event types.
const (
	EventConnect                 = "CONNECT"
	EventDisconnect              = "DISCONNECT"
	EventDrivingSessionStart     = "DRIVING_SESSION_START"
	EventDrivingSessionEnd       = "DRIVING_SESSION_END"
	EventMetric                  = "METRIC"
	EventActivationStatusRequest = "ACTIVATION_STATUS_REQUEST"
	EventVehicleVIN              = "VEHICLE_VIN"
)

// ActivationStatusSubject is the command subject a device listens on for its
// activation status.
func ActivationStatusSubject(vin string, device uuid.UUID) string {
	return fmt.Sprintf("devices.%s.%s.cmd.activation-status", vin, device)
}

type deviceEnvelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Time    time.Time       `json:"time"`
	Data    json.RawMessage `json:"data"`
}

type deviceData struct {
	Device  string `json:"device"`
	Vehicle string `json:"vehicle"`
}

type metricData struct {
	Device    string            `json:"device"`
	Vehicle   string            `json:"vehicle"`
	Timestamp int64             `json:"timestamp"`
	OBDData   telemetry.OBDData `json:"obd_data"`
}

type activationStatus struct {
	Device  uuid.UUID           `json:"device"`
	Vehicle string              `json:"vehicle"`
	Status  domain.DeviceStatus `json:"status"`
}

type drivingSessionReport struct {
	Start                   int64  `json:"start"`
	End                     int64  `json:"end"`
	DriverBehaviourClass    string `json:"driver_behaviour_class"`
	DriverBehaviourClassInt int    `json:"driver_behaviour_class_int"`
}

type reportNotification struct {
	Device  string `json:"device"`
	Vehicle string `json:"vehicle"`
	Report  struct {
		DrivingSession drivingSessionReport `json:"driving_session"`
	} `json:"report"`
}

// DecodeDeviceEvent reads the device envelope. The event type becomes the
// routing key and the whole envelope is kept as payload. Command subjects
// published back to devices are ignored.
func DecodeDeviceEvent(subject string, body []byte) (*eventbus.ConsumedEvent, error) {
	if strings.Contains(subject, ".cmd.") {
		return nil, nil
	}

	var env deviceEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode device event: %w", err)
	}
	if env.Type == "" {
		return nil, errors.New("decode device event: missing type")
	}

	event := &eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateType: "Device",
		RoutingKey:    env.Type,
		OccurredAt:    env.Time,
		Payload:       json.RawMessage(body),
	}
	if id, err := uuid.Parse(env.ID); err == nil {
		event.EventID = id
	}
	if id, err := uuid.Parse(env.Subject); err == nil {
		event.AggregateID = id
	}
	return event, nil
}

// Sessions opens and closes device and driving sessions.
type Sessions interface {
	Start(ctx context.Context, device uuid.UUID, kind domain.SessionKind) (*domain.Session, error)
	End(ctx context.Context, device uuid.UUID, kind domain.SessionKind) (*domain.Session, error)
}

// DeviceEventDeps groups the collaborators of the device event consumer.
type DeviceEventDeps struct {
	Devices   domain.DeviceRepository
	Vehicles  domain.VehicleRepository
	Sessions  Sessions
	EventLog  domain.EventLog
	Telemetry telemetry.Store
	Notifier  notifications.Notifier
	Commands  eventbus.Publisher
	Logger    *slog.Logger
}

// DeviceEventConsumer handles the device event stream. Unknown devices and
// sessions are logged and acknowledged; storage failures are returned.
type DeviceEventConsumer struct {
	devices   domain.DeviceRepository
	vehicles  domain.VehicleRepository
	sessions  Sessions
	eventLog  domain.EventLog
	telemetry telemetry.Store
	notifier  notifications.Notifier
	commands  eventbus.Publisher
	logger    *slog.Logger
}

// NewDeviceEventConsumer creates a device event consumer.
func NewDeviceEventConsumer(deps DeviceEventDeps) *DeviceEventConsumer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &DeviceEventConsumer{
		devices:   deps.Devices,
		vehicles:  deps.Vehicles,
		sessions:  deps.Sessions,
		eventLog:  deps.EventLog,
		telemetry: deps.Telemetry,
		notifier:  deps.Notifier,
		commands:  deps.Commands,
		logger:    deps.Logger,
	}
}

// EventTypes returns the device event types handled.
func (c *DeviceEventConsumer) EventTypes() []string {
	return []string{
		EventConnect,
		EventDisconnect,
		EventDrivingSessionStart,
		EventDrivingSessionEnd,
		EventMetric,
		EventActivationStatusRequest,
		EventVehicleVIN,
	}
}

// Handle processes one device event.
func (c *DeviceEventConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var env deviceEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		c.logger.WarnContext(ctx, "dropping malformed device event", "error", err)
		return nil
	}
	device, err := uuid.Parse(env.Subject)
	if err != nil {
		c.logger.WarnContext(ctx, "dropping device event with invalid subject",
			"type", env.Type,
			"subject", env.Subject,
		)
		return nil
	}

	switch env.Type {
	case EventConnect:
		_, err = c.sessions.Start(ctx, device, domain.SessionDevice)
	case EventDisconnect:
		err = c.handleDisconnect(ctx, device)
	case EventDrivingSessionStart:
		_, err = c.sessions.Start(ctx, device, domain.SessionDriving)
	case EventDrivingSessionEnd:
		err = c.handleDrivingSessionEnd(ctx, device, env)
	case EventMetric:
		err = c.handleMetric(ctx, device, env)
	case EventActivationStatusRequest:
		err = c.handleActivationStatusRequest(ctx, device)
	case EventVehicleVIN:
		return nil
	default:
		c.logger.InfoContext(ctx, "no handler for device event", "type", env.Type)
		return nil
	}
	return c.settle(ctx, env, device, err)
}

func (c *DeviceEventConsumer) settle(ctx context.Context, env deviceEnvelope, device uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sharedDomain.ErrNotFound) {
		c.logger.InfoContext(ctx, "device event skipped",
			"type", env.Type,
			"device_id", device,
			"reason", err.Error(),
		)
		return nil
	}
	return fmt.Errorf("handle %s for device %s: %w", env.Type, device, err)
}

func (c *DeviceEventConsumer) handleDisconnect(ctx context.Context, device uuid.UUID) error {
	entry := domain.NewDeviceEvent(device, domain.CategoryConnectionLost, domain.LevelLow, nil)
	if err := c.eventLog.Append(ctx, entry); err != nil {
		return err
	}
	_, err := c.sessions.End(ctx, device, domain.SessionDevice)
	return err
}

func (c *DeviceEventConsumer) handleDrivingSessionEnd(ctx context.Context, deviceID uuid.UUID, env deviceEnvelope) error {
	var data deviceData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		c.logger.WarnContext(ctx, "dropping malformed driving session end", "error", err)
		return nil
	}

	device, err := c.devices.FindByID(ctx, deviceID)
	if err != nil {
		return err
	}
	session, err := c.sessions.End(ctx, deviceID, domain.SessionDriving)
	if err != nil {
		return err
	}

	samples, err := c.telemetry.SessionMetrics(ctx, data.Vehicle, session.Start, *session.End)
	if err != nil {
		return err
	}
	report := telemetry.NewReport(deviceID.String(), data.Vehicle, session.Start, *session.End, samples)
	if err := c.telemetry.RegisterReport(ctx, report); err != nil {
		return err
	}

	if device.Customer() == nil {
		c.logger.InfoContext(ctx, "driving report without customer to notify", "device_id", deviceID)
		return nil
	}
	c.notifier.Notify(ctx, notifications.Request{
		Type:      notifications.TypeNewDeviceMetricsReport,
		Audience:  notifications.AudienceCustomer,
		Receivers: []uuid.UUID{*device.Customer()},
		Data:      newReportNotification(report),
	})
	return nil
}

func (c *DeviceEventConsumer) handleMetric(ctx context.Context, device uuid.UUID, env deviceEnvelope) error {
	var data metricData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		c.logger.WarnContext(ctx, "dropping malformed metric", "error", err)
		return nil
	}

	at := env.Time
	if data.Timestamp > 0 {
		at = time.UnixMilli(data.Timestamp)
	}
	return c.telemetry.RegisterMetric(ctx, telemetry.Metric{
		Vehicle:   data.Vehicle,
		Device:    device.String(),
		Timestamp: at.UTC(),
		OBD:       data.OBDData,
	})
}

func (c *DeviceEventConsumer) handleActivationStatusRequest(ctx context.Context, deviceID uuid.UUID) error {
	device, err := c.devices.FindByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if device.Vehicle() == nil {
		c.logger.InfoContext(ctx, "activation status requested by a device without vehicle", "device_id", deviceID)
		return nil
	}
	vehicle, err := c.vehicles.FindByID(ctx, *device.Vehicle())
	if err != nil {
		return err
	}

	payload, err := json.Marshal(activationStatus{
		Device:  device.ID(),
		Vehicle: vehicle.VIN(),
		Status:  device.Status(),
	})
	if err != nil {
		return err
	}
	if err := c.commands.Publish(ctx, ActivationStatusSubject(vehicle.VIN(), device.ID()), payload); err != nil {
		return fmt.Errorf("%w: publish activation status: %v", sharedDomain.ErrDependency, err)
	}
	return nil
}

func newReportNotification(r telemetry.Report) reportNotification {
	n := reportNotification{Device: r.Device, Vehicle: r.Vehicle}
	n.Report.DrivingSession = drivingSessionReport{
		Start:                   r.Start.UnixMilli(),
		End:                     r.End.UnixMilli(),
		DriverBehaviourClass:    string(r.Class),
		DriverBehaviourClassInt: r.ClassInt,
	}
	return n
}
