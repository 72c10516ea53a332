// Package domain holds the telemetry documents written for insured vehicles
// and the ports used to read driver-behaviour scores back.
package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

var ErrUnknownClass = errors.New("unknown driver behaviour class")

// DriverBehaviourClass grades a driving session from A (best) to K (worst).
type DriverBehaviourClass string

var classes = []DriverBehaviourClass{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"}

// Classes returns every class in grade order.
func Classes() []DriverBehaviourClass {
	out := make([]DriverBehaviourClass, len(classes))
	copy(out, classes)
	return out
}

// Int returns the class score: 100 for A down to 50 for K.
func (c DriverBehaviourClass) Int() (int, error) {
	for i, class := range classes {
		if class == c {
			return 100 - 5*i, nil
		}
	}
	return 0, ErrUnknownClass
}

// OBDData is one on-board diagnostics sample.
type OBDData struct {
	FuelRate         float64 `json:"fuel_rate"`
	VehicleSpeed     float64 `json:"vehicle_speed"`
	EngineSpeed      float64 `json:"engine_speed"`
	RelativeAccelPos float64 `json:"relative_accel_pos"`
}

// Metric is a timestamped sample sent by a device.
type Metric struct {
	Vehicle   string
	Device    string
	Timestamp time.Time
	OBD       OBDData
}

// Report is the graded summary of one driving session.
type Report struct {
	Device   string
	Vehicle  string
	Start    time.Time
	End      time.Time
	Class    DriverBehaviourClass
	ClassInt int
}

const (
	aggressiveAccelPos    = 80
	aggressiveEngineSpeed = 4500
)

// Classify grades a session by the share of aggressive samples. A session
// without samples is graded A.
func Classify(samples []Metric) DriverBehaviourClass {
	if len(samples) == 0 {
		return classes[0]
	}
	aggressive := 0
	for _, s := range samples {
		if s.OBD.RelativeAccelPos >= aggressiveAccelPos || s.OBD.EngineSpeed >= aggressiveEngineSpeed {
			aggressive++
		}
	}
	idx := int(math.Round(float64(aggressive) / float64(len(samples)) * float64(len(classes)-1)))
	return classes[idx]
}

// NewReport grades samples into a report for the session [start, end].
func NewReport(device, vehicle string, start, end time.Time, samples []Metric) Report {
	class := Classify(samples)
	score, _ := class.Int()
	return Report{
		Device:   device,
		Vehicle:  vehicle,
		Start:    start,
		End:      end,
		Class:    class,
		ClassInt: score,
	}
}

// Reader queries the telemetry store.
type Reader interface {
	// AverageDriverBehaviour averages the class scores of the sessions of vin
	// that started in [start, end]. ok is false when there is no session.
	AverageDriverBehaviour(ctx context.Context, vin string, start, end time.Time) (avg float64, ok bool, err error)

	// SessionMetrics returns the samples of vin in [start, end], newest first.
	SessionMetrics(ctx context.Context, vin string, start, end time.Time) ([]Metric, error)
}

// Writer appends documents to the telemetry store.
type Writer interface {
	RegisterReport(ctx context.Context, report Report) error
	RegisterMetric(ctx context.Context, metric Metric) error
}

// Store is a Reader and a Writer.
type Store interface {
	Reader
	Writer
}
