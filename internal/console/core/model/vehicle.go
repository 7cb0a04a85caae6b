package model

import "time"

// NoticeReached is the notification type a vehicle sends when it arrives at
// its current target.
const NoticeReached = "reached"

// Notice is a vehicle-originated event carried inside a telemetry snapshot.
type Notice struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Snapshot is one decoded telemetry report. Nil fields are unknown.
type Snapshot struct {
	VehicleID string

	// Stamp is the vehicle-side report time. Zero means "use arrival time".
	Stamp time.Time

	Position    *Position
	Status      *string
	Temperature *float64
	WindU       *float64
	WindV       *float64
	Chaos       *float64
	Notice      *Notice
}

// Vehicle is the console's view of one boat, built from the latest snapshot.
type Vehicle struct {
	// ID is the vehicle's opaque unique identifier.
	ID string `json:"id"`

	Position    *Position `json:"position,omitempty"`
	Status      string    `json:"status,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	WindU       *float64  `json:"windU,omitempty"`
	WindV       *float64  `json:"windV,omitempty"`
	Chaos       *float64  `json:"chaos,omitempty"`

	// Notice is the event carried by the latest snapshot, if any.
	Notice *Notice `json:"notice,omitempty"`

	// LastNotificationID is the id of the last "reached" event raised for
	// this vehicle. Used to suppress duplicates.
	LastNotificationID string `json:"lastNotificationId,omitempty"`

	// Stamp is the time of the snapshot applied last.
	Stamp time.Time `json:"stamp"`

	// Seq is the vehicle's first-seen order within a session.
	Seq uint64 `json:"-"`
}

// Apply replaces the reported state of v with the contents of s. Each
// snapshot is a full report, so fields absent from s become unknown.
func (v *Vehicle) Apply(s *Snapshot, stamp time.Time) {
	v.Position = clonePtr(s.Position)
	v.Status = ""
	if s.Status != nil {
		v.Status = *s.Status
	}
	v.Temperature = clonePtr(s.Temperature)
	v.WindU = clonePtr(s.WindU)
	v.WindV = clonePtr(s.WindV)
	v.Chaos = clonePtr(s.Chaos)
	v.Notice = clonePtr(s.Notice)
	v.Stamp = stamp
}

// DeepCopy returns a copy of v that shares no pointers with it.
func (v *Vehicle) DeepCopy() *Vehicle {
	if v == nil {
		return nil
	}
	out := *v
	out.Position = clonePtr(v.Position)
	out.Temperature = clonePtr(v.Temperature)
	out.WindU = clonePtr(v.WindU)
	out.WindV = clonePtr(v.WindV)
	out.Chaos = clonePtr(v.Chaos)
	out.Notice = clonePtr(v.Notice)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
