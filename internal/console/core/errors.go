package core

import "errors"

var (
	// ErrMalformedTelemetry marks a snapshot without a usable position. The
	// rest of the snapshot is still applied.
	ErrMalformedTelemetry = errors.New("malformed telemetry")

	// ErrStaleTelemetry marks a snapshot older than the vehicle's current state.
	ErrStaleTelemetry = errors.New("stale telemetry")

	// ErrChannelUnavailable is returned when the command channel is down or full.
	ErrChannelUnavailable = errors.New("command channel unavailable")

	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned by operations on a torn-down session.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidTransition is returned when a mode event is not allowed from
	// the current mode.
	ErrInvalidTransition = errors.New("invalid mode transition")

	// ErrNoVehicleSelected is returned by vehicle-directed intents when the
	// session has no selected vehicle yet.
	ErrNoVehicleSelected = errors.New("no vehicle selected")

	// ErrNoPickedPosition is returned when sending or queuing a picked target
	// that was never set.
	ErrNoPickedPosition = errors.New("no picked position")

	// ErrInvalidPosition is returned for coordinates that are not finite.
	ErrInvalidPosition = errors.New("invalid position")
)
