package model

// Mode is the operating mode of a session's mission.
type Mode string

const (
	// ModeAuto follows the waypoint queue.
	ModeAuto Mode = "auto"
	// ModeManual streams operator rudder/throttle; the mission is suspended.
	ModeManual Mode = "manual"
	// ModePaused holds the queue without routing.
	ModePaused Mode = "paused"
)

const (
	RudderMin   = -90.0
	RudderMax   = 90.0
	ThrottleMin = 0.0
	ThrottleMax = 100.0
)

// CommandIntent is an outbound instruction for a single vehicle. Manual
// intents carry Rudder and Throttle, route intents carry the target.
type CommandIntent struct {
	VehicleID string
	Mode      Mode

	Rudder   *float64
	Throttle *float64

	TargetLat *float64
	TargetLng *float64
}

// ManualIntent builds a manual-control command.
func ManualIntent(vehicleID string, rudder, throttle float64) *CommandIntent {
	return &CommandIntent{
		VehicleID: vehicleID,
		Mode:      ModeManual,
		Rudder:    &rudder,
		Throttle:  &throttle,
	}
}

// RouteIntent builds an autonomous routing command toward target.
func RouteIntent(vehicleID string, target Position) *CommandIntent {
	lat, lng := target.Lat, target.Lng
	return &CommandIntent{
		VehicleID: vehicleID,
		Mode:      ModeAuto,
		TargetLat: &lat,
		TargetLng: &lng,
	}
}

// ClampRudder limits v to the rudder range. NaN maps to 0.
func ClampRudder(v float64) float64 {
	return clamp(v, RudderMin, RudderMax)
}

// ClampThrottle limits v to the throttle range. NaN maps to 0.
func ClampThrottle(v float64) float64 {
	return clamp(v, ThrottleMin, ThrottleMax)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v != v:
		return 0
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
