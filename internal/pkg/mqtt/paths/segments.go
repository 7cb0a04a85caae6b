package paths

// Topic segments for the fleet protocol. They are the routing contract
// between the console and the boats; changing one breaks deployed vehicles.

// Downstream: Console -> Vehicle
const (
	// Command carries manual and route directives.
	// Payload: {"id": "...", "md": "auto"|"mnl", "r": .., "th": .., "tlat": .., "tlng": ..}
	// Pattern: {root}/command/{vehicleID}
	Command = "command"
)

// Upstream: Vehicle -> Console
const (
	// Telemetry carries vehicle state snapshots.
	// Payload: {"boat_id": "...", "ts": .., "data": {...}} or an array of those.
	// Pattern: {root}/telemetry/{vehicleID}
	Telemetry = "telemetry"
)

// Console presence
const (
	// Online is the retained presence topic of a console, with a last will.
	// Payload: {"online": true|false}
	// Pattern: {root}/online/{consoleID}
	Online = "online"
)
