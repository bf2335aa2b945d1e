package paths

// Topic segments of the TUEMI vehicle protocol.
// These constants define the routing contract between the on-board units and tuemi-server.

// Upstream: Vehicle -> Server
const (
	// Telemetry is the topic segment for GPS and occupancy reports.
	// Payload: { "latitude": ..., "longitude": ..., "speed": ..., "timestamp": "...", "passengers": ... }
	// Pattern: {root}/telemetry/{vehicleID}
	Telemetry = "telemetry"
)

// Downstream: Server -> Subscribers (dispatch consoles, dashboards)
const (
	// Incident is the topic segment for detected incident alerts.
	// Payload: model.Incident as JSON.
	// Pattern: {root}/incident/{vehicleID}
	Incident = "incident"
)
