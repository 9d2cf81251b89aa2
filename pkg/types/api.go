package types

// RenderRequest is the payload for POST /render.
type RenderRequest struct {
	// Registry id of the design to render. Mutually exclusive with source.
	// example: gridfinity-box.scad
	Design string `json:"design,omitempty" example:"gridfinity-box.scad"`
	// Inline program text. Mutually exclusive with design.
	// example: cube([width, 10, 10]);
	Source string `json:"source,omitempty" example:"cube([width, 10, 10]);"`
	// Parameter overrides applied to the source before compilation.
	Parameters Params `json:"parameters,omitempty"`
	// Quality tier: "preview" or "full". Defaults to "full".
	// example: full
	Quality string `json:"quality,omitempty" example:"full"`
	// Optional per-request timeout override in milliseconds.
	// example: 120000
	TimeoutMs int `json:"timeout_ms,omitempty" example:"120000"`
}

// ParamsUpdate is the payload for POST /params: one parameter-change
// notification feeding the auto-preview debounce.
type ParamsUpdate struct {
	// Registry id of the design being edited. Mutually exclusive with source.
	// example: gridfinity-box.scad
	Design string `json:"design,omitempty" example:"gridfinity-box.scad"`
	// Inline program text. Mutually exclusive with design.
	Source string `json:"source,omitempty"`
	// Full parameter snapshot (latest wins, not a delta).
	Parameters Params `json:"parameters"`
}

// DesignsResponse wraps the list of designs returned by GET /designs.
type DesignsResponse struct {
	// List of available designs.
	Designs []Design `json:"designs"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// EngineStatus summarizes the engine session for /status.
type EngineStatus struct {
	// Current session state (uninitialized, initializing, ready, busy, faulted).
	// example: ready
	State string `json:"state" example:"ready"`
	// Process incarnation counter; bumped on every restart.
	// example: 2
	Generation uint64 `json:"generation" example:"2"`
	// Request id currently being computed, if any.
	InFlightID string `json:"in_flight_id,omitempty"`
	// Total restarts since startup.
	// example: 1
	Restarts uint64 `json:"restarts" example:"1"`
	// Whether the engine-host binary was found at startup.
	// example: true
	BinFound bool `json:"bin_found" example:"true"`
	// Resolved engine-host binary path.
	BinPath string `json:"bin_path,omitempty"`
	// Process ID of the engine host, if running.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
}

// CacheStatus summarizes the render cache for /status.
type CacheStatus struct {
	// Number of cached results.
	// example: 7
	Entries int `json:"entries" example:"7"`
	// Sum of cached payload sizes in bytes.
	// example: 10485760
	SizeBytes int64 `json:"size_bytes" example:"10485760"`
	// Maximum number of entries retained.
	// example: 10
	MaxEntries int `json:"max_entries" example:"10"`
	// Maximum total payload bytes retained.
	// example: 52428800
	MaxSizeBytes int64 `json:"max_size_bytes" example:"52428800"`
	// Lookup hits since startup.
	// example: 42
	Hits uint64 `json:"hits" example:"42"`
	// Lookup misses since startup.
	// example: 13
	Misses uint64 `json:"misses" example:"13"`
}

// PreviewStatus summarizes the auto-preview scheduler for /status.
type PreviewStatus struct {
	// Whether a debounce timer is pending.
	// example: false
	Pending bool `json:"pending" example:"false"`
	// Whether a preview render is currently in flight.
	// example: false
	InFlight bool `json:"in_flight" example:"false"`
	// Unix seconds of the last successful preview, 0 if none.
	// example: 1700000000
	LastPreviewUnix int64 `json:"last_preview_unix" example:"1700000000"`
	// True when the latest parameter snapshot has not been rendered yet.
	// example: false
	Stale bool `json:"stale" example:"false"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Engine  EngineStatus  `json:"engine"`
	Cache   CacheStatus   `json:"cache"`
	Preview PreviewStatus `json:"preview"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
